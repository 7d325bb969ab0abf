// Package classify implements the two-stage clause classifier (spec.md
// §4.3, C3): a deterministic weighted-keyword pattern stage, falling back to
// a schema-constrained LLM call when the pattern stage is ambiguous. Shape
// adapted from the teacher's internal/conflicts.Validator (embedding
// candidate stage, LLM confirmation stage).
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	json "github.com/segmentio/encoding/json"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
)

// Config bounds the pattern stage's acceptance rule (spec.md §4.3).
type Config struct {
	ConfidenceFloor float64 // minimum top-match score to accept directly
	Margin          float64 // minimum lead over the runner-up to accept directly
}

// DefaultConfig mirrors the floor/margin values used in the teacher's own
// scorer.go threshold constants, scaled to this registry's keyword weights.
var DefaultConfig = Config{ConfidenceFloor: 4, Margin: 2}

// Classifier holds the loaded clause-type registry and an optional LM
// fallback provider (nil disables the LLM stage entirely, always returning
// general/pattern on an ambiguous heading).
type Classifier struct {
	entries []registryEntry
	cfg     Config
	provider lm.Provider
	schema   *jsonschema.Schema
}

// New loads the embedded registry and wires an LM fallback provider. Passing
// a nil provider is valid (spec.md §4.3's "LM unavailable" failure mode).
func New(cfg Config, provider lm.Provider) (*Classifier, error) {
	entries, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	return &Classifier{
		entries:  entries,
		cfg:      cfg,
		provider: provider,
		schema:   buildResponseSchema(entries),
	}, nil
}

func buildResponseSchema(entries []registryEntry) *jsonschema.Schema {
	enumValues := make([]any, 0, len(entries)+1)
	for _, e := range entries {
		enumValues = append(enumValues, e.Spec.TypeID)
	}
	enumValues = append(enumValues, string(model.ClauseTypeGeneral))

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"clause_type": {Type: "string", Enum: enumValues},
			"confidence":  {Type: "number"},
		},
		Required: []string{"clause_type", "confidence"},
	}
}

// classification is the result of Classify, before a Clause entity can be
// built by the caller (which must also supply the clause-span Fact and
// contained facts to model.NewClause).
type classification struct {
	ClauseType ClauseType
	Method     model.ClassificationMethod
	Confidence *float64
}

// ClauseType aliases model.ClauseType for readability within this package.
type ClauseType = model.ClauseType

// Classify implements spec.md §4.3's contract:
// classify(clause_span_fact, containing_text, heading_text) → {clause_type, method, confidence?}.
func (c *Classifier) Classify(ctx context.Context, headingText, containingText string) (ClauseType, model.ClassificationMethod, *float64, error) {
	if result, ok := c.patternStage(headingText); ok {
		return result.ClauseType, result.Method, result.Confidence, nil
	}
	return c.llmStage(ctx, headingText, containingText)
}

func (c *Classifier) patternStage(headingText string) (classification, bool) {
	lower := strings.ToLower(headingText)

	type scored struct {
		typeID string
		score  int
	}
	var scores []scored
	for _, e := range c.entries {
		total := 0
		for kw, weight := range e.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				total += weight
			}
		}
		if total > 0 {
			scores = append(scores, scored{typeID: e.Spec.TypeID, score: total})
		}
	}
	if len(scores) == 0 {
		return classification{}, false
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	top := scores[0]
	runnerUp := 0
	if len(scores) > 1 {
		runnerUp = scores[1].score
	}
	if float64(top.score) < c.cfg.ConfidenceFloor || float64(top.score-runnerUp) < c.cfg.Margin {
		return classification{}, false
	}
	return classification{ClauseType: model.ClauseType(top.typeID), Method: model.ClassificationMethodPattern}, true
}

type lmClassifyResponse struct {
	ClauseType string  `json:"clause_type"`
	Confidence float64 `json:"confidence"`
}

// llmStage sends the heading and first paragraph body to the LM with a
// constrained schema. An unavailable provider, a call error, or a response
// that fails schema validation all downgrade to general/pattern per
// spec.md §4.3's failure semantics rather than failing the whole extraction.
func (c *Classifier) llmStage(ctx context.Context, headingText, containingText string) (ClauseType, model.ClassificationMethod, *float64, error) {
	fallback := func() (ClauseType, model.ClassificationMethod, *float64, error) {
		return model.ClauseTypeGeneral, model.ClassificationMethodPattern, nil, nil
	}
	if c.provider == nil {
		return fallback()
	}

	firstParagraph := containingText
	if idx := strings.Index(containingText, "\n"); idx > 0 {
		firstParagraph = containingText[:idx]
	}

	prompt := c.buildPrompt(headingText, firstParagraph)
	raw, err := c.provider.Generate(ctx, prompt, lm.GenerateOptions{MaxTokens: 128, Temperature: 0})
	if err != nil {
		return fallback()
	}

	var parsed lmClassifyResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fallback()
	}
	if err := c.validateResponse(parsed); err != nil {
		return fallback()
	}

	confidence := parsed.Confidence
	return model.ClauseType(parsed.ClauseType), model.ClassificationMethodLLM, &confidence, nil
}

func (c *Classifier) buildPrompt(heading, firstParagraph string) string {
	var sb strings.Builder
	sb.WriteString("Classify this contract clause. Respond with JSON only: {\"clause_type\": <type>, \"confidence\": <0-1>}.\n\n")
	fmt.Fprintf(&sb, "Heading: %s\n", heading)
	fmt.Fprintf(&sb, "Body: %s\n", firstParagraph)
	sb.WriteString("\nAllowed clause_type values: ")
	for _, e := range c.entries {
		sb.WriteString(e.Spec.TypeID)
		sb.WriteString(", ")
	}
	sb.WriteString("general")
	return sb.String()
}

// validateResponse checks the LM's parsed JSON against the constrained
// schema (clause_type enum, confidence in [0,1]); an invalid response is
// treated as LmInvalidResponse by the caller.
func (c *Classifier) validateResponse(resp lmClassifyResponse) error {
	instance := map[string]any{"clause_type": resp.ClauseType, "confidence": resp.Confidence}
	resolved, err := c.schema.Resolve(nil)
	if err != nil {
		return model.NewError(model.KindLM, "classify: resolve response schema", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return model.NewError(model.KindLM, "classify: lm response failed schema validation", err)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return model.NewError(model.KindLM, "classify: confidence out of [0,1] range", nil)
	}
	return nil
}

// SpecFor returns the registry entry's ClauseTypeSpec for slot filling,
// falling back to an empty spec (no mandatory/optional facts) for
// unregistered types like "general" or "custom".
func (c *Classifier) SpecFor(clauseType ClauseType) model.ClauseTypeSpec {
	for _, e := range c.entries {
		if e.Spec.TypeID == string(clauseType) {
			return e.Spec
		}
	}
	return model.ClauseTypeSpec{TypeID: string(clauseType)}
}

// FillSlots iterates a clause type's mandatory and optional fact specs,
// matching each against the clause's contained facts by entity type
// (spec.md §4.3's slot-filling step).
func FillSlots(clauseID model.ClauseID, spec model.ClauseTypeSpec, contained []model.Fact) []model.ClauseFactSlot {
	var slots []model.ClauseFactSlot
	for _, fs := range spec.MandatoryFacts {
		slots = append(slots, fillSlot(clauseID, fs, contained, true))
	}
	for _, fs := range spec.OptionalFacts {
		slots = append(slots, fillSlot(clauseID, fs, contained, false))
	}
	return slots
}

// fillSlot matches contained facts against one expected fact spec (spec.md
// §4.3: "status filled, partial, or missing"). A single fact of the right
// FactType whose EntityType also matches (or whose spec has no EntityType
// constraint) fills the slot outright. A FactType match with an ambiguous
// EntityType (missing, or present but not an exact match) or more than one
// exact candidate is only partial evidence: a best-effort FilledByFactID is
// still recorded so the caller can inspect the candidate, but the status
// flags it as unconfirmed rather than resolved.
func fillSlot(clauseID model.ClauseID, fs model.FactSpec, contained []model.Fact, required bool) model.ClauseFactSlot {
	var exact, ambiguous []model.Fact
	for _, f := range contained {
		if f.FactType != fs.FactType {
			continue
		}
		if fs.EntityType == nil || (f.EntityType != nil && *f.EntityType == *fs.EntityType) {
			exact = append(exact, f)
			continue
		}
		ambiguous = append(ambiguous, f)
	}

	if len(exact) == 1 {
		id := exact[0].FactID
		return model.ClauseFactSlot{ClauseID: clauseID, FactSpecName: fs.Name, Status: model.SlotStatusFilled, FilledByFactID: &id, Required: required}
	}
	if len(exact) > 1 {
		id := exact[0].FactID
		return model.ClauseFactSlot{ClauseID: clauseID, FactSpecName: fs.Name, Status: model.SlotStatusPartial, FilledByFactID: &id, Required: required}
	}
	if len(ambiguous) > 0 {
		id := ambiguous[0].FactID
		return model.ClauseFactSlot{ClauseID: clauseID, FactSpecName: fs.Name, Status: model.SlotStatusPartial, FilledByFactID: &id, Required: required}
	}
	return model.ClauseFactSlot{ClauseID: clauseID, FactSpecName: fs.Name, Status: model.SlotStatusMissing, Required: required}
}
