// Package discovery implements the discovery subsystem (spec.md §4.10, C10):
// an LM pass over a document's stored facts/clauses/bindings that surfaces
// implicit obligations, missing protections, and ambiguous terms. Every
// output is wrapped as a model.Inference (generated_by="discovery") — this
// package never writes a model.Fact, the truth-model boundary spec.md draws.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	json "github.com/segmentio/encoding/json"

	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
)

// MaxContextFacts bounds how many facts are paginated into the discovery
// prompt per call, keeping the prompt bounded on very large contracts.
const MaxContextFacts = 200

// Discoverer runs the discovery pass for a document.
type Discoverer struct {
	db       *storage.DB
	provider lm.Provider
	schema   *jsonschema.Schema
}

// New builds a Discoverer. provider may be nil — unlike the agent,
// discovery has no lexical fallback; with no provider Discover returns an
// empty result rather than erroring (spec.md §4.10 names no failure mode,
// so this mirrors the agent's "LM unavailable" degrade-gracefully stance).
func New(db *storage.DB, provider lm.Provider) *Discoverer {
	return &Discoverer{db: db, provider: provider, schema: buildDiscoverySchema()}
}

func buildDiscoverySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"findings": {Type: "array"},
		},
		Required: []string{"findings"},
	}
}

type discoveredFactResponse struct {
	Claim            string  `json:"claim"`
	Category         string  `json:"category"`
	Severity         string  `json:"severity"`
	EvidenceLocation string  `json:"evidence_location"`
	Confidence       float64 `json:"confidence"`
}

type discoveryResponse struct {
	Findings []discoveredFactResponse `json:"findings"`
}

// Discover implements spec.md §4.10's contract: gather stored facts, clauses,
// and bindings as context, ask the LM to surface implicit obligations,
// missing protections, cross-clause implications, and ambiguous terms.
func (d *Discoverer) Discover(ctx context.Context, docID model.DocumentID) (model.DiscoveryResult, error) {
	if d.provider == nil {
		return model.DiscoveryResult{DocumentID: docID}, nil
	}

	facts, err := d.db.GetFacts(ctx, docID, model.FactFilter{})
	if err != nil {
		return model.DiscoveryResult{}, err
	}
	if len(facts) > MaxContextFacts {
		facts = facts[:MaxContextFacts]
	}
	clauses, err := d.db.GetClauses(ctx, docID, nil)
	if err != nil {
		return model.DiscoveryResult{}, err
	}
	bindings, err := d.db.GetBindings(ctx, docID)
	if err != nil {
		return model.DiscoveryResult{}, err
	}

	prompt := buildPrompt(facts, clauses, bindings)
	raw, err := d.provider.Generate(ctx, prompt, lm.GenerateOptions{MaxTokens: 2048, Temperature: 0.2})
	if err != nil {
		return model.DiscoveryResult{}, model.NewError(model.KindLM, "discovery: lm generate failed", err)
	}

	findings, err := d.parseAndValidate(raw)
	if err != nil {
		return model.DiscoveryResult{}, err
	}

	factIDs := make([]model.FactID, len(facts))
	for i, f := range facts {
		factIDs[i] = f.FactID
	}

	now := time.Now().UTC()
	inferences := make([]model.Inference, 0, len(findings))
	for _, f := range findings {
		confidence := f.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		inf, err := model.NewInference(docID, f.Category, f.Claim, factIDs, nil,
			fmt.Sprintf("discovery: %s (%s)", f.EvidenceLocation, f.Severity), confidence,
			"lm_self_reported", "discovery", now, nil)
		if err != nil {
			continue // a malformed individual finding must not fail the whole pass
		}
		inferences = append(inferences, inf)
	}

	return model.DiscoveryResult{DocumentID: docID, Inferences: inferences}, nil
}

func buildPrompt(facts []model.Fact, clauses []model.Clause, bindings []model.Binding) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(`
You are reviewing a contract for implicit obligations, missing protections,
cross-clause implications, and ambiguous terms. Use only the facts, clauses,
and bindings given below — never invent contract content.

Respond with JSON only: {"findings": [{"claim": "...", "category": "...",
"severity": "low|medium|high|critical", "evidence_location": "...", "confidence": 0.0}]}
`))
	sb.WriteString("\n\nClauses:\n")
	for _, c := range clauses {
		fmt.Fprintf(&sb, "- [%s] %s\n", c.ClauseType, c.Heading)
	}
	sb.WriteString("\nFacts:\n")
	for _, f := range facts {
		fmt.Fprintf(&sb, "- [fact_id=%s] %s\n", f.FactID, f.Value)
	}
	sb.WriteString("\nBindings:\n")
	for _, b := range bindings {
		fmt.Fprintf(&sb, "- %s -> %s\n", b.Term, b.ResolvesTo)
	}
	return sb.String()
}

func (d *Discoverer) parseAndValidate(raw string) ([]discoveredFactResponse, error) {
	var parsed discoveryResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, model.NewError(model.KindLM, "discovery: lm response is not valid json", err)
	}
	resolved, err := d.schema.Resolve(nil)
	if err != nil {
		return nil, model.NewError(model.KindLM, "discovery: resolve response schema", err)
	}
	findingsAny := make([]any, len(parsed.Findings))
	for i, f := range parsed.Findings {
		findingsAny[i] = f
	}
	if err := resolved.Validate(map[string]any{"findings": findingsAny}); err != nil {
		return nil, model.NewError(model.KindLM, "discovery: lm response failed schema validation", err)
	}
	validSeverities := map[string]bool{"low": true, "medium": true, "high": true, "critical": true}
	out := make([]discoveredFactResponse, 0, len(parsed.Findings))
	for _, f := range parsed.Findings {
		if !validSeverities[f.Severity] {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
