// Package agent implements the Document Agent (spec.md §4.7, C7): the
// retrieve-enrich-bind-prompt-validate orchestration that turns a natural
// language query plus a TrustGraph into a fully-provenanced QueryResult.
// Shape adapted from the teacher's internal/service/decisions.Service: a
// single exported operation, OTel span attributes set at entry, structured
// logging throughout, and a bounded LM call wrapped in its own timeout.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	json "github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sohamzycus/contractos/internal/binding"
	"github.com/sohamzycus/contractos/internal/embedindex"
	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
)

// MaxHistoryTurnsDefault bounds how much conversation history is prepended
// to the prompt (spec.md §4.7 step 5).
const MaxHistoryTurnsDefault = 10

// DefaultTopK is the default retrieval width per target document (spec.md §4.7 step 2).
const DefaultTopK = 30

// DefaultLMTimeout bounds only the LM call itself (spec.md §4.7's
// cancellation/timeout contract); retrieval and enrichment are not subject
// to it.
const DefaultLMTimeout = 60 * time.Second

// Agent answers queries against one or more indexed documents (spec.md §4.7).
type Agent struct {
	db              *storage.DB
	index           *embedindex.Index
	resolver        *binding.Resolver
	provider        lm.Provider
	logger          *slog.Logger
	schema          *jsonschema.Schema
	maxHistoryTurns int
	lmTimeout       time.Duration
}

// New builds an Agent. provider may be nil — a query with retrieved facts
// then resolves to not_found with Degraded=true rather than failing (spec.md
// §4.7 failure semantics: "LM unavailable"); a query with no retrieved facts
// resolves to not_found before the provider is consulted.
func New(db *storage.DB, index *embedindex.Index, resolver *binding.Resolver, provider lm.Provider, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		db: db, index: index, resolver: resolver, provider: provider, logger: logger,
		schema:          buildAnswerSchema(),
		maxHistoryTurns: MaxHistoryTurnsDefault,
		lmTimeout:       DefaultLMTimeout,
	}
}

func buildAnswerSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"answer_type":       {Type: "string", Enum: []any{"fact", "binding", "inference", "not_found"}},
			"answer_text":       {Type: "string"},
			"confidence":        {Type: "number"},
			"cited_fact_ids":    {Type: "array"},
			"cited_binding_ids": {Type: "array"},
			"reasoning_summary": {Type: "string"},
		},
		Required: []string{"answer_type", "answer_text", "cited_fact_ids", "cited_binding_ids", "reasoning_summary"},
	}
}

// enrichedFact is one retrieved fact plus the graph context attached to it
// during step 3 (Enrich).
type enrichedFact struct {
	Fact    model.Fact
	Clause  *model.Clause
	Score   float64
	ChunkID model.ChunkID
}

// Answer implements spec.md §4.7's full ten-step orchestration.
func (a *Agent) Answer(ctx context.Context, workspaceID model.WorkspaceID, query model.Query) (model.QueryResult, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.StringSlice("contractos.target_documents", documentIDStrings(query.TargetDocumentIDs)),
		attribute.String("contractos.scope", string(query.Scope)),
	)

	startedAt := time.Now()
	scope := query.Scope
	if scope == "" {
		scope = model.QueryScopeSingle // step 1: Scope
	}
	session, err := model.NewReasoningSession(workspaceID, query.Text, scope, query.TargetDocumentIDs, startedAt)
	if err != nil {
		return model.QueryResult{}, err
	}
	if err := a.db.InsertSession(ctx, session); err != nil {
		return model.QueryResult{}, err
	}

	result, failErr := a.run(ctx, query)
	if failErr != nil {
		partial := &model.QueryResult{Degraded: true}
		session = session.Fail(partial, time.Now())
		_ = a.db.UpdateSession(ctx, session) // best-effort; the original failErr is what the caller sees
		return model.QueryResult{}, failErr
	}

	session = session.Complete(result, time.Now(), time.Since(startedAt).Milliseconds())
	if err := a.db.UpdateSession(ctx, session); err != nil {
		a.logger.Warn("agent: failed to persist completed session", "error", err, "session_id", session.SessionID)
	}
	return result, nil
}

func (a *Agent) run(ctx context.Context, query model.Query) (model.QueryResult, error) {
	topK := DefaultTopK

	// Step 2: Retrieve.
	hits, retrievalMethod, err := a.index.Search(ctx, query.Text, query.TargetDocumentIDs, topK, nil)
	if err != nil {
		return model.QueryResult{}, err
	}

	// Step 3: Enrich. De-duplicate by fact_id, keeping the best score.
	enriched, err := a.enrich(ctx, query.TargetDocumentIDs, hits)
	if err != nil {
		return model.QueryResult{}, err
	}
	if len(enriched) == 0 {
		return a.notFoundResult(retrievalMethod, "no retrieved facts matched the query"), nil
	}

	// Step 4: Bind.
	termBindings := a.bindTerms(ctx, query.TargetDocumentIDs, enriched)

	// Step 5: Build prompt.
	systemPrompt := buildSystemPrompt()
	userPrompt := buildUserPrompt(query, enriched, termBindings, a.maxHistoryTurns)

	if a.provider == nil {
		result := a.notFoundResult(retrievalMethod, "no language model configured")
		result.Degraded = true
		return result, nil
	}

	// Step 6: Call LM, bounded by its own timeout.
	lmCtx, cancel := context.WithTimeout(ctx, a.lmTimeout)
	defer cancel()
	raw, err := a.provider.Generate(lmCtx, userPrompt, lm.GenerateOptions{MaxTokens: 1024, Temperature: 0, SystemPrompt: systemPrompt})
	if err != nil {
		return model.QueryResult{}, model.NewError(model.KindLM, "agent: lm generate failed", err)
	}

	parsed, err := a.parseAndValidate(raw)
	if err != nil {
		a.logger.Warn("agent: lm response failed validation", "error", err)
		return a.notFoundResult(retrievalMethod, "language model response failed validation"), nil
	}

	// Step 7: Validate citations.
	retrievedFactIDs := map[model.FactID]bool{}
	for _, e := range enriched {
		retrievedFactIDs[e.Fact.FactID] = true
	}
	validFactIDs := make([]model.FactID, 0, len(parsed.CitedFactIDs))
	for _, id := range parsed.CitedFactIDs {
		if retrievedFactIDs[model.FactID(id)] {
			validFactIDs = append(validFactIDs, model.FactID(id))
		}
	}
	answerType := model.AnswerType(parsed.AnswerType)
	if answerType == model.AnswerTypeInference && len(validFactIDs) == 0 {
		answerType = model.AnswerTypeNotFound
	}

	citedBindingIDs := make([]model.BindingID, 0, len(parsed.CitedBindingIDs))
	for _, id := range parsed.CitedBindingIDs {
		citedBindingIDs = append(citedBindingIDs, model.BindingID(id))
	}

	confidence := clampConfidence(answerType, parsed.Confidence)

	// Step 8: Build provenance.
	provenance := buildProvenance(enriched, validFactIDs, citedBindingIDs, termBindings, parsed.ReasoningSummary)

	result := model.QueryResult{
		AnswerType:       answerType,
		AnswerText:       parsed.AnswerText,
		Confidence:       confidence,
		CitedFactIDs:     validFactIDs,
		CitedBindingIDs:  citedBindingIDs,
		ReasoningSummary: parsed.ReasoningSummary,
		Provenance:       provenance,
		RetrievalMethod:  toModelRetrievalMethod(retrievalMethod),
	}
	return result, nil
}

func (a *Agent) notFoundResult(method embedindex.RetrievalMethod, reason string) model.QueryResult {
	zero := 0.0
	return model.QueryResult{
		AnswerType:       model.AnswerTypeNotFound,
		AnswerText:       reason,
		Confidence:       &zero,
		ReasoningSummary: reason,
		Provenance:       model.ProvenanceChain{ReasoningSummary: reason},
		RetrievalMethod:  toModelRetrievalMethod(method),
	}
}

// enrich joins retrieved search hits against the facts/clauses they cite.
// Across multiple target documents this is a bounded fan-out read — each
// document's clauses and facts are independent of every other document's,
// so there is nothing to serialize (spec.md §5 imposes its suspension-not-
// concurrency rule on a single document's own pipeline, not on reads spread
// across documents); the teacher's own worker-pool idiom
// (errgroup.Group.SetLimit(runtime.GOMAXPROCS(0))) applies directly here.
func (a *Agent) enrich(ctx context.Context, documentIDs []model.DocumentID, hits []model.SearchHit) ([]enrichedFact, error) {
	clauses, err := fetchPerDocument(ctx, documentIDs, func(ctx context.Context, docID model.DocumentID) ([]model.Clause, error) {
		return a.db.GetClauses(ctx, docID, nil)
	})
	if err != nil {
		return nil, err
	}

	factDocIDs := documentIDs
	if len(documentIDs) == 0 {
		factDocIDs = hitDocumentIDs(hits)
	}
	facts, err := fetchPerDocument(ctx, factDocIDs, func(ctx context.Context, docID model.DocumentID) ([]model.Fact, error) {
		return a.db.GetFacts(ctx, docID, model.FactFilter{})
	})
	if err != nil {
		return nil, err
	}

	factByID := map[model.FactID]model.Fact{}
	for _, docFacts := range facts {
		for _, f := range docFacts {
			factByID[f.FactID] = f
		}
	}
	clauseByFactID := map[model.FactID]model.Clause{}
	for _, docClauses := range clauses {
		for _, c := range docClauses {
			for _, contained := range c.ContainedFactIDs {
				clauseByFactID[contained] = c
			}
		}
	}

	best := map[model.FactID]enrichedFact{}
	for _, h := range hits {
		fact, found := factByID[h.SourceFactID]
		if !found {
			continue
		}
		var clause *model.Clause
		if c, ok := clauseByFactID[fact.FactID]; ok {
			cc := c
			clause = &cc
		}

		e := enrichedFact{Fact: fact, Clause: clause, Score: h.Score, ChunkID: h.ChunkID}
		if existing, ok := best[fact.FactID]; !ok || e.Score > existing.Score {
			best[fact.FactID] = e
		}
	}

	out := make([]enrichedFact, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// fetchPerDocument runs fn once per document ID, bounded to GOMAXPROCS
// concurrent in-flight reads, and returns results indexed to match docIDs.
// Each goroutine writes only its own slice index, so no locking is needed.
func fetchPerDocument[T any](ctx context.Context, docIDs []model.DocumentID, fn func(context.Context, model.DocumentID) ([]T, error)) ([][]T, error) {
	results := make([][]T, len(docIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, docID := range docIDs {
		i, docID := i, docID
		g.Go(func() error {
			rows, err := fn(gctx, docID)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func hitDocumentIDs(hits []model.SearchHit) []model.DocumentID {
	seen := map[model.DocumentID]bool{}
	var out []model.DocumentID
	for _, h := range hits {
		if !seen[h.DocumentID] {
			seen[h.DocumentID] = true
			out = append(out, h.DocumentID)
		}
	}
	return out
}

func (a *Agent) bindTerms(ctx context.Context, documentIDs []model.DocumentID, enriched []enrichedFact) map[string]model.ResolvedTerm {
	resolved := map[string]model.ResolvedTerm{}
	if a.resolver == nil {
		return resolved
	}
	bindingsByDoc := map[model.DocumentID][]model.Binding{}
	for _, docID := range documentIDs {
		bindings, err := a.db.GetBindings(ctx, docID)
		if err != nil {
			continue
		}
		bindingsByDoc[docID] = bindings
	}
	for _, e := range enriched {
		for _, b := range bindingsByDoc[e.Fact.DocumentID] {
			if _, already := resolved[b.Term]; already {
				continue
			}
			pos := e.Fact.Evidence.CharStart
			if rt, unresolved := a.resolver.ResolveTerm(bindingsByDoc[e.Fact.DocumentID], e.Fact.DocumentID, b.Term, &pos); unresolved == nil {
				resolved[b.Term] = rt
			}
		}
	}
	return resolved
}

type lmAnswerResponse struct {
	AnswerType       string   `json:"answer_type"`
	AnswerText       string   `json:"answer_text"`
	Confidence       *float64 `json:"confidence"`
	CitedFactIDs     []string `json:"cited_fact_ids"`
	CitedBindingIDs  []string `json:"cited_binding_ids"`
	ReasoningSummary string   `json:"reasoning_summary"`
}

func (a *Agent) parseAndValidate(raw string) (lmAnswerResponse, error) {
	var parsed lmAnswerResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return lmAnswerResponse{}, model.NewError(model.KindLM, "agent: lm response is not valid json", err)
	}
	resolved, err := a.schema.Resolve(nil)
	if err != nil {
		return lmAnswerResponse{}, model.NewError(model.KindLM, "agent: resolve answer schema", err)
	}
	instance := map[string]any{
		"answer_type":       parsed.AnswerType,
		"answer_text":       parsed.AnswerText,
		"cited_fact_ids":    parsed.CitedFactIDs,
		"cited_binding_ids": parsed.CitedBindingIDs,
		"reasoning_summary": parsed.ReasoningSummary,
	}
	if parsed.Confidence != nil {
		instance["confidence"] = *parsed.Confidence
	}
	if err := resolved.Validate(instance); err != nil {
		return lmAnswerResponse{}, model.NewError(model.KindLM, "agent: lm response failed schema validation", err)
	}
	return parsed, nil
}

// clampConfidence implements spec.md §4.7's confidence policy.
func clampConfidence(answerType model.AnswerType, reported *float64) *float64 {
	one := 1.0
	switch answerType {
	case model.AnswerTypeFact, model.AnswerTypeBinding:
		return &one
	case model.AnswerTypeInference:
		v := 0.0
		if reported != nil {
			v = *reported
		}
		if v < 0 {
			v = 0
		}
		if v > 0.95 {
			v = 0.95
		}
		return &v
	default: // not_found
		if reported != nil {
			return reported
		}
		zero := 0.0
		return &zero
	}
}

func buildProvenance(enriched []enrichedFact, citedFactIDs []model.FactID, citedBindingIDs []model.BindingID, terms map[string]model.ResolvedTerm, reasoningSummary string) model.ProvenanceChain {
	byID := map[model.FactID]enrichedFact{}
	for _, e := range enriched {
		byID[e.Fact.FactID] = e
	}

	var nodes []model.ProvenanceNode
	for _, id := range citedFactIDs {
		e, ok := byID[id]
		if !ok {
			continue
		}
		excerpt := e.Fact.Value
		if len(excerpt) > 160 {
			excerpt = excerpt[:160]
		}
		loc := e.Fact.Evidence.LocationHint
		nodes = append(nodes, model.ProvenanceNode{
			NodeType: model.ProvenanceNodeFact, ReferenceID: string(id), Summary: excerpt, DocumentLocation: &loc,
		})
	}
	for _, id := range citedBindingIDs {
		nodes = append(nodes, model.ProvenanceNode{NodeType: model.ProvenanceNodeBinding, ReferenceID: string(id), Summary: "binding resolution used in answer"})
	}
	for term, rt := range terms {
		nodes = append(nodes, model.ProvenanceNode{NodeType: model.ProvenanceNodeBinding, ReferenceID: term, Summary: fmt.Sprintf("%s -> %s", term, rt.ResolvesTo)})
	}
	nodes = append(nodes, model.ProvenanceNode{NodeType: model.ProvenanceNodeReasoning, Summary: reasoningSummary})

	return model.ProvenanceChain{Nodes: nodes, ReasoningSummary: reasoningSummary}
}

func toModelRetrievalMethod(m embedindex.RetrievalMethod) model.RetrievalMethod {
	if m == embedindex.RetrievalLexical {
		return model.RetrievalMethodLexicalFallback
	}
	return model.RetrievalMethodSemantic
}

func documentIDStrings(ids []model.DocumentID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
