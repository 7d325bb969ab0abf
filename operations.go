package contractos

import (
	"context"
	"time"

	"github.com/sohamzycus/contractos/internal/model"
)

// Upload parses raw document bytes, persists the resulting Contract, and
// runs the full extraction chain (spec §6: upload). format must be
// FileFormatDocx or FileFormatPdf.
func (a *App) Upload(ctx context.Context, data []byte, format string, title string, parties []string, effectiveDate *time.Time) (Contract, error) {
	contract, err := a.pipeline.Ingest(ctx, data, model.FileFormat(format), title, parties, effectiveDate)
	if err != nil {
		return Contract{}, err
	}
	return toPublicContract(contract), nil
}

// ListContracts returns every indexed contract (spec §6: list_contracts).
func (a *App) ListContracts(ctx context.Context) ([]Contract, error) {
	contracts, err := a.db.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Contract, len(contracts))
	for i, c := range contracts {
		out[i] = toPublicContract(c)
	}
	return out, nil
}

// GetContract fetches a single contract by ID (spec §6: get_contract).
func (a *App) GetContract(ctx context.Context, documentID DocumentID) (Contract, error) {
	c, err := a.db.GetContract(ctx, model.DocumentID(documentID))
	if err != nil {
		return Contract{}, err
	}
	return toPublicContract(c), nil
}

// GetFacts returns every fact extracted from a document (spec §6: get_facts).
func (a *App) GetFacts(ctx context.Context, documentID DocumentID) ([]Fact, error) {
	facts, err := a.db.GetFacts(ctx, model.DocumentID(documentID), model.FactFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]Fact, len(facts))
	for i, f := range facts {
		out[i] = toPublicFact(f)
	}
	return out, nil
}

// GetClauses returns every classified clause for a document (spec §6: get_clauses).
func (a *App) GetClauses(ctx context.Context, documentID DocumentID) ([]Clause, error) {
	clauses, err := a.db.GetClauses(ctx, model.DocumentID(documentID), nil)
	if err != nil {
		return nil, err
	}
	out := make([]Clause, len(clauses))
	for i, c := range clauses {
		out[i] = toPublicClause(c)
	}
	return out, nil
}

// GetBindings returns every binding resolved for a document (spec §6: get_bindings).
func (a *App) GetBindings(ctx context.Context, documentID DocumentID) ([]Binding, error) {
	bindings, err := a.db.GetBindings(ctx, model.DocumentID(documentID))
	if err != nil {
		return nil, err
	}
	out := make([]Binding, len(bindings))
	for i, b := range bindings {
		out[i] = toPublicBinding(b)
	}
	return out, nil
}

// GetClauseGaps returns every mandatory-or-optional fact slot across a
// document's clauses that went unfilled during classification (spec §6:
// get_clause_gaps). internal/storage tracks slots per clause, not per
// document, so this fetches every clause first and aggregates.
func (a *App) GetClauseGaps(ctx context.Context, documentID DocumentID) ([]ClauseFactSlot, error) {
	clauses, err := a.db.GetClauses(ctx, model.DocumentID(documentID), nil)
	if err != nil {
		return nil, err
	}
	var gaps []ClauseFactSlot
	for _, c := range clauses {
		slots, err := a.db.GetSlots(ctx, c.ClauseID)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			if s.Status == model.SlotStatusMissing {
				gaps = append(gaps, toPublicSlot(s))
			}
		}
	}
	return gaps, nil
}

// GetGraph assembles the document's facts, clauses, bindings, and
// cross-references into a TrustGraph view (spec §6: get_graph). Nodes are
// facts, clauses, and bindings; edges follow the four relations the
// extraction chain actually records: a clause "contains" the facts within
// its span, a binding "binds_to" its source fact, a clause
// "cross_references" another clause it points to, and a filled slot "fills"
// the clause from the fact that satisfied it.
func (a *App) GetGraph(ctx context.Context, documentID DocumentID) (Graph, error) {
	docID := model.DocumentID(documentID)

	facts, err := a.db.GetFacts(ctx, docID, model.FactFilter{})
	if err != nil {
		return Graph{}, err
	}
	clauses, err := a.db.GetClauses(ctx, docID, nil)
	if err != nil {
		return Graph{}, err
	}
	bindings, err := a.db.GetBindings(ctx, docID)
	if err != nil {
		return Graph{}, err
	}
	crossRefs, err := a.db.GetCrossRefs(ctx, docID)
	if err != nil {
		return Graph{}, err
	}

	var g Graph
	for _, f := range facts {
		label := f.Value
		if len(label) > 80 {
			label = label[:80]
		}
		g.Nodes = append(g.Nodes, GraphNode{ID: string(f.FactID), Type: GraphNodeFact, Label: label})
	}

	for _, c := range clauses {
		g.Nodes = append(g.Nodes, GraphNode{ID: string(c.ClauseID), Type: GraphNodeClause, Label: c.Heading})
		for _, fid := range c.ContainedFactIDs {
			g.Edges = append(g.Edges, GraphEdge{From: string(c.ClauseID), To: string(fid), Type: GraphEdgeContains})
		}

		slots, err := a.db.GetSlots(ctx, c.ClauseID)
		if err != nil {
			return Graph{}, err
		}
		for _, s := range slots {
			if s.Status == model.SlotStatusFilled && s.FilledByFactID != nil {
				g.Edges = append(g.Edges, GraphEdge{From: string(*s.FilledByFactID), To: string(c.ClauseID), Type: GraphEdgeFills})
			}
		}
	}

	for _, b := range bindings {
		g.Nodes = append(g.Nodes, GraphNode{ID: string(b.BindingID), Type: GraphNodeBinding, Label: b.Term + " -> " + b.ResolvesTo})
		g.Edges = append(g.Edges, GraphEdge{From: string(b.BindingID), To: string(b.SourceFactID), Type: GraphEdgeBindsTo})
	}

	for _, cr := range crossRefs {
		if cr.TargetClauseID == nil {
			continue
		}
		g.Edges = append(g.Edges, GraphEdge{From: string(cr.SourceClauseID), To: string(*cr.TargetClauseID), Type: GraphEdgeCrossReferences})
	}

	return g, nil
}

// DeleteContract removes a document and every fact/clause/binding/inference
// derived from it, and drops it from the semantic index (spec §6: delete_contract).
func (a *App) DeleteContract(ctx context.Context, documentID DocumentID) error {
	if err := a.index.RemoveDocument(model.DocumentID(documentID)); err != nil {
		return err
	}
	if err := a.db.DeleteContract(ctx, model.DocumentID(documentID)); err != nil {
		return err
	}
	return a.workspaceSvc.PurgeDanglingReferences(ctx)
}

// ClearAll wipes every contract, fact, clause, binding, workspace, and
// session from the store (spec §6: clear_all) — an explicit, destructive
// operation never triggered implicitly.
func (a *App) ClearAll(ctx context.Context) error {
	return a.db.ClearAll(ctx)
}

// Ask runs a query against one or more documents within a workspace (spec
// §6: ask(query_text, document_ids[], session_id?)). When priorSessionID is
// set and resolves to a completed session, that session's query/answer pair
// is prepended as conversation history (spec §4.7 step 5) — the simplest
// resolution of the only open question spec §9 leaves about multi-turn
// continuation, recorded in DESIGN.md.
func (a *App) Ask(ctx context.Context, workspaceID WorkspaceID, queryText string, documentIDs []DocumentID, priorSessionID *SessionID) (AskResult, error) {
	query := model.Query{
		Text:              queryText,
		TargetDocumentIDs: toModelDocumentIDs(documentIDs),
		WorkspaceID:       model.WorkspaceID(workspaceID),
		Scope:             model.QueryScopeSingle,
	}
	if priorSessionID != nil {
		if prior, err := a.workspaceSvc.GetSession(ctx, model.SessionID(*priorSessionID)); err == nil && prior.Result != nil {
			sid := model.SessionID(*priorSessionID)
			query.SessionID = &sid
			query.ConversationHistory = []model.ConversationTurn{{QueryText: prior.QueryText, AnswerText: prior.Result.AnswerText}}
		}
	}

	result, err := a.agentSvc.Answer(ctx, model.WorkspaceID(workspaceID), query)
	if err != nil {
		return AskResult{}, err
	}

	// agent.Answer records its own session but does not return its ID; the
	// most-recent session for this workspace right after Answer returns is
	// reliably the one it just completed (single-writer per workspace is the
	// expected usage pattern — concurrent Ask calls against the same
	// workspace can race this lookup, recorded as a known limitation in DESIGN.md).
	var sessionID SessionID
	if sessions, err := a.workspaceSvc.ListSessions(ctx, model.WorkspaceID(workspaceID), 0, 1); err == nil && len(sessions) > 0 {
		sessionID = SessionID(sessions[0].SessionID)
	}

	return AskResult{QueryResult: toPublicQueryResult(result), SessionID: sessionID}, nil
}

// ListSessions returns a workspace's recorded query sessions, most-recent-first (spec §6: list_sessions).
func (a *App) ListSessions(ctx context.Context, workspaceID WorkspaceID, offset, limit int) ([]ReasoningSession, error) {
	sessions, err := a.workspaceSvc.ListSessions(ctx, model.WorkspaceID(workspaceID), offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ReasoningSession, len(sessions))
	for i, s := range sessions {
		out[i] = toPublicSession(s)
	}
	return out, nil
}

// ClearSessions deletes every session for a workspace (spec §6: clear_sessions).
func (a *App) ClearSessions(ctx context.Context, workspaceID WorkspaceID) error {
	return a.workspaceSvc.ClearSessions(ctx, model.WorkspaceID(workspaceID))
}

// CreateWorkspace opens a new, empty workspace (spec §6: create_workspace).
func (a *App) CreateWorkspace(ctx context.Context, name string) (Workspace, error) {
	w, err := a.workspaceSvc.CreateWorkspace(ctx, name)
	if err != nil {
		return Workspace{}, err
	}
	return toPublicWorkspace(w), nil
}

// AddDocument references a contract from a workspace (spec §6: add_document).
func (a *App) AddDocument(ctx context.Context, workspaceID WorkspaceID, documentID DocumentID) (Workspace, error) {
	w, err := a.workspaceSvc.AddDocument(ctx, model.WorkspaceID(workspaceID), model.DocumentID(documentID))
	if err != nil {
		return Workspace{}, err
	}
	return toPublicWorkspace(w), nil
}

// RemoveDocument drops a contract reference from a workspace without
// touching the underlying contract (spec §6: remove_document).
func (a *App) RemoveDocument(ctx context.Context, workspaceID WorkspaceID, documentID DocumentID) (Workspace, error) {
	w, err := a.workspaceSvc.RemoveDocument(ctx, model.WorkspaceID(workspaceID), model.DocumentID(documentID))
	if err != nil {
		return Workspace{}, err
	}
	return toPublicWorkspace(w), nil
}

// CheckChange compares a caller-computed hash of a document's current file
// bytes against the hash stored at upload time (spec §6: check_change).
// spec §6 names no input beyond workspace_id/document_id, but a hash
// comparison needs something to compare against; resolved here by requiring
// the caller to hash their own copy of the file (internal/integrity.ComputeFileHash
// is the function they should use) rather than having ContractOS re-read a
// file path it was never given — recorded as an Open Question decision in
// DESIGN.md.
func (a *App) CheckChange(ctx context.Context, documentID DocumentID, currentHash string) (CheckChangeResult, error) {
	contract, err := a.db.GetContract(ctx, model.DocumentID(documentID))
	if err != nil {
		return CheckChangeResult{}, err
	}
	return CheckChangeResult{
		CurrentHash: currentHash,
		StoredHash:  contract.FileHash,
		Changed:     currentHash != contract.FileHash,
	}, nil
}

// Discover runs an LM pass over a document's stored facts to surface
// implicit obligations, missing protections, and ambiguous terms, wrapped
// as Inferences rather than Facts (spec §6: discover).
func (a *App) Discover(ctx context.Context, documentID DocumentID) (DiscoveryResult, error) {
	result, err := a.discoverer.Discover(ctx, model.DocumentID(documentID))
	if err != nil {
		return DiscoveryResult{}, err
	}
	inferences := make([]Inference, len(result.Inferences))
	for i, inf := range result.Inferences {
		inferences[i] = toPublicInference(inf)
	}
	return DiscoveryResult{DocumentID: DocumentID(result.DocumentID), Inferences: inferences}, nil
}
