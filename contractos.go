// Package contractos is the public API for embedding ContractOS, the
// deterministic contract intelligence engine: extraction, TrustGraph
// storage, semantic retrieval, and the document agent, behind one operation
// surface (spec §6):
//
//	app, err := contractos.New(
//	    contractos.WithStoragePath("./contractos.db"),
//	    contractos.WithLogger(logger),
//	)
//	if err != nil { ... }
//	defer app.Close(context.Background())
//	contract, err := app.Upload(ctx, data, contractos.FileFormatDocx, "MSA", nil, nil)
//
// Any adapter — REST handler, CLI, IDE plugin — is a thin wrapper over these
// methods; the core never assumes a transport. The import graph enforces a
// strict no-cycle rule: contractos (root) imports internal/*, internal/*
// never imports contractos. Public types (Contract, QueryResult, etc.) are
// standalone structs with no internal imports; the conversion helpers below
// live in this root package because it is the only package that sees both
// sides of the boundary.
package contractos

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/sohamzycus/contractos/internal/agent"
	"github.com/sohamzycus/contractos/internal/binding"
	"github.com/sohamzycus/contractos/internal/classify"
	"github.com/sohamzycus/contractos/internal/config"
	"github.com/sohamzycus/contractos/internal/discovery"
	"github.com/sohamzycus/contractos/internal/embedindex"
	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/pipeline"
	"github.com/sohamzycus/contractos/internal/storage"
	"github.com/sohamzycus/contractos/internal/telemetry"
	"github.com/sohamzycus/contractos/internal/workspace"
	"github.com/sohamzycus/contractos/migrations"
)

const (
	FileFormatDocx = "docx"
	FileFormatPdf  = "pdf"
)

// App is the ContractOS engine lifecycle. Construct with New(), release
// resources with Close(). App has no public fields — use New() options to
// configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	index        *embedindex.Index
	pipeline     *pipeline.Pipeline
	agentSvc     *agent.Agent
	workspaceSvc *workspace.Service
	discoverer   *discovery.Discoverer
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New builds an App: loads configuration, opens the TrustGraph store and
// runs its migrations, and wires the extraction pipeline, semantic index,
// document agent, workspace service, and discovery pass together. It does
// not start any goroutines or accept connections — there is nothing to run;
// every operation is a direct method call.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.storagePath != "" {
		cfg.Storage.Path = o.storagePath
	}
	if o.extractionVersion != "" {
		cfg.Extraction.Version = o.extractionVersion
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("contractos starting", "version", version, "storage_path", cfg.Storage.Path)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	db, err := storage.New(context.Background(), cfg.Storage.Path, cfg.Storage.WAL, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("migrations: %w", err)
	}

	provider, embedder, err := resolveProvider(cfg, o, logger)
	if err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, err
	}

	indexDir := o.indexDir
	if indexDir == "" {
		indexDir = deriveIndexDir(cfg.Storage.Path)
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("index dir: %w", err)
	}
	index, err := embedindex.New(indexDir, embedder, 0)
	if err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("embedding index: %w", err)
	}

	classifyCfg := classify.Config{
		ConfidenceFloor: cfg.Classifier.PatternConfidenceFloor,
		Margin:          cfg.Classifier.PatternMargin,
	}
	classifier, err := classify.New(classifyCfg, provider)
	if err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("classifier: %w", err)
	}

	resolver, err := binding.NewResolver(256, cfg.Binding.MaxChainDepth)
	if err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("binding resolver: %w", err)
	}

	p := pipeline.New(classifier, db, index, cfg.Extraction.Version)
	agentSvc := agent.New(db, index, resolver, provider, logger)
	workspaceSvc := workspace.New(db)
	discoverer := discovery.New(db, provider)

	return &App{
		cfg:          cfg,
		db:           db,
		index:        index,
		pipeline:     p,
		agentSvc:     agentSvc,
		workspaceSvc: workspaceSvc,
		discoverer:   discoverer,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// resolveProvider picks the LM provider (overridden, or built from config)
// and the embedder used by the semantic index, which degrades to nil (lexical
// retrieval only) when no configured provider implements Embedder.
func resolveProvider(cfg config.Config, o resolvedOptions, logger *slog.Logger) (lm.Provider, lm.Embedder, error) {
	var provider lm.Provider
	if o.lmProvider != nil {
		provider = lmProviderAdapter{o.lmProvider}
	} else {
		p, err := lm.New(lm.Config{
			Provider: cfg.LM.Provider,
			APIKey:   cfg.LM.APIKey,
			Model:    cfg.LM.Model,
			LocalURL: cfg.LM.BaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("lm provider: %w", err)
		}
		provider = p
		logger.Info("lm provider selected", "provider", cfg.LM.Provider, "name", p.Name())
	}

	if o.embedder != nil {
		return provider, embedderAdapter{o.embedder}, nil
	}
	if e, ok := provider.(lm.Embedder); ok {
		return provider, e, nil
	}
	logger.Warn("no embedder configured; semantic index will fall back to lexical retrieval")
	return provider, nil, nil
}

func deriveIndexDir(storagePath string) string {
	return storagePath + ".index"
}

// Close releases every resource held by the App (the database connection
// pool and the telemetry exporter). The App must not be used afterward.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// lmProviderAdapter adapts the public LMProvider extension point to
// internal/lm.Provider so external implementations never import internal/lm.
type lmProviderAdapter struct{ p LMProvider }

func (a lmProviderAdapter) Name() string { return a.p.Name() }

func (a lmProviderAdapter) Generate(ctx context.Context, prompt string, opts lm.GenerateOptions) (string, error) {
	return a.p.Generate(ctx, prompt, GenerateOptions{
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
		SystemPrompt: opts.SystemPrompt,
	})
}

// embedderAdapter adapts the public Embedder extension point to internal/lm.Embedder.
type embedderAdapter struct{ e Embedder }

func (a embedderAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return a.e.Embed(ctx, texts)
}

func (a embedderAdapter) Dimensions() int { return a.e.Dimensions() }

// --- conversion helpers: internal/model -> public types ---

func toPublicContract(c model.Contract) Contract {
	return Contract{
		DocumentID:        DocumentID(c.DocumentID),
		Title:             c.Title,
		FileFormat:        string(c.FileFormat),
		FileHash:          c.FileHash,
		Parties:           c.Parties,
		EffectiveDate:     c.EffectiveDate,
		WordCount:         c.WordCount,
		IndexedAt:         c.IndexedAt,
		ExtractionVersion: c.ExtractionVersion,
	}
}

func toPublicFact(f model.Fact) Fact {
	var entityType *string
	if f.EntityType != nil {
		s := string(*f.EntityType)
		entityType = &s
	}
	return Fact{
		FactID:       FactID(f.FactID),
		DocumentID:   DocumentID(f.DocumentID),
		FactType:     string(f.FactType),
		EntityType:   entityType,
		Value:        f.Value,
		TextSpan:     f.Evidence.TextSpan,
		CharStart:    f.Evidence.CharStart,
		CharEnd:      f.Evidence.CharEnd,
		LocationHint: f.Evidence.LocationHint,
	}
}

func toPublicClause(c model.Clause) Clause {
	return Clause{
		ClauseID:                 ClauseID(c.ClauseID),
		DocumentID:               DocumentID(c.DocumentID),
		ClauseType:               string(c.ClauseType),
		Heading:                  c.Heading,
		SectionNumber:            c.SectionNumber,
		FactID:                   FactID(c.FactID),
		ContainedFactIDs:         toPublicFactIDs(c.ContainedFactIDs),
		CrossReferenceIDs:        toPublicReferenceIDs(c.CrossReferenceIDs),
		ClassificationMethod:     string(c.ClassificationMethod),
		ClassificationConfidence: c.ClassificationConfidence,
	}
}

func toPublicFactIDs(ids []model.FactID) []FactID {
	out := make([]FactID, len(ids))
	for i, id := range ids {
		out[i] = FactID(id)
	}
	return out
}

func toPublicReferenceIDs(ids []model.ReferenceID) []ReferenceID {
	out := make([]ReferenceID, len(ids))
	for i, id := range ids {
		out[i] = ReferenceID(id)
	}
	return out
}

func toPublicBinding(b model.Binding) Binding {
	var overriddenBy *BindingID
	if b.IsOverriddenBy != nil {
		id := BindingID(*b.IsOverriddenBy)
		overriddenBy = &id
	}
	return Binding{
		BindingID:      BindingID(b.BindingID),
		DocumentID:     DocumentID(b.DocumentID),
		BindingType:    string(b.BindingType),
		Term:           b.Term,
		ResolvesTo:     b.ResolvesTo,
		SourceFactID:   FactID(b.SourceFactID),
		Scope:          string(b.Scope),
		IsOverriddenBy: overriddenBy,
	}
}

func toPublicSlot(s model.ClauseFactSlot) ClauseFactSlot {
	var filledBy *FactID
	if s.FilledByFactID != nil {
		id := FactID(*s.FilledByFactID)
		filledBy = &id
	}
	return ClauseFactSlot{
		ClauseID:       ClauseID(s.ClauseID),
		FactSpecName:   s.FactSpecName,
		Status:         string(s.Status),
		FilledByFactID: filledBy,
		Required:       s.Required,
	}
}

func toPublicInference(inf model.Inference) Inference {
	return Inference{
		InferenceID:       InferenceID(inf.InferenceID),
		DocumentID:        DocumentID(inf.DocumentID),
		InferenceType:     inf.InferenceType,
		Claim:             inf.Claim,
		SupportingFactIDs: toPublicFactIDs(inf.SupportingFactIDs),
		ReasoningChain:    inf.ReasoningChain,
		Confidence:        inf.Confidence,
		GeneratedBy:       inf.GeneratedBy,
		GeneratedAt:       inf.GeneratedAt,
	}
}

func toPublicProvenance(p model.ProvenanceChain) ProvenanceChain {
	nodes := make([]ProvenanceNode, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = ProvenanceNode{
			NodeType:         string(n.NodeType),
			ReferenceID:      n.ReferenceID,
			Summary:          n.Summary,
			DocumentLocation: n.DocumentLocation,
		}
	}
	return ProvenanceChain{Nodes: nodes, ReasoningSummary: p.ReasoningSummary}
}

func toPublicQueryResult(r model.QueryResult) QueryResult {
	citedBindings := make([]BindingID, len(r.CitedBindingIDs))
	for i, id := range r.CitedBindingIDs {
		citedBindings[i] = BindingID(id)
	}
	return QueryResult{
		AnswerType:       string(r.AnswerType),
		AnswerText:       r.AnswerText,
		Confidence:       r.Confidence,
		CitedFactIDs:     toPublicFactIDs(r.CitedFactIDs),
		CitedBindingIDs:  citedBindings,
		ReasoningSummary: r.ReasoningSummary,
		Provenance:       toPublicProvenance(r.Provenance),
		RetrievalMethod:  string(r.RetrievalMethod),
		Degraded:         r.Degraded,
	}
}

func toPublicSession(s model.ReasoningSession) ReasoningSession {
	var result *QueryResult
	if s.Result != nil {
		r := toPublicQueryResult(*s.Result)
		result = &r
	}
	docIDs := make([]DocumentID, len(s.TargetDocumentIDs))
	for i, id := range s.TargetDocumentIDs {
		docIDs[i] = DocumentID(id)
	}
	return ReasoningSession{
		SessionID:         SessionID(s.SessionID),
		WorkspaceID:       WorkspaceID(s.WorkspaceID),
		QueryText:         s.QueryText,
		Scope:             string(s.Scope),
		TargetDocumentIDs: docIDs,
		Result:            result,
		Status:            string(s.Status),
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		GenerationTimeMs:  s.GenerationTimeMs,
		Stale:             s.Stale,
	}
}

func toPublicWorkspace(w model.Workspace) Workspace {
	docIDs := make([]DocumentID, len(w.IndexedDocumentIDs))
	for i, id := range w.IndexedDocumentIDs {
		docIDs[i] = DocumentID(id)
	}
	return Workspace{WorkspaceID: WorkspaceID(w.WorkspaceID), Name: w.Name, IndexedDocumentIDs: docIDs}
}

func toModelDocumentIDs(ids []DocumentID) []model.DocumentID {
	out := make([]model.DocumentID, len(ids))
	for i, id := range ids {
		out[i] = model.DocumentID(id)
	}
	return out
}
