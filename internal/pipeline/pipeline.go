// Package pipeline composes the extraction stages (spec.md §4: docsource →
// extract → classify → binding → storage → embedindex) into the single
// write path a contract travels from raw bytes to a queryable TrustGraph
// entry. No stage here does its own work — this package only sequences
// calls into internal/docsource, internal/extract, internal/classify,
// internal/binding, internal/storage, and internal/embedindex.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sohamzycus/contractos/internal/binding"
	"github.com/sohamzycus/contractos/internal/classify"
	"github.com/sohamzycus/contractos/internal/docsource"
	"github.com/sohamzycus/contractos/internal/embedindex"
	"github.com/sohamzycus/contractos/internal/extract"
	"github.com/sohamzycus/contractos/internal/model"
	"github.com/sohamzycus/contractos/internal/storage"
)

// Pipeline owns the components that turn raw document bytes into a
// persisted, indexed Contract.
type Pipeline struct {
	sources           map[docsource.Format]docsource.Source
	classifier        *classify.Classifier
	db                *storage.DB
	index             *embedindex.Index
	extractionVersion extract.ExtractionVersion
}

// New builds a Pipeline wired to the given stage components. Binding
// resolution (internal/binding.ResolveBindings) is a pure function of the
// extracted facts and aliases — it needs no resolver instance here; the
// query-time *binding.Resolver (chain-resolution cache) belongs to
// internal/agent instead.
func New(classifier *classify.Classifier, db *storage.DB, index *embedindex.Index, extractionVersion string) *Pipeline {
	return &Pipeline{
		sources: map[docsource.Format]docsource.Source{
			docsource.FormatDocx: docsource.DocxSource{},
			docsource.FormatPdf:  docsource.PdfSource{},
			docsource.FormatText: docsource.PlainTextSource{},
		},
		classifier:        classifier,
		db:                db,
		index:             index,
		extractionVersion: extract.ExtractionVersion(extractionVersion),
	}
}

func docsourceFormat(ff model.FileFormat) (docsource.Format, bool) {
	switch ff {
	case model.FileFormatDocx:
		return docsource.FormatDocx, true
	case model.FileFormatPdf:
		return docsource.FormatPdf, true
	default:
		return "", false
	}
}

// Ingest parses raw document bytes, stores the resulting Contract, and runs
// the full extraction chain against it. The Contract row is committed even
// if a later extraction stage fails, so a failed run is always retriable
// against a document that already exists (spec.md §4.2's re-extraction model).
func (p *Pipeline) Ingest(ctx context.Context, data []byte, format model.FileFormat, title string, parties []string, effectiveDate *time.Time) (model.Contract, error) {
	dsFormat, ok := docsourceFormat(format)
	if !ok {
		return model.Contract{}, model.NewError(model.KindInput, "pipeline: unsupported format "+string(format), nil)
	}
	src := p.sources[dsFormat]

	doc, err := src.Parse(data, dsFormat)
	if err != nil {
		return model.Contract{}, err
	}

	sum := sha256.Sum256(data)
	contract, err := model.NewContract(title, format, hex.EncodeToString(sum[:]), parties, effectiveDate,
		len(strings.Fields(doc.Text)), string(p.extractionVersion), time.Now().UTC())
	if err != nil {
		return model.Contract{}, err
	}
	if err := p.db.InsertContract(ctx, contract); err != nil {
		return model.Contract{}, err
	}

	if err := p.Extract(ctx, contract.DocumentID, doc); err != nil {
		return contract, err
	}
	return contract, nil
}

// Extract runs the pattern extractor, classifier, binding resolver, and
// cross-reference finalization against an already-parsed document, then
// persists everything as one ExtractionResult and indexes it for retrieval.
// Re-running Extract for a document that already has facts is the
// re-extraction path (spec.md §4.2 Non-goals: callers are responsible for
// clearing prior facts first — this package does not do it implicitly).
func (p *Pipeline) Extract(ctx context.Context, docID model.DocumentID, doc model.ParsedDocument) error {
	extracted, err := extract.Extract(doc, docID, p.extractionVersion)
	if err != nil {
		return err
	}

	clauses, slots, err := p.classifyClauses(ctx, docID, extracted.Facts)
	if err != nil {
		return err
	}

	crossRefs := extract.ResolveCrossReferences(clauses, extracted.CrossRefs)
	attachCrossReferenceIDs(clauses, crossRefs)
	bindings := binding.ResolveBindings(docID, extracted.Facts, extracted.Aliases)

	var aliasBindings []model.Binding
	for _, b := range bindings {
		if b.BindingType == model.BindingTypeAlias {
			aliasBindings = append(aliasBindings, b)
		}
	}

	result := model.ExtractionResult{
		Facts:     extracted.Facts,
		Clauses:   clauses,
		Bindings:  bindings,
		CrossRefs: crossRefs,
		Aliases:   aliasBindings,
		Slots:     slots,
	}
	if err := p.db.InsertExtractionResult(ctx, result); err != nil {
		return err
	}

	if p.index == nil {
		return nil
	}
	chunks := embedindex.BuildChunks(docID, result)
	if err := p.index.IndexDocumentWithRetry(ctx, docID, chunks); err != nil && !p.index.IsDegraded(docID) {
		return err
	}
	return nil
}

// attachCrossReferenceIDs back-fills each clause's CrossReferenceIDs now that
// cross-references have been resolved against the clause set (clauses are
// built, and persisted, before extract.ResolveCrossReferences can attribute a
// reference to its source clause). Mutates clauses in place.
func attachCrossReferenceIDs(clauses []model.Clause, crossRefs []model.CrossReference) {
	bySource := make(map[model.ClauseID][]model.ReferenceID, len(crossRefs))
	for _, cr := range crossRefs {
		bySource[cr.SourceClauseID] = append(bySource[cr.SourceClauseID], cr.ReferenceID)
	}
	for i := range clauses {
		clauses[i].CrossReferenceIDs = bySource[clauses[i].ClauseID]
	}
}

// classifyClauses builds one model.Clause per clause-span fact: it looks up
// the fact's originating heading text, classifies it, gathers the facts its
// span contains, and fills the clause type's fact slots.
func (p *Pipeline) classifyClauses(ctx context.Context, docID model.DocumentID, facts []model.Fact) ([]model.Clause, []model.ClauseFactSlot, error) {
	var headingText string
	headingByOffset := make(map[int]string, len(facts))
	for _, f := range facts {
		if f.FactType == model.FactTypeHeading {
			headingByOffset[f.Evidence.CharStart] = f.Value
		}
	}

	var clauses []model.Clause
	var slots []model.ClauseFactSlot
	for _, clauseFact := range facts {
		if clauseFact.FactType != model.FactTypeClause {
			continue
		}
		headingText = headingByOffset[clauseFact.Evidence.CharStart]
		if headingText == "" {
			headingText = clauseFact.Value
		}

		var contained []model.Fact
		for _, f := range facts {
			if f.FactID == clauseFact.FactID {
				continue
			}
			if clauseFact.Contains(f) {
				contained = append(contained, f)
			}
		}

		clauseType, method, confidence, err := p.classifier.Classify(ctx, headingText, clauseFact.Evidence.TextSpan)
		if err != nil {
			return nil, nil, err
		}

		clause, err := model.NewClause(docID, clauseFact, clauseType, headingText, nil, contained, nil, method, confidence)
		if err != nil {
			return nil, nil, err
		}
		clauses = append(clauses, clause)

		spec := p.classifier.SpecFor(clauseType)
		slots = append(slots, classify.FillSlots(clause.ClauseID, spec, contained)...)
	}
	return clauses, slots, nil
}
