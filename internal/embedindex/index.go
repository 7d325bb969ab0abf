// Package embedindex implements the per-document embedding index (spec.md
// §4.6, C6): chunk construction from an ExtractionResult, batched embedding,
// L2-normalized inner-product search, and a deterministic lexical fallback
// for when no embedding model is configured or indexing repeatedly fails.
package embedindex

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	json "github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"

	"github.com/sohamzycus/contractos/internal/lm"
	"github.com/sohamzycus/contractos/internal/model"
)

const (
	defaultMaxIndexRetries = 3
	sidecarSuffix          = ".chunks.json"
	vecSuffix              = ".vec"
)

// sidecar is the JSON metadata file stored alongside a document's binary
// vector file, one entry per vector in the same order.
type sidecar struct {
	ModelID string        `json:"model_id"`
	Chunks  []model.Chunk `json:"chunks"`
}

// Index is a filesystem-backed embedding index rooted at dir. One (.vec,
// .chunks.json) pair is written per document. Degraded documents (embedding
// failed past the retry budget) are tracked in memory only — model.Contract
// carries no such field, so degraded status does not survive a restart and a
// document degraded this way simply gets re-attempted on next indexing.
type Index struct {
	dir      string
	embedder lm.Embedder
	cache    *lru.Cache[string, []float32]

	mu       sync.RWMutex
	degraded map[model.DocumentID]bool
}

// New opens (without requiring it to yet exist) an embedding index rooted at
// dir. embedder may be nil — when nil, search always uses the lexical
// fallback (spec.md §4.6: "the system remains usable in tests").
func New(dir string, embedder lm.Embedder, queryCacheSize int) (*Index, error) {
	if queryCacheSize <= 0 {
		queryCacheSize = 256
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.NewError(model.KindIndex, "embedindex: create index directory", err)
	}
	cache, err := lru.New[string, []float32](queryCacheSize)
	if err != nil {
		return nil, model.NewError(model.KindIndex, "embedindex: construct query cache", err)
	}
	return &Index{dir: dir, embedder: embedder, cache: cache, degraded: map[model.DocumentID]bool{}}, nil
}

func (idx *Index) vecPath(docID model.DocumentID) string {
	return filepath.Join(idx.dir, string(docID)+vecSuffix)
}

func (idx *Index) sidecarPath(docID model.DocumentID) string {
	return filepath.Join(idx.dir, string(docID)+sidecarSuffix)
}

// BuildChunks implements spec.md §4.6's chunk construction rules over an
// already-assembled ExtractionResult plus the facts' containing clauses.
func BuildChunks(docID model.DocumentID, result model.ExtractionResult) []model.Chunk {
	var chunks []model.Chunk

	factByID := make(map[model.FactID]model.Fact, len(result.Facts))
	for _, f := range result.Facts {
		factByID[f.FactID] = f
	}

	for _, f := range result.Facts {
		switch f.FactType {
		case model.FactTypeClauseText:
			chunks = append(chunks, model.Chunk{
				ChunkID: newChunkID(), DocumentID: docID, ChunkType: model.ChunkTypeFact,
				SourceFactID: f.FactID, Text: f.Value,
			})
		case model.FactTypeEntity:
			if len(strings.Fields(f.Value)) >= 3 {
				chunks = append(chunks, model.Chunk{
					ChunkID: newChunkID(), DocumentID: docID, ChunkType: model.ChunkTypeFact,
					SourceFactID: f.FactID, Text: f.Value,
				})
			}
		}
	}

	for _, c := range result.Clauses {
		heading := factByID[c.FactID]
		body := strings.TrimSpace(strings.TrimPrefix(heading.Evidence.TextSpan, c.Heading))
		summary := c.Heading + "\n" + body
		if len(summary) > 200 {
			summary = summary[:200]
		}
		chunks = append(chunks, model.Chunk{
			ChunkID: newChunkID(), DocumentID: docID, ChunkType: model.ChunkTypeClause,
			SourceFactID: c.FactID, Text: summary,
		})
	}

	for _, b := range result.Bindings {
		chunks = append(chunks, model.Chunk{
			ChunkID: newChunkID(), DocumentID: docID, ChunkType: model.ChunkTypeBinding,
			SourceFactID: b.SourceFactID, Text: b.Term + " " + b.ResolvesTo,
		})
	}

	return chunks
}

func newChunkID() model.ChunkID {
	return model.ChunkID(uuid.NewString())
}

// IndexDocument embeds every chunk (batched in one call to the provider),
// L2-normalizes each vector, and writes the vector file and then its
// sidecar (two separate writes, not one atomic replace). On
// embedding failure it is the caller's responsibility to retry up to
// defaultMaxIndexRetries times via IndexDocument; after the budget is
// exhausted the caller should call MarkDegraded so search() falls back to
// lexical mode for this document (spec.md §4.6's failure semantics).
func (idx *Index) IndexDocument(ctx context.Context, docID model.DocumentID, chunks []model.Chunk) error {
	if idx.embedder == nil {
		return model.NewError(model.KindIndex, "embedindex: no embedding model configured", nil)
	}
	if len(chunks) == 0 {
		return idx.writeIndex(docID, sidecar{ModelID: idx.modelID(), Chunks: nil}, nil)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return model.NewRetryableError(model.KindIndex, "embedindex: embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return model.NewError(model.KindIndex, "embedindex: embedder returned mismatched vector count", nil)
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = l2Normalize(v)
	}

	idx.mu.Lock()
	delete(idx.degraded, docID)
	idx.mu.Unlock()

	return idx.writeIndex(docID, sidecar{ModelID: idx.modelID(), Chunks: chunks}, normalized)
}

func (idx *Index) modelID() string {
	if idx.embedder == nil {
		return ""
	}
	type named interface{ Name() string }
	if n, ok := idx.embedder.(named); ok {
		return n.Name()
	}
	return "embedder"
}

func (idx *Index) writeIndex(docID model.DocumentID, sc sidecar, vectors [][]float32) error {
	dim := 0
	if idx.embedder != nil {
		dim = idx.embedder.Dimensions()
	}
	if err := writeVecFile(idx.vecPath(docID), vecFile{Dim: uint32(dim), Count: uint32(len(vectors)), ModelID: sc.ModelID, Vectors: vectors}); err != nil {
		return model.NewRetryableError(model.KindIndex, "embedindex: write vector file", err)
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return model.NewError(model.KindIndex, "embedindex: marshal sidecar", err)
	}
	if err := os.WriteFile(idx.sidecarPath(docID), data, 0o644); err != nil {
		return model.NewRetryableError(model.KindIndex, "embedindex: write sidecar", err)
	}
	return nil
}

// MarkDegraded records that docID exhausted its embedding retry budget;
// subsequent Search calls for this document use the lexical fallback.
func (idx *Index) MarkDegraded(docID model.DocumentID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.degraded[docID] = true
}

// IsDegraded reports whether docID is currently using the lexical fallback.
func (idx *Index) IsDegraded(docID model.DocumentID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.degraded[docID]
}

// RemoveDocument deletes a document's vector file and sidecar, if present.
func (idx *Index) RemoveDocument(docID model.DocumentID) error {
	idx.mu.Lock()
	delete(idx.degraded, docID)
	idx.mu.Unlock()

	for _, p := range []string{idx.vecPath(docID), idx.sidecarPath(docID)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return model.NewRetryableError(model.KindIndex, "embedindex: remove index files", err)
		}
	}
	return nil
}

// RetrievalMethod reports which path a Search call actually used, for
// ReasoningSession's retrieval_method field (spec.md §4.7 step 9).
type RetrievalMethod string

const (
	RetrievalSemantic RetrievalMethod = "semantic"
	RetrievalLexical  RetrievalMethod = "lexical_fallback"
)

// Search implements spec.md §4.6's search contract across one or more target
// documents, merging hits and re-sorting by descending score. When the
// embedder is nil, or a given document has no on-disk semantic index, or is
// marked degraded, that document's hits come from the lexical fallback
// instead — the two retrieval methods never mix within a single document,
// but different target documents in the same call may use different methods.
// docSearchResult is one document's contribution to a Search call, produced
// independently of every other document (its own file read, its own
// in-memory scan) and merged after every goroutine completes.
type docSearchResult struct {
	hits        []model.SearchHit
	usedLexical bool
}

// Search retrieves chunks across documentIDs. Each document's vectors live
// in their own file and are scored independently, so per-document work fans
// out across an errgroup bounded to GOMAXPROCS — the same bounded-join idiom
// internal/agent uses for its own multi-document reads — rather than
// scanning documents one at a time.
func (idx *Index) Search(ctx context.Context, queryText string, documentIDs []model.DocumentID, topK int, chunkTypeFilter *model.ChunkType) ([]model.SearchHit, RetrievalMethod, error) {
	if topK <= 0 {
		topK = 30
	}

	results := make([]docSearchResult, len(documentIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, docID := range documentIDs {
		i, docID := i, docID
		g.Go(func() error {
			r, err := idx.searchDocument(gctx, docID, queryText, chunkTypeFilter, topK)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	var hits []model.SearchHit
	usedLexical := false
	for _, r := range results {
		hits = append(hits, r.hits...)
		usedLexical = usedLexical || r.usedLexical
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	method := RetrievalSemantic
	if usedLexical {
		method = RetrievalLexical
	}
	return hits, method, nil
}

// searchDocument scores one document against queryText, falling back to the
// lexical scan when no embedder is configured, the document has degraded,
// or its stored vectors were built against a different embedding model.
func (idx *Index) searchDocument(ctx context.Context, docID model.DocumentID, queryText string, chunkTypeFilter *model.ChunkType, topK int) (docSearchResult, error) {
	sc, vectors, ok := idx.loadDocument(docID)
	if !ok || idx.embedder == nil || idx.IsDegraded(docID) || sc.ModelID != idx.modelID() {
		docHits, err := lexicalSearch(queryText, docID, sc.Chunks, chunkTypeFilter, topK)
		if err != nil {
			return docSearchResult{}, err
		}
		return docSearchResult{hits: docHits, usedLexical: true}, nil
	}

	queryVec, err := idx.embedQuery(ctx, queryText)
	if err != nil {
		docHits, lexErr := lexicalSearch(queryText, docID, sc.Chunks, chunkTypeFilter, topK)
		if lexErr != nil {
			return docSearchResult{}, lexErr
		}
		return docSearchResult{hits: docHits, usedLexical: true}, nil
	}

	var hits []model.SearchHit
	for i, chunk := range sc.Chunks {
		if chunkTypeFilter != nil && chunk.ChunkType != *chunkTypeFilter {
			continue
		}
		score := dot(queryVec, vectors[i])
		hits = append(hits, model.SearchHit{ChunkID: chunk.ChunkID, SourceFactID: chunk.SourceFactID, DocumentID: docID, Score: score})
	}
	return docSearchResult{hits: hits}, nil
}

func (idx *Index) loadDocument(docID model.DocumentID) (sidecar, [][]float32, bool) {
	data, err := os.ReadFile(idx.sidecarPath(docID))
	if err != nil {
		return sidecar{}, nil, false
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return sidecar{}, nil, false
	}
	vf, err := readVecFile(idx.vecPath(docID))
	if err != nil {
		return sc, nil, false
	}
	return sc, vf.Vectors, true
}

func (idx *Index) embedQuery(ctx context.Context, queryText string) ([]float32, error) {
	if cached, ok := idx.cache.Get(queryText); ok {
		return cached, nil
	}
	vecs, err := idx.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, model.NewRetryableError(model.KindIndex, "embedindex: embed query", err)
	}
	if len(vecs) != 1 {
		return nil, model.NewError(model.KindIndex, "embedindex: embedder returned unexpected vector count for query", nil)
	}
	normalized := l2Normalize(vecs[0])
	idx.cache.Add(queryText, normalized)
	return normalized, nil
}

func l2Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// IndexDocumentWithRetry implements spec.md §4.6's failure semantics: retry
// IndexDocument up to defaultMaxIndexRetries times, and on exhaustion mark
// the document degraded rather than rejecting the contract.
func (idx *Index) IndexDocumentWithRetry(ctx context.Context, docID model.DocumentID, chunks []model.Chunk) error {
	var lastErr error
	for attempt := 0; attempt < defaultMaxIndexRetries; attempt++ {
		if err := idx.IndexDocument(ctx, docID, chunks); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	idx.MarkDegraded(docID)
	// Keep the chunks on disk so the lexical fallback has something to scan.
	// The empty ModelID never matches modelID(), so the document stays
	// lexical even after the in-memory degraded flag is lost.
	if err := idx.writeIndex(docID, sidecar{Chunks: chunks}, nil); err != nil {
		return err
	}
	return model.NewError(model.KindIndex, "embedindex: indexing degraded after retry budget exhausted", lastErr).WithPartial(docID)
}
