// Package binding implements the binding resolver (spec.md §4.4, C4):
// deterministic, explicit term->resolution mappings, with cycle-bounded
// chain resolution memoized in an LRU cache for the "term used 1000x in
// text" boundary case (spec.md §8).
package binding

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sohamzycus/contractos/internal/extract"
	"github.com/sohamzycus/contractos/internal/model"
)

const defaultMaxChainDepth = 8

// cacheKey buckets at_position so nearby lookups of the same term share a
// cache entry without requiring exact positional equality.
type cacheKey struct {
	documentID     model.DocumentID
	normalizedTerm string
	positionBucket int
}

// Resolver holds the chain-resolution cache; safe for concurrent use since
// *lru.Cache guards its own state.
type Resolver struct {
	cache         *lru.Cache[cacheKey, model.ResolvedTerm]
	maxChainDepth int
}

// NewResolver builds a Resolver with the given LRU cache size and maximum
// binding-chain depth (binding.max_chain_depth in spec.md §6's config).
func NewResolver(cacheSize, maxChainDepth int) (*Resolver, error) {
	if maxChainDepth <= 0 {
		maxChainDepth = defaultMaxChainDepth
	}
	cache, err := lru.New[cacheKey, model.ResolvedTerm](cacheSize)
	if err != nil {
		return nil, model.NewError(model.KindInput, "binding: construct lru cache", err)
	}
	return &Resolver{cache: cache, maxChainDepth: maxChainDepth}, nil
}

// ResolveBindings implements spec.md §4.4's algorithm: definition-section
// spans are walked first, then all other clause bodies; each alias/definition
// candidate becomes a Binding, deduplicated by (normalized term, document_id).
func ResolveBindings(docID model.DocumentID, facts []model.Fact, aliases []extract.AliasCandidate) []model.Binding {
	factByID := make(map[model.FactID]model.Fact, len(facts))
	for _, f := range facts {
		factByID[f.FactID] = f
	}

	var definitionSpans []model.Fact
	for _, f := range facts {
		if f.FactType == model.FactTypeClause && isDefinitionHeading(f.Value) {
			definitionSpans = append(definitionSpans, f)
		}
	}
	inDefinitionSection := func(a extract.AliasCandidate) bool {
		src, ok := factByID[a.SourceFactID]
		if !ok {
			return false
		}
		for _, span := range definitionSpans {
			if span.Contains(src) {
				return true
			}
		}
		return false
	}

	ordered := append([]extract.AliasCandidate{}, aliases...)
	sort.SliceStable(ordered, func(i, j int) bool {
		iDef, jDef := inDefinitionSection(ordered[i]), inDefinitionSection(ordered[j])
		if iDef != jDef {
			return iDef
		}
		return factByID[ordered[i].SourceFactID].Evidence.CharStart < factByID[ordered[j].SourceFactID].Evidence.CharStart
	})

	currentIdx := map[string]int{}
	var bindings []model.Binding
	for _, a := range ordered {
		term := normalizeTerm(a.Alias)
		bindingType := model.BindingTypeAlias
		if inDefinitionSection(a) {
			bindingType = model.BindingTypeDefinition
		}
		b := model.NewBinding(docID, bindingType, a.Alias, a.Surface, a.SourceFactID, model.BindingScopeContract)

		idx, exists := currentIdx[term]
		if !exists {
			bindings = append(bindings, b)
			currentIdx[term] = len(bindings) - 1
			continue
		}

		srcFact := factByID[a.SourceFactID]
		if hasSupersedingPhrase(srcFact.Evidence.TextSpan) {
			newID := b.BindingID
			bindings[idx].IsOverriddenBy = &newID
			bindings = append(bindings, b)
			currentIdx[term] = len(bindings) - 1
		} else {
			// Contracts prefer the earlier definition by default; the later
			// one is recorded for audit but never becomes the active binding.
			earlierID := bindings[idx].BindingID
			b.IsOverriddenBy = &earlierID
			bindings = append(bindings, b)
		}
	}
	return bindings
}

var definitionHeadingWords = []string{"definition", "defined terms", "defined term"}

func isDefinitionHeading(headingText string) bool {
	lower := strings.ToLower(headingText)
	for _, w := range definitionHeadingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var supersedingPhrases = []string{"amend", "supersede", "replaces the definition", "in lieu of", "amended and restated"}

func hasSupersedingPhrase(context string) bool {
	lower := strings.ToLower(context)
	for _, p := range supersedingPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(term), `"'`))
}
