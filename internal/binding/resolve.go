package binding

import (
	"sort"

	"github.com/sohamzycus/contractos/internal/model"
)

const positionBucketSize = 500

// ResolveTerm implements spec.md §4.4's resolve_term(term, document_id,
// at_position?) -> ResolvedTerm | Unresolved. Case-insensitive, follows
// chains (B -> B' -> B''), detects cycles, and never guesses: a term with no
// matching Binding returns Unresolved with nearest candidates for display.
func (r *Resolver) ResolveTerm(bindings []model.Binding, docID model.DocumentID, term string, atPosition *int) (model.ResolvedTerm, *model.Unresolved) {
	normalized := normalizeTerm(term)
	key := cacheKey{documentID: docID, normalizedTerm: normalized, positionBucket: bucketOf(atPosition)}
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	active := activeBindingsByTerm(bindings)
	start, ok := active[normalized]
	if !ok {
		return model.ResolvedTerm{}, &model.Unresolved{Term: term, Candidates: nearestCandidates(active, normalized)}
	}

	visited := map[model.BindingID]bool{}
	var chain []model.BindingID
	current := start
	for {
		if visited[current.BindingID] {
			return model.ResolvedTerm{}, &model.Unresolved{Term: term, Candidates: nil}
		}
		visited[current.BindingID] = true
		chain = append(chain, current.BindingID)
		if len(chain) > r.maxChainDepth {
			return model.ResolvedTerm{}, &model.Unresolved{Term: term, Candidates: nil}
		}
		next, ok := active[normalizeTerm(current.ResolvesTo)]
		if !ok || next.BindingID == current.BindingID {
			break
		}
		current = next
	}

	resolved := model.ResolvedTerm{Term: term, ResolvesTo: current.ResolvesTo, Chain: chain}
	r.cache.Add(key, resolved)
	return resolved, nil
}

// activeBindingsByTerm indexes the non-overridden binding for each
// normalized term; overridden bindings never participate in resolution.
func activeBindingsByTerm(bindings []model.Binding) map[string]model.Binding {
	overridden := map[model.BindingID]bool{}
	for _, b := range bindings {
		if b.IsOverriddenBy != nil {
			overridden[b.BindingID] = true
		}
	}
	out := make(map[string]model.Binding, len(bindings))
	for _, b := range bindings {
		if overridden[b.BindingID] {
			continue
		}
		out[normalizeTerm(b.Term)] = b
	}
	return out
}

// nearestCandidates returns up to 3 terms that share a prefix or substring
// with the unresolved term, sorted for deterministic display.
func nearestCandidates(active map[string]model.Binding, normalized string) []string {
	var candidates []string
	for term := range active {
		if term == normalized {
			continue
		}
		if containsEither(term, normalized) {
			candidates = append(candidates, term)
		}
	}
	sort.Strings(candidates)
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	return candidates
}

func containsEither(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	for i := 0; i+len(shorter) <= len(longer); i++ {
		if longer[i:i+len(shorter)] == shorter {
			return true
		}
	}
	return false
}

func bucketOf(atPosition *int) int {
	if atPosition == nil {
		return -1
	}
	return *atPosition / positionBucketSize
}
