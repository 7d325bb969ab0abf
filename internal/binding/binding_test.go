package binding_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sohamzycus/contractos/internal/binding"
	"github.com/sohamzycus/contractos/internal/extract"
	"github.com/sohamzycus/contractos/internal/model"
)

func buildAliasFact(t *testing.T, docID model.DocumentID, text string, start int) model.Fact {
	t.Helper()
	f, err := model.NewFact(docID, model.FactTypeClauseText, nil, text, model.Evidence{
		TextSpan: text, CharStart: start, CharEnd: start + len(text),
	}, text)
	require.NoError(t, err)
	return f
}

func TestResolveBindings_EarlierDefinitionWinsWithoutSupersession(t *testing.T) {
	docID := model.NewDocumentID()
	first := buildAliasFact(t, docID, `Supplier means Acme Corp.`, 0)
	second := buildAliasFact(t, docID, `Supplier means Beta Inc.`, 100)

	facts := []model.Fact{first, second}
	aliases := []extract.AliasCandidate{
		{SourceFactID: first.FactID, Surface: "Acme Corp", Alias: "Supplier"},
		{SourceFactID: second.FactID, Surface: "Beta Inc", Alias: "Supplier"},
	}

	bindings := binding.ResolveBindings(docID, facts, aliases)
	require.Len(t, bindings, 2)

	var active *model.Binding
	for i := range bindings {
		if bindings[i].IsOverriddenBy == nil {
			active = &bindings[i]
		}
	}
	require.NotNil(t, active)
	require.Equal(t, "Acme Corp", active.ResolvesTo)
}

func TestResolveBindings_SupersedingPhrasePromotesLaterDefinition(t *testing.T) {
	docID := model.NewDocumentID()
	first := buildAliasFact(t, docID, `Supplier means Acme Corp.`, 0)
	second := buildAliasFact(t, docID, `This amends the prior definition: Supplier means Beta Inc.`, 100)

	facts := []model.Fact{first, second}
	aliases := []extract.AliasCandidate{
		{SourceFactID: first.FactID, Surface: "Acme Corp", Alias: "Supplier"},
		{SourceFactID: second.FactID, Surface: "Beta Inc", Alias: "Supplier"},
	}

	bindings := binding.ResolveBindings(docID, facts, aliases)
	require.Len(t, bindings, 2)
	require.NotNil(t, bindings[0].IsOverriddenBy)
	require.Equal(t, bindings[1].BindingID, *bindings[0].IsOverriddenBy)
}

func TestResolveTerm_ResolvesDirectBinding(t *testing.T) {
	docID := model.NewDocumentID()
	b := model.NewBinding(docID, model.BindingTypeDefinition, "Supplier", "Acme Corp", model.FactID("f1"), model.BindingScopeContract)

	r, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	resolved, unresolved := r.ResolveTerm([]model.Binding{b}, docID, "supplier", nil)
	require.Nil(t, unresolved)
	require.Equal(t, "Acme Corp", resolved.ResolvesTo)
}

func TestResolveTerm_FollowsChain(t *testing.T) {
	docID := model.NewDocumentID()
	b1 := model.NewBinding(docID, model.BindingTypeDefinition, "Vendor", "Supplier", model.FactID("f1"), model.BindingScopeContract)
	b2 := model.NewBinding(docID, model.BindingTypeDefinition, "Supplier", "Acme Corp", model.FactID("f2"), model.BindingScopeContract)

	r, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	resolved, unresolved := r.ResolveTerm([]model.Binding{b1, b2}, docID, "Vendor", nil)
	require.Nil(t, unresolved)
	require.Equal(t, "Acme Corp", resolved.ResolvesTo)
	require.Len(t, resolved.Chain, 2)
}

func TestResolveTerm_DetectsCycle(t *testing.T) {
	docID := model.NewDocumentID()
	b1 := model.NewBinding(docID, model.BindingTypeDefinition, "A", "B", model.FactID("f1"), model.BindingScopeContract)
	b2 := model.NewBinding(docID, model.BindingTypeDefinition, "B", "A", model.FactID("f2"), model.BindingScopeContract)

	r, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	_, unresolved := r.ResolveTerm([]model.Binding{b1, b2}, docID, "A", nil)
	require.NotNil(t, unresolved)
}

func TestResolveTerm_UnresolvedReturnsNearestCandidates(t *testing.T) {
	docID := model.NewDocumentID()
	b := model.NewBinding(docID, model.BindingTypeDefinition, "Supplier Entity", "Acme Corp", model.FactID("f1"), model.BindingScopeContract)

	r, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	_, unresolved := r.ResolveTerm([]model.Binding{b}, docID, "Supplier", nil)
	require.NotNil(t, unresolved)
	require.Contains(t, unresolved.Candidates, "supplier entity")
}

func TestResolveTerm_CachesRepeatedLookups(t *testing.T) {
	docID := model.NewDocumentID()
	b := model.NewBinding(docID, model.BindingTypeDefinition, "Supplier", "Acme Corp", model.FactID("f1"), model.BindingScopeContract)

	r, err := binding.NewResolver(64, 8)
	require.NoError(t, err)

	first, _ := r.ResolveTerm([]model.Binding{b}, docID, "Supplier", nil)
	// Second call omits the binding slice's relevance entirely (cache hit
	// should not need to re-scan); passing nil proves the cache served it.
	second, unresolved := r.ResolveTerm(nil, docID, "Supplier", nil)
	require.Nil(t, unresolved)
	require.Equal(t, first, second)
}
