package model

// BindingType enumerates the kinds of deterministic term mapping the binding
// resolver can emit (spec §3). Bindings never carry a confidence score
// (Invariant B1) — they either exist explicitly in text or they do not.
type BindingType string

const (
	BindingTypeDefinition     BindingType = "definition"
	BindingTypeAssignment     BindingType = "assignment"
	BindingTypeIncorporation  BindingType = "incorporation"
	BindingTypeDelegation     BindingType = "delegation"
	BindingTypeScopeLimitation BindingType = "scope_limitation"
	BindingTypeAlias          BindingType = "alias"
)

// BindingScope controls resolution precedence (Invariant B2).
type BindingScope string

const (
	BindingScopeContract   BindingScope = "contract"
	BindingScopeFamily     BindingScope = "family"
	BindingScopeRepository BindingScope = "repository"
)

// Binding is a deterministic, explicit term->resolution mapping (spec §3).
type Binding struct {
	BindingID      BindingID
	DocumentID     DocumentID
	BindingType    BindingType
	Term           string
	ResolvesTo     string
	SourceFactID   FactID
	Scope          BindingScope
	IsOverriddenBy *BindingID
}

// NewBinding constructs a Binding with scope defaulting to contract per spec §4.4.
func NewBinding(docID DocumentID, bindingType BindingType, term, resolvesTo string, sourceFactID FactID, scope BindingScope) Binding {
	if scope == "" {
		scope = BindingScopeContract
	}
	return Binding{
		BindingID:    newBindingID(),
		DocumentID:   docID,
		BindingType:  bindingType,
		Term:         term,
		ResolvesTo:   resolvesTo,
		SourceFactID: sourceFactID,
		Scope:        scope,
	}
}

// ResolvedTerm is the successful outcome of resolve_term (spec §4.4).
type ResolvedTerm struct {
	Term       string
	ResolvesTo string
	Chain      []BindingID // the bindings walked to reach the final resolution, B -> B' -> B''
}

// Unresolved is the explicit "no binding found" outcome — resolve_term never
// guesses (spec §4.4); it returns this with the nearest candidate terms for display.
type Unresolved struct {
	Term       string
	Candidates []string
}
