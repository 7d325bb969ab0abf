// Package extract implements the pattern extractor (spec.md §4.2, C2): a
// pure function from a parsed document to the fact/cross-reference-candidate
// set the classifier and binding resolver build on. Clause classification
// (C3) and binding resolution (C4) run as later pipeline stages against this
// package's output — ExtractionResult.Clauses/Bindings are assembled there,
// not here, since both need entity IDs this package has no business minting.
package extract

import (
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sohamzycus/contractos/internal/model"
)

// ExtractionVersion tags the pattern/rule set that produced a Result; bumping
// it forces re-extraction of every indexed document (spec.md §4.2).
type ExtractionVersion string

// CrossRefCandidate is a detected cross-reference occurrence whose
// SourceClauseID cannot be known until the classifier assigns clause IDs;
// ResolveCrossReferences finalizes these into model.CrossReference once
// clauses exist.
type CrossRefCandidate struct {
	SourceFactID model.FactID
	TargetRaw    string
	RefType      model.ReferenceType
	Effect       model.ReferenceEffect
	Context      string
}

// AliasCandidate is a detected "X, hereinafter referred to as Y"-style
// surface form; internal/binding consumes these to emit alias Bindings.
type AliasCandidate struct {
	SourceFactID model.FactID
	Surface      string
	Alias        string
}

// Result is this package's pure-function output. A later pipeline stage
// combines it with classify's Clauses and binding's Bindings to build the
// full model.ExtractionResult persisted by internal/storage.
type Result struct {
	Facts     []model.Fact
	CrossRefs []CrossRefCandidate
	Aliases   []AliasCandidate
}

// paragraphResult is one paragraph's worth of extractParagraphEntities
// output, collected per-goroutine and merged back in document order.
type paragraphResult struct {
	facts     []model.Fact
	crossRefs []CrossRefCandidate
	aliases   []AliasCandidate
}

// Extract is the pure function of spec.md §4.2: same ParsedDocument and
// ExtractionVersion always produce the same fact content in the same order
// (fact IDs excepted — they are opaque identity, minted fresh every run).
// Per-paragraph pattern work fans out across an errgroup sized to
// GOMAXPROCS, then results are merged by sorting on (char_start, fact_type)
// before sequential work continues, so parallel dispatch never leaks into
// nondeterministic output ordering.
func Extract(doc model.ParsedDocument, docID model.DocumentID, version ExtractionVersion) (Result, error) {
	headingFacts, clauseSpanFacts, err := extractHeadingsAndSpans(doc, docID)
	if err != nil {
		return Result{}, err
	}

	outputs := make([]paragraphResult, len(doc.Paragraphs))

	g := &errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range doc.Paragraphs {
		i := i
		g.Go(func() error {
			p := doc.Paragraphs[i]
			out, perr := extractParagraphEntities(doc.Text, docID, p)
			if perr != nil {
				// A single unparseable region never aborts extraction (spec.md
				// §4.2 failure policy); record it as a structural skip fact instead.
				skip, skipErr := model.NewFact(docID, model.FactTypeStructural, nil,
					"unparseable_region", model.Evidence{
						TextSpan:       p.Text,
						CharStart:      p.CharStart,
						CharEnd:        p.CharEnd,
						StructuralPath: p.StructuralPath,
					}, doc.Text)
				if skipErr == nil {
					outputs[i] = paragraphResult{facts: []model.Fact{skip}}
				}
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	for _, cell := range doc.Tables {
		f, cellErr := model.NewFact(docID, model.FactTypeTableCell, nil, cell.Text, model.Evidence{
			TextSpan:  cell.Text,
			CharStart: cell.CharStart,
			CharEnd:   cell.CharEnd,
		}, doc.Text)
		if cellErr != nil {
			continue
		}
		headingFacts = append(headingFacts, f)
	}

	result := Result{Facts: append(append([]model.Fact{}, headingFacts...), clauseSpanFacts...)}
	for _, out := range outputs {
		result.Facts = append(result.Facts, out.facts...)
		result.CrossRefs = append(result.CrossRefs, out.crossRefs...)
		result.Aliases = append(result.Aliases, out.aliases...)
	}

	sortFactsDeterministically(result.Facts)
	return result, nil
}

func sortFactsDeterministically(facts []model.Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].Evidence.CharStart != facts[j].Evidence.CharStart {
			return facts[i].Evidence.CharStart < facts[j].Evidence.CharStart
		}
		return facts[i].FactType < facts[j].FactType
	})
}

// extractHeadingsAndSpans builds one heading fact per heading (with inferred
// section_number) and one clause-span fact per heading, covering from the
// heading's start to the next same-or-higher-level heading's start.
func extractHeadingsAndSpans(doc model.ParsedDocument, docID model.DocumentID) ([]model.Fact, []model.Fact, error) {
	var headingFacts, spanFacts []model.Fact
	canonicalSection := map[string]bool{}

	for i, h := range doc.Headings {
		sectionNumber := h.SectionNumber
		if sectionNumber == nil {
			if m := sectionNumberPattern.FindStringSubmatch(h.Text); m != nil {
				sectionNumber = &m[1]
			}
		}
		// When multiple headings share a section number, the first in document
		// order is canonical (spec.md §4.2 tie-break); later duplicates are
		// still recorded as heading facts but are skipped as clause-span roots.
		isCanonical := true
		if sectionNumber != nil {
			if canonicalSection[*sectionNumber] {
				isCanonical = false
			}
			canonicalSection[*sectionNumber] = true
		}

		hf, err := model.NewFact(docID, model.FactTypeHeading, nil, h.Text, model.Evidence{
			TextSpan:  h.Text,
			CharStart: h.CharStart,
			CharEnd:   h.CharEnd,
		}, doc.Text)
		if err != nil {
			return nil, nil, err
		}
		headingFacts = append(headingFacts, hf)

		if !isCanonical {
			continue
		}

		spanEnd := len(doc.Text)
		for j := i + 1; j < len(doc.Headings); j++ {
			if doc.Headings[j].Level <= h.Level {
				spanEnd = doc.Headings[j].CharStart
				break
			}
		}
		spanText := doc.Text[h.CharStart:spanEnd]
		cf, err := model.NewFact(docID, model.FactTypeClause, nil, h.Text, model.Evidence{
			TextSpan:  spanText,
			CharStart: h.CharStart,
			CharEnd:   spanEnd,
		}, doc.Text)
		if err != nil {
			return nil, nil, err
		}
		spanFacts = append(spanFacts, cf)
	}
	return headingFacts, spanFacts, nil
}

// extractParagraphEntities runs every entity/cross-reference/alias pattern
// against one paragraph, plus emits its clause_text fact.
func extractParagraphEntities(source string, docID model.DocumentID, p model.Paragraph) (paragraphResult, error) {
	out := paragraphResult{}

	textFact, err := model.NewFact(docID, model.FactTypeClauseText, nil, p.Text, model.Evidence{
		TextSpan:       p.Text,
		CharStart:      p.CharStart,
		CharEnd:        p.CharEnd,
		StructuralPath: p.StructuralPath,
		PageNumber:     p.PageNumber,
	}, source)
	if err != nil {
		return out, err
	}
	out.facts = append(out.facts, textFact)

	moneyType := model.EntityTypeMoney
	claimed := make([]bool, len(p.Text)+1)
	for _, np := range moneyPatterns {
		for _, loc := range np.re.FindAllStringIndex(p.Text, -1) {
			if overlapsClaimed(claimed, loc[0], loc[1]) {
				continue
			}
			markClaimed(claimed, loc[0], loc[1])
			appendEntityFact(&out.facts, docID, source, p, moneyType, loc)
		}
	}

	percentType := model.EntityTypePercent
	for _, loc := range percentPattern.FindAllStringIndex(p.Text, -1) {
		appendEntityFact(&out.facts, docID, source, p, percentType, loc)
	}

	durationType := model.EntityTypeDuration
	for _, loc := range durationPattern.FindAllStringIndex(p.Text, -1) {
		appendEntityFact(&out.facts, docID, source, p, durationType, loc)
	}

	dateType := model.EntityTypeDate
	for _, np := range datePatterns {
		for _, loc := range np.re.FindAllStringIndex(p.Text, -1) {
			appendEntityFact(&out.facts, docID, source, p, dateType, loc)
		}
	}

	locType := model.EntityTypeLocation
	for _, loc := range locationPattern.FindAllStringIndex(p.Text, -1) {
		appendEntityFact(&out.facts, docID, source, p, locType, loc)
	}

	sectionRefType := model.EntityTypeSectionRef
	for _, loc := range crossReferencePattern.FindAllStringIndex(p.Text, -1) {
		f, ok := appendEntityFact(&out.facts, docID, source, p, sectionRefType, loc)
		if !ok {
			continue
		}
		effect := classifyReferenceEffect(p.Text, loc[0])
		refType := classifyReferenceType(p.Text[loc[0]:loc[1]])
		out.crossRefs = append(out.crossRefs, CrossRefCandidate{
			SourceFactID: f.FactID,
			TargetRaw:    p.Text[loc[0]:loc[1]],
			RefType:      refType,
			Effect:       effect,
			Context:      p.Text,
		})
	}

	if m := partyHeadingPattern.FindStringSubmatchIndex(p.Text); m != nil {
		partyType := model.EntityTypeParty
		appendEntityFact(&out.facts, docID, source, p, partyType, []int{m[2], m[3]})
		appendEntityFact(&out.facts, docID, source, p, partyType, []int{m[4], m[5]})
	}

	if m := governingLawPattern.FindStringSubmatchIndex(p.Text); m != nil {
		locType := model.EntityTypeLocation
		appendEntityFact(&out.facts, docID, source, p, locType, []int{m[2], m[3]})
	}

	for _, re := range aliasPatterns {
		m := re.FindStringSubmatch(p.Text)
		idx := re.FindStringSubmatchIndex(p.Text)
		if m == nil || idx == nil {
			continue
		}
		out.aliases = append(out.aliases, AliasCandidate{
			SourceFactID: textFact.FactID,
			Surface:      strings.TrimSpace(m[1]),
			Alias:        strings.TrimSpace(m[2]),
		})
	}

	return out, nil
}

// appendEntityFact builds an entity fact and appends it to facts, returning
// it by value (never a pointer into the slice, which append may reallocate).
func appendEntityFact(facts *[]model.Fact, docID model.DocumentID, source string, p model.Paragraph, entityType model.EntityType, loc []int) (model.Fact, bool) {
	start := p.CharStart + loc[0]
	end := p.CharStart + loc[1]
	value := normalizeEntityValue(entityType, source[start:end])
	f, err := model.NewFact(docID, model.FactTypeEntity, &entityType, value, model.Evidence{
		TextSpan:       source[start:end],
		CharStart:      start,
		CharEnd:        end,
		StructuralPath: p.StructuralPath,
		PageNumber:     p.PageNumber,
	}, source)
	if err != nil {
		return model.Fact{}, false
	}
	*facts = append(*facts, f)
	return f, true
}

// normalizeEntityValue applies spec.md §4.2's numeric semantics: durations
// normalize to "{magnitude} {unit}", percentages to a decimal fraction
// string. Money (and every other entity type) keeps the raw surface text as
// its Value; no numeric amount or currency code is derived for it.
func normalizeEntityValue(entityType model.EntityType, raw string) string {
	switch entityType {
	case model.EntityTypePercent:
		digits := strings.TrimRight(strings.TrimSpace(raw), "%")
		digits = strings.TrimSpace(digits)
		if f, err := strconv.ParseFloat(digits, 64); err == nil {
			return strconv.FormatFloat(f/100, 'f', -1, 64)
		}
		return raw
	case model.EntityTypeDuration:
		return normalizeDuration(raw)
	default:
		return raw
	}
}

var unitAliases = map[string]string{
	"day": "day", "days": "day",
	"business day": "business_day", "business days": "business_day",
	"month": "month", "months": "month",
	"year": "year", "years": "year",
}

func normalizeDuration(raw string) string {
	m := durationPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	magnitude := m[2]
	unit := unitAliases[strings.ToLower(m[3])+"s"]
	if unit == "" {
		unit = unitAliases[strings.ToLower(m[3])]
	}
	return magnitude + " " + unit
}

func classifyReferenceType(raw string) model.ReferenceType {
	switch {
	case strings.Contains(strings.ToLower(raw), "appendix"):
		return model.ReferenceTypeAppendix
	case strings.Contains(strings.ToLower(raw), "schedule"):
		return model.ReferenceTypeSchedule
	case strings.Contains(strings.ToLower(raw), "exhibit"):
		return model.ReferenceTypeExternal
	default:
		return model.ReferenceTypeSection
	}
}

// classifyReferenceEffect inspects the 60 characters preceding the reference
// for one of spec.md §4.2's qualifying prefixes.
func classifyReferenceEffect(text string, refStart int) model.ReferenceEffect {
	windowStart := refStart - 60
	if windowStart < 0 {
		windowStart = 0
	}
	window := strings.ToLower(text[windowStart:refStart])
	switch {
	case strings.Contains(window, "notwithstanding"):
		return model.ReferenceEffectOverrides
	case strings.Contains(window, "subject to"):
		return model.ReferenceEffectConditions
	case strings.Contains(window, "as defined in"), strings.Contains(window, "pursuant to"), strings.Contains(window, "in accordance with"):
		return model.ReferenceEffectIncorporates
	default:
		return model.ReferenceEffectModifies
	}
}

func overlapsClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end && i < len(claimed); i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func markClaimed(claimed []bool, start, end int) {
	for i := start; i < end && i < len(claimed); i++ {
		claimed[i] = true
	}
}

// ResolveCrossReferences finalizes CrossRefCandidates into model.CrossReference
// once the classifier has assigned clause IDs: each candidate's SourceFactID
// is looked up against every clause's containment to find its owning clause.
func ResolveCrossReferences(clauses []model.Clause, candidates []CrossRefCandidate) []model.CrossReference {
	owner := make(map[model.FactID]model.ClauseID, len(clauses)*4)
	for _, c := range clauses {
		for _, fid := range c.ContainedFactIDs {
			owner[fid] = c.ClauseID
		}
	}

	var out []model.CrossReference
	for _, cand := range candidates {
		clauseID, ok := owner[cand.SourceFactID]
		if !ok {
			continue
		}
		out = append(out, model.NewCrossReference(clauseID, cand.TargetRaw, cand.RefType, cand.Effect, cand.Context, cand.SourceFactID))
	}
	return out
}
