package extract

import "regexp"

// namedPattern pairs a compiled regexp with the entity type it produces.
// Tables are ordered: when two patterns both match an overlapping span, the
// more specific one (earlier table position, per spec.md §4.2's tie-break)
// wins. Mirrors the teacher's preference for explicit, inspectable Go values
// over codegen or a rules DSL.
type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// moneyPatterns: dated/conditional money phrases are listed before bare
// money so the overlap tie-break ("dated money > bare money > integer")
// can prefer the earlier, more specific match.
var moneyPatterns = []namedPattern{
	{"money_with_date_clause", regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d{2})?\s*(?:per|on or before|due (?:on|by))\s+[A-Za-z0-9 ,]+`)},
	{"money_usd", regexp.MustCompile(`\$\s?[\d,]+(?:\.\d{2})?`)},
	{"money_coded", regexp.MustCompile(`(?i)\b(USD|EUR|GBP|INR|JPY)\s?[\d,]+(?:\.\d{2})?`)},
	{"integer_amount", regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+(?:\.\d{2})?\b`)},
}

var percentPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\s?%`)

// durationPattern matches "thirty (30) days"-style phrases as well as bare
// "30 days" / "12 months" forms; the parenthesized numeral is preferred over
// the spelled-out word when both are present (see normalizeDuration).
var durationPattern = regexp.MustCompile(`(?i)\b([a-z-]+)?\s*\(?(\d+)\)?\s+(day|business day|month|year)s?\b`)

var datePatterns = []namedPattern{
	{"date_long", regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`)},
	{"date_iso", regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)},
	{"date_slash", regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)},
}

// sectionNumberPattern extracts the leading numeric token of a heading:
// "3.2.1 Termination", "§12.1 Payment", "Article XII — Indemnity".
var sectionNumberPattern = regexp.MustCompile(`(?i)^(?:§\s?|Article\s+|Section\s+)?([0-9]+(?:\.[0-9]+)*|[IVXLCDM]+)\b`)

var crossReferencePattern = regexp.MustCompile(`(?i)\b(Section|§|Appendix|Schedule|Exhibit)\s+([0-9]+(?:\.[0-9]+)*(?:\([a-z]\))?|[A-Z])\b`)

var crossRefQualifierPattern = regexp.MustCompile(`(?i)\b(subject to|notwithstanding|as defined in|pursuant to|in accordance with)\b`)

// aliasPatterns: "X, hereinafter referred to as "Y"", "X (the "Y")",
// "X, hereafter "Y"", "X shall mean Y".
var aliasPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([A-Z][\w.,&\- ]{1,80}?),?\s+hereinafter\s+referred\s+to\s+as\s+"([^"]+)"`),
	regexp.MustCompile(`(?i)([A-Z][\w.,&\- ]{1,80}?)\s*\(the\s+"([^"]+)"\)`),
	regexp.MustCompile(`(?i)([A-Z][\w.,&\- ]{1,80}?),?\s+hereafter\s+"([^"]+)"`),
	regexp.MustCompile(`(?i)([A-Z][\w.,&\- ]{1,80}?)\s+shall\s+mean\s+([A-Z][\w.,&\- ]{1,80})`),
}

var governingLawPattern = regexp.MustCompile(`(?i)governed\s+by(?:,?\s+and\s+construed\s+in\s+accordance\s+with,)?\s+the\s+laws?\s+of\s+([A-Z][\w, ]+?)(?:\.|,|\s+without)`)

var locationPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:,\s[A-Z]{2})?),\s(?:USA|United States|U\.S\.A?\.)\b`)

// partyHeadingPattern catches the common "between X and Y" preamble line
// used to seed party entity facts before any defined-term binding exists.
var partyHeadingPattern = regexp.MustCompile(`(?i)\bbetween\s+([A-Z][\w.,&\- ]{2,80}?)\s+and\s+([A-Z][\w.,&\- ]{2,80}?)[,.]`)
