package extract

import "regexp"

const (
	// RecentMessageWindow is how many trailing messages are scanned.
	RecentMessageWindow = 20
	// minLocationLen and maxLocationLen bound a location candidate in characters.
	minLocationLen = 3
	maxLocationLen = 49
	// UnknownObject is the object of a relationship without a captured object.
	UnknownObject = "unknown"
)

// capitalized phrase: one or more capitalized words, optionally joined by "of"/"the".
const placePhrase = `([A-Z][\w'-]*(?:\s+(?:of\s+|the\s+)?[A-Z][\w'-]*)*)`

// clause boundary: punctuation, newline or end of text.
const clauseEnd = `\s*(?:[.,;:!?\n]|$)`

var (
	// namePattern matches one or two capitalized words.
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)

	// prepositionPlacePattern matches "in/at/to/from [the] X" before a clause boundary.
	prepositionPlacePattern = regexp.MustCompile(`\b(?i:in|at|to|from)\s+(?i:the\s+)?` + placePhrase + clauseEnd)

	// calledPlacePattern matches "called/named [the] X" before a clause boundary.
	calledPlacePattern = regexp.MustCompile(`\b(?i:called|named)\s+(?i:the\s+)?` + placePhrase + clauseEnd)

	// relationOfPattern matches "A is/are [the] R of B".
	relationOfPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\s+(?:is|are)\s+(?:the\s+)?(\w+)\s+of\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

	// possessivePattern matches "A's R".
	possessivePattern = regexp.MustCompile(`\b([A-Z][a-z]+)(?:'|’)s\s+(\w+)`)
)

// leadingStopwords are capitalized function words that begin sentences and
// would otherwise surface as name candidates.
var leadingStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {}, "for": {},
	"from": {}, "he": {}, "her": {}, "his": {}, "i": {}, "if": {}, "in": {},
	"it": {}, "its": {}, "my": {}, "no": {}, "of": {}, "on": {}, "or": {},
	"our": {}, "she": {}, "so": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"to": {}, "we": {}, "what": {}, "when": {}, "where": {}, "while": {},
	"who": {}, "why": {}, "with": {}, "yes": {}, "you": {}, "your": {},
}
