package model

import (
	"sort"
	"strings"
)

// Token is one row of a dependency-parsed sentence. Tokens are immutable
// once the owning Sentence is built.
type Token struct {
	ID          int        `json:"id"`                     // 1-based, unique within sentence
	Form        string     `json:"form"`                   // surface form
	Lemma       string     `json:"lemma"`                  // base form
	POS         string     `json:"pos"`                    // coarse UPOS tag
	Feats       FeatureSet `json:"feats,omitempty"`        // morphological features
	Head        int        `json:"head"`                   // head token id, 0 = sentence root
	Rel         string     `json:"rel"`                    // dependency relation to head
	ParagraphID int        `json:"paragraph_id,omitempty"` // source paragraph
	StartChar   int        `json:"start_char"`             // offset in article text
	EndChar     int        `json:"end_char"`
	SpaceAfter  bool       `json:"-"`
}

// FeatureSet holds morphological features as name → value pairs
// (e.g. Case=Nom, Number=Sing).
type FeatureSet map[string]string

// ParseFeatures parses a CoNLL-style feature string ("Case=Nom|Number=Sing").
// "_" and the empty string yield an empty set.
func ParseFeatures(s string) FeatureSet {
	if s == "" || s == "_" {
		return nil
	}
	fs := make(FeatureSet)
	for _, pair := range strings.Split(s, "|") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		fs[name] = value
	}
	return fs
}

// Has reports whether the feature is present, and if value is non-empty,
// whether it has that value.
func (fs FeatureSet) Has(name, value string) bool {
	v, ok := fs[name]
	if !ok {
		return false
	}
	return value == "" || v == value
}

// String renders the features in canonical sorted CoNLL form.
func (fs FeatureSet) String() string {
	if len(fs) == 0 {
		return "_"
	}
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + fs[name]
	}
	return strings.Join(parts, "|")
}

// IsQuoteMark reports whether the token's surface form is a quotation mark.
func (t Token) IsQuoteMark() bool {
	_, ok := quoteMarkClass[t.Form]
	return ok
}

// quoteMarkClass maps quotation mark forms to a mark class. Marks pair up
// when their classes are compatible (see CompatibleMarks).
var quoteMarkClass = map[string]string{
	`"`: "ascii",
	"”": "curly",
	"“": "curly",
	"»": "guillemet",
	"«": "guillemet",
}

// CompatibleMarks reports whether two quotation mark forms can act as an
// opening/closing pair. Finnish news text uses ” both to open and close,
// so equal classes always pair.
func CompatibleMarks(open, close string) bool {
	oc, ok1 := quoteMarkClass[open]
	cc, ok2 := quoteMarkClass[close]
	return ok1 && ok2 && oc == cc
}
