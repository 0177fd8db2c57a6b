package model

// Span is a closed token-id interval within one sentence. The zero value
// is the empty span.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the span covers no tokens.
func (s Span) Empty() bool { return s.Start == 0 || s.End == 0 }

// Contains reports whether the token id falls inside the span.
func (s Span) Contains(id int) bool {
	return !s.Empty() && id >= s.Start && id <= s.End
}

// Overlaps reports whether two spans share at least one token.
func (s Span) Overlaps(o Span) bool {
	if s.Empty() || o.Empty() {
		return false
	}
	return s.Start <= o.End && o.Start <= s.End
}

// QuoteType tags how a quote is delimited.
type QuoteType string

const (
	QuoteDirect   QuoteType = "direct"   // delimited by quotation marks or a dash paragraph
	QuoteIndirect QuoteType = "indirect" // reported clause, no delimiters
	QuoteMixed    QuoteType = "mixed"    // partially delimited
)

// Resolution tags how a quote's actor was found.
type Resolution string

const (
	ResolutionDirect     Resolution = "direct-dependency"
	ResolutionFallback   Resolution = "rule-fallback"
	ResolutionAntecedent Resolution = "nearest-antecedent"
	ResolutionNone       Resolution = "none"
)

// QuoteMatch is one detected quote span. Immutable once emitted.
type QuoteMatch struct {
	ArticleID  string    `json:"article_id"`
	SentenceID int       `json:"sentence_id"`
	Anchor     int       `json:"anchor"`
	Span       Span      `json:"span"`
	Type       QuoteType `json:"type"`
	RuleID     string    `json:"rule_id"`
	CarryOver  bool      `json:"carry_over,omitempty"` // span left open at sentence end
}

// ActorMatch attributes one QuoteMatch to a speaker span. Resolution "none"
// with an empty span means no actor could be found; it is still emitted.
type ActorMatch struct {
	SentenceID int        `json:"sentence_id,omitempty"` // sentence of the actor span
	Span       Span       `json:"span"`
	Author     string     `json:"author,omitempty"` // normalized author name
	Resolution Resolution `json:"resolution"`
}

// Attribution pairs a quote with its resolved actor. The pipeline emits
// exactly one Attribution per detected quote.
type Attribution struct {
	Quote QuoteMatch `json:"quote"`
	Actor ActorMatch `json:"actor"`
}
