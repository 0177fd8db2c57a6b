// Package extract turns rule matches into quote spans and attributes each
// quote to a speaking actor.
package extract

import (
	"errors"
	"sort"

	"github.com/flopo/quotedetect/internal/match"
	"github.com/flopo/quotedetect/internal/model"
	"github.com/flopo/quotedetect/internal/rules"
)

// ErrUnresolvedAction reports a matched rule whose action could not
// compute a required span (e.g. no closing quotation mark). The single
// match is dropped; extraction continues.
var ErrUnresolvedAction = errors.New("unresolved action")

// Match is one emitted quote plus the rule and bindings that produced it.
// The bindings are kept so the actor resolver can reuse positions bound
// during quote matching.
type Match struct {
	Quote    model.QuoteMatch
	Rule     *rules.Rule
	Bindings match.Bindings
}

// QuoteExtractor drives the matcher over every (anchor, quote-rule) pair
// of a sentence and resolves precedence and overlaps.
type QuoteExtractor struct {
	rs      *rules.RuleSet
	matcher *match.Matcher
}

// NewQuoteExtractor creates an extractor over a loaded rule set.
func NewQuoteExtractor(rs *rules.RuleSet) *QuoteExtractor {
	return &QuoteExtractor{rs: rs, matcher: match.NewMatcher(rs)}
}

// Extract returns the sentence's quote matches in surface order. Every
// token is tried as an anchor against every quote rule in precedence
// order; the first rule to match an anchor wins that anchor, and
// overlapping spans from different anchors are resolved in favor of the
// higher-priority rule (the loser is dropped whole, not truncated).
func (e *QuoteExtractor) Extract(articleID string, s *model.Sentence) []Match {
	var matches []Match
	for anchor := 1; anchor <= s.Len(); anchor++ {
		for _, r := range e.rs.Quote {
			binds, ok := e.matcher.Match(r, s, anchor)
			if !ok {
				continue
			}
			q, err := e.buildQuote(articleID, s, r, binds)
			if err != nil {
				// Unresolvable action: discard this match only and keep
				// trying lower-precedence rules on the same anchor.
				continue
			}
			matches = append(matches, Match{Quote: q, Rule: r, Bindings: binds})
			break
		}
	}

	// Overlap resolution across anchors, strongest rule first.
	order := make([]int, len(matches))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ma, mb := matches[order[a]], matches[order[b]]
		if ma.Rule != mb.Rule {
			return ma.Rule.Before(mb.Rule)
		}
		return ma.Quote.Anchor < mb.Quote.Anchor
	})

	var kept []Match
	for _, i := range order {
		overlaps := false
		for _, k := range kept {
			if matches[i].Quote.Span.Overlaps(k.Quote.Span) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, matches[i])
		}
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Quote.Span.Start < kept[b].Quote.Span.Start
	})
	return kept
}

// buildQuote computes the emitted span from the rule's action and the
// match bindings.
func (e *QuoteExtractor) buildQuote(articleID string, s *model.Sentence, r *rules.Rule, binds match.Bindings) (model.QuoteMatch, error) {
	spec := r.Action.Span
	var span model.Span
	direct := false

	switch {
	case spec.Subtree != "":
		id, ok := binds[spec.Subtree]
		if !ok {
			return model.QuoteMatch{}, ErrUnresolvedAction
		}
		span = s.SubtreeExtent(id)
		// A quotation mark between the anchor and the clause head means the
		// clause is the quoted material; prefer the delimited extent.
		if marks, ok := e.enclosingMarks(s, binds["anchor"], id); ok {
			span = marks
			direct = true
		}
	case spec.Token != "":
		id, ok := binds[spec.Token]
		if !ok {
			return model.QuoteMatch{}, ErrUnresolvedAction
		}
		span = model.Span{Start: id, End: id}
	case spec.QuotePair != "":
		id, ok := binds[spec.QuotePair]
		if !ok {
			return model.QuoteMatch{}, ErrUnresolvedAction
		}
		pair, ok := e.quotePair(s, id)
		if !ok {
			return model.QuoteMatch{}, ErrUnresolvedAction
		}
		span = pair
		direct = true
	}

	// Dash-initial paragraph: extend the span back to the dash that opens
	// the quoted paragraph.
	if r.Action.DashExtend {
		if start, ok := dashParagraphStart(s, span.Start); ok {
			span.Start = start
			direct = true
		}
	}

	q := model.QuoteMatch{
		ArticleID:  articleID,
		SentenceID: s.ID,
		Anchor:     binds["anchor"],
		Span:       span,
		RuleID:     r.ID,
	}
	q.Type = quoteType(r.Action.Type, s, span, direct)
	if r.Action.OpenEnded && span.End == s.Len() {
		q.CarryOver = true
	}
	return q, nil
}

// quotePair resolves a quotation mark to its nearest compatible partner
// in the same sentence, preferring a following mark.
func (e *QuoteExtractor) quotePair(s *model.Sentence, id int) (model.Span, bool) {
	open, ok := s.Token(id)
	if !ok || !open.IsQuoteMark() {
		return model.Span{}, false
	}
	for j := id + 1; j <= s.Len(); j++ {
		t, _ := s.Token(j)
		if t.IsQuoteMark() && model.CompatibleMarks(open.Form, t.Form) {
			return model.Span{Start: id, End: j}, true
		}
	}
	for j := id - 1; j >= 1; j-- {
		t, _ := s.Token(j)
		if t.IsQuoteMark() && model.CompatibleMarks(t.Form, open.Form) {
			return model.Span{Start: j, End: id}, true
		}
	}
	return model.Span{}, false
}

// enclosingMarks looks for a quotation mark between the cue and the clause
// head and, if its partner encloses the head, returns the mark-delimited
// span.
func (e *QuoteExtractor) enclosingMarks(s *model.Sentence, cue, head int) (model.Span, bool) {
	lo, hi := cue, head
	if lo > hi {
		lo, hi = hi, lo
	}
	q1 := 0
	for i := lo; i < hi; i++ {
		t, _ := s.Token(i)
		if t.IsQuoteMark() {
			q1 = i
			break
		}
	}
	if q1 == 0 {
		return model.Span{}, false
	}
	step := 1
	if head < cue {
		step = -1
	}
	open, _ := s.Token(q1)
	for j := q1 + step; j >= 1 && j <= s.Len(); j += step {
		t, _ := s.Token(j)
		if t.IsQuoteMark() && model.CompatibleMarks(open.Form, t.Form) {
			lo, hi := q1, j
			if lo > hi {
				lo, hi = hi, lo
			}
			if head > lo && head < hi {
				return model.Span{Start: lo, End: hi}, true
			}
			return model.Span{}, false
		}
	}
	return model.Span{}, false
}

// dashParagraphStart walks back over tokens of the same paragraph and
// reports the paragraph-initial token if it is a quotation dash.
func dashParagraphStart(s *model.Sentence, from int) (int, bool) {
	t, ok := s.Token(from)
	if !ok {
		return 0, false
	}
	par := t.ParagraphID
	start := from
	for start > 1 {
		prev, _ := s.Token(start - 1)
		if prev.ParagraphID != par {
			break
		}
		start--
	}
	first, _ := s.Token(start)
	if first.Form == "-" || first.Form == "–" || first.Form == "—" {
		return start, true
	}
	return 0, false
}

// quoteType resolves the emitted quote type. Rules may fix a type; "auto"
// (or omitted) derives it from delimiters: mark-delimited or dash-opened
// spans are direct, spans with an internal mark pair are mixed, anything
// else is indirect.
func quoteType(declared string, s *model.Sentence, span model.Span, direct bool) model.QuoteType {
	switch declared {
	case "direct":
		return model.QuoteDirect
	case "indirect":
		return model.QuoteIndirect
	case "mixed":
		return model.QuoteMixed
	}
	if direct {
		return model.QuoteDirect
	}
	first, _ := s.Token(span.Start)
	last, _ := s.Token(span.End)
	if first.IsQuoteMark() && last.IsQuoteMark() && model.CompatibleMarks(first.Form, last.Form) {
		return model.QuoteDirect
	}
	marks := 0
	for i := span.Start; i <= span.End; i++ {
		t, _ := s.Token(i)
		if t.IsQuoteMark() {
			marks++
		}
	}
	if marks >= 2 {
		return model.QuoteMixed
	}
	return model.QuoteIndirect
}
