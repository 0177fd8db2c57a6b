package extract

import (
	"strings"

	"github.com/flopo/quotedetect/internal/match"
	"github.com/flopo/quotedetect/internal/model"
	"github.com/flopo/quotedetect/internal/rules"
)

// lexMessageNouns is the lexicon list consulted when normalizing actor
// spans headed by a message noun ("X:n ehdotuksen mukaan" names X, not
// the proposal). The list is optional in the rule file.
const lexMessageNouns = "message-nouns"

// Context is the small document-scoped state threaded through sentence
// processing: the most recently resolved actor (for nearest-antecedent
// fallback) and a pending carry-over quote, if any. It is owned by one
// document pass and never shared.
type Context struct {
	LastActor *model.ActorMatch
	Carry     *Carry
}

// Carry records a quote left open at a sentence boundary.
type Carry struct {
	Actor         model.ActorMatch
	FromSentence  int
	FromParagraph int
}

// ActorResolver finds the speaker span for each quote, in three tiers:
// actor rules at the quote's own anchor, actor rules at the span boundary
// tokens, then the document's most recent resolved actor.
type ActorResolver struct {
	rs      *rules.RuleSet
	matcher *match.Matcher
}

// NewActorResolver creates a resolver over a loaded rule set.
func NewActorResolver(rs *rules.RuleSet) *ActorResolver {
	return &ActorResolver{rs: rs, matcher: match.NewMatcher(rs)}
}

// Resolve returns exactly one ActorMatch for the quote, possibly with
// resolution "none" and an empty span.
func (r *ActorResolver) Resolve(s *model.Sentence, q Match, ctx *Context) model.ActorMatch {
	// Tier 1: the quote rule itself bound the actor, or an actor rule
	// matches at the quote's anchor.
	if name := q.Rule.Action.Actor; name != "" {
		if id, ok := q.Bindings[name]; ok {
			return r.actorAt(s, id, model.ResolutionDirect)
		}
	}
	if id, ok := r.matchActorRules(s, q.Quote.Anchor); ok {
		return r.actorAt(s, id, model.ResolutionDirect)
	}

	// Tier 2: actor rules anchored at the span boundaries, for patterns
	// where the speaking verb sits outside the quote span.
	for _, anchor := range []int{q.Quote.Span.Start, q.Quote.Span.End} {
		if anchor == q.Quote.Anchor {
			continue
		}
		if id, ok := r.matchActorRules(s, anchor); ok {
			return r.actorAt(s, id, model.ResolutionFallback)
		}
	}

	// Tier 3: reuse the most recent actor in the document.
	if ctx != nil && ctx.LastActor != nil {
		prev := *ctx.LastActor
		prev.Resolution = model.ResolutionAntecedent
		return prev
	}

	return model.ActorMatch{Resolution: model.ResolutionNone}
}

// matchActorRules tries the actor rules at the given anchor in precedence
// order and returns the bound actor token of the first match.
func (r *ActorResolver) matchActorRules(s *model.Sentence, anchor int) (int, bool) {
	for _, rule := range r.rs.Actor {
		binds, ok := r.matcher.Match(rule, s, anchor)
		if !ok {
			continue
		}
		if id, ok := binds[rule.Action.Actor]; ok {
			return id, true
		}
	}
	return 0, false
}

// actorAt normalizes a resolved actor token into a span and author name.
func (r *ActorResolver) actorAt(s *model.Sentence, id int, res model.Resolution) model.ActorMatch {
	span, author := r.NormalizeActor(s, id)
	return model.ActorMatch{
		SentenceID: s.ID,
		Span:       span,
		Author:     author,
		Resolution: res,
	}
}

// NormalizeActor widens an actor token to the span that actually names
// the speaker: message nouns defer to their possessor, common nouns to an
// appositive proper name, and flat:name chains are joined into the full
// name ("Antti Palola").
func (r *ActorResolver) NormalizeActor(s *model.Sentence, id int) (model.Span, string) {
	tok, ok := s.Token(id)
	if !ok {
		return model.Span{}, ""
	}

	// "ehdotuksen mukaan" style constructions: the speaker is the
	// possessor of the message noun.
	if r.rs.InLexicon(lexMessageNouns, tok.Lemma) {
		for _, c := range s.Children(id) {
			ct, _ := s.Token(c)
			if ct.Rel == "nmod:poss" || ct.Rel == "nmod:gsubj" {
				id, tok = c, ct
				break
			}
		}
	}

	// "puheenjohtaja Antti Palola": the appositive proper name carries
	// the identity.
	if tok.POS == "NOUN" {
		for _, c := range s.Children(id) {
			ct, _ := s.Token(c)
			if ct.POS == "PROPN" && ct.Rel == "appos" {
				id, tok = c, ct
				break
			}
		}
	}

	ids := []int{id}
	lemmas := []string{tok.Lemma}
	collectFlatNames(s, id, &ids, &lemmas)

	span := model.Span{Start: ids[0], End: ids[0]}
	for _, i := range ids {
		if i < span.Start {
			span.Start = i
		}
		if i > span.End {
			span.End = i
		}
	}
	return span, strings.Join(lemmas, " ")
}

// collectFlatNames appends the flat:name chain below the token, iterative
// to keep stack depth independent of sentence length.
func collectFlatNames(s *model.Sentence, id int, ids *[]int, lemmas *[]string) {
	frontier := []int{id}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, c := range s.Children(cur) {
			ct, _ := s.Token(c)
			if ct.Rel == "flat:name" {
				*ids = append(*ids, c)
				*lemmas = append(*lemmas, ct.Lemma)
				frontier = append(frontier, c)
			}
		}
	}
}
