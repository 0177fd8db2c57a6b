package extract

import (
	"testing"

	"github.com/flopo/quotedetect/internal/model"
)

func TestResolve_RuleBoundActor(t *testing.T) {
	rs := mustRules(t, cueClauseRules)
	s := liisaSentence(t)

	matches := NewQuoteExtractor(rs).Extract("a1", s)
	if len(matches) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(matches))
	}

	actor := NewActorResolver(rs).Resolve(s, matches[0], &Context{})
	if actor.Resolution != model.ResolutionDirect {
		t.Errorf("resolution = %s, want direct-dependency", actor.Resolution)
	}
	if actor.Author != "Liisa" || actor.Span != (model.Span{Start: 1, End: 1}) {
		t.Errorf("actor = %+v", actor)
	}
	if actor.SentenceID != 1 {
		t.Errorf("actor sentence = %d, want 1", actor.SentenceID)
	}
}

func TestResolve_ActorRuleAtAnchor(t *testing.T) {
	// The quote rule binds no actor; an actor rule matching at the anchor
	// still resolves as direct.
	rs := mustRules(t, `
lexicon:
  cue-verbs: [sanoa]
rules:
  - id: cue-clause
    kind: quote
    match:
      all:
        - pos: VERB
        - lemma: { lexicon: cue-verbs }
        - child: { as: clause, rel: ccomp }
    action:
      span: { subtree: clause }
  - id: actor-subject
    kind: actor
    match:
      all:
        - pos: VERB
        - child:
            as: speaker
            rel: nsubj
            match: { pos: PROPN }
    action: { actor: speaker }`)
	s := liisaSentence(t)

	matches := NewQuoteExtractor(rs).Extract("a1", s)
	if len(matches) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(matches))
	}
	actor := NewActorResolver(rs).Resolve(s, matches[0], &Context{})
	if actor.Resolution != model.ResolutionDirect || actor.Author != "Liisa" {
		t.Errorf("actor = %+v", actor)
	}
}

func TestResolve_FallbackAtSpanBoundary(t *testing.T) {
	// `" Tulen " sanoi Liisa .` The quote rule anchors at the clause verb;
	// the actor rule only fires on the marks at the span boundary.
	s := mustSentence(t, 1, []model.Token{
		{ID: 1, Form: `"`, Lemma: `"`, POS: "PUNCT", Head: 2, Rel: "punct"},
		{ID: 2, Form: "Tulen", Lemma: "tulla", POS: "VERB", Head: 4, Rel: "ccomp"},
		{ID: 3, Form: `"`, Lemma: `"`, POS: "PUNCT", Head: 2, Rel: "punct"},
		{ID: 4, Form: "sanoi", Lemma: "sanoa", POS: "VERB", Head: 0, Rel: "root"},
		{ID: 5, Form: "Liisa", Lemma: "Liisa", POS: "PROPN", Head: 4, Rel: "nsubj"},
		{ID: 6, Form: ".", Lemma: ".", POS: "PUNCT", Head: 4, Rel: "punct"},
	})
	rs := mustRules(t, `
rules:
  - id: quoted-clause
    kind: quote
    match:
      all:
        - pos: VERB
        - rel: ccomp
        - child: { as: mark, rel: punct }
    action:
      span: { quote-pair: mark }
      type: direct
  - id: actor-mark
    kind: actor
    match:
      all:
        - pos: PUNCT
        - ancestor:
            depth: 2
            match:
              child:
                as: speaker
                rel: nsubj
                match: { pos: PROPN }
    action: { actor: speaker }`)

	matches := NewQuoteExtractor(rs).Extract("a1", s)
	if len(matches) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(matches))
	}
	if matches[0].Quote.Span != (model.Span{Start: 1, End: 3}) {
		t.Fatalf("quote span = %v", matches[0].Quote.Span)
	}

	actor := NewActorResolver(rs).Resolve(s, matches[0], &Context{})
	if actor.Resolution != model.ResolutionFallback {
		t.Errorf("resolution = %s, want rule-fallback", actor.Resolution)
	}
	if actor.Author != "Liisa" {
		t.Errorf("author = %q, want Liisa", actor.Author)
	}
}

func TestResolve_NearestAntecedent(t *testing.T) {
	// `Hän jatkoi vielä .` has only a pronoun subject, which the actor
	// rules skip; the document's previous speaker is reused.
	s := mustSentence(t, 2, []model.Token{
		{ID: 1, Form: "Hän", Lemma: "hän", POS: "PRON", Head: 2, Rel: "nsubj"},
		{ID: 2, Form: "jatkoi", Lemma: "jatkaa", POS: "VERB", Head: 0, Rel: "root"},
		{ID: 3, Form: "vielä", Lemma: "vielä", POS: "ADV", Head: 2, Rel: "ccomp"},
		{ID: 4, Form: ".", Lemma: ".", POS: "PUNCT", Head: 2, Rel: "punct"},
	})
	rs := mustRules(t, `
lexicon:
  cue-verbs: [sanoa, jatkaa]
rules:
  - id: cue-clause
    kind: quote
    match:
      all:
        - pos: VERB
        - lemma: { lexicon: cue-verbs }
        - child: { as: clause, rel: ccomp }
    action:
      span: { subtree: clause }
  - id: actor-subject
    kind: actor
    match:
      child:
        as: speaker
        rel: nsubj
        match: { pos: PROPN }
    action: { actor: speaker }`)

	matches := NewQuoteExtractor(rs).Extract("a1", s)
	if len(matches) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(matches))
	}

	ctx := &Context{LastActor: &model.ActorMatch{
		SentenceID: 1,
		Span:       model.Span{Start: 1, End: 1},
		Author:     "Liisa",
		Resolution: model.ResolutionDirect,
	}}
	actor := NewActorResolver(rs).Resolve(s, matches[0], ctx)
	if actor.Resolution != model.ResolutionAntecedent {
		t.Errorf("resolution = %s, want nearest-antecedent", actor.Resolution)
	}
	if actor.Author != "Liisa" || actor.SentenceID != 1 {
		t.Errorf("actor = %+v, want the previous speaker", actor)
	}
	// The stored antecedent keeps its own resolution.
	if ctx.LastActor.Resolution != model.ResolutionDirect {
		t.Error("Resolve must not mutate the stored antecedent")
	}

	// No antecedent available: the quote is still attributed, with "none".
	actor = NewActorResolver(rs).Resolve(s, matches[0], &Context{})
	if actor.Resolution != model.ResolutionNone || !actor.Span.Empty() {
		t.Errorf("actor = %+v, want empty none", actor)
	}
}

func TestNormalizeActor_FlatName(t *testing.T) {
	// `puheenjohtaja Antti Palola sanoi näin .`
	s := mustSentence(t, 1, []model.Token{
		{ID: 1, Form: "puheenjohtaja", Lemma: "puheenjohtaja", POS: "NOUN", Head: 4, Rel: "nsubj"},
		{ID: 2, Form: "Antti", Lemma: "Antti", POS: "PROPN", Head: 1, Rel: "appos"},
		{ID: 3, Form: "Palola", Lemma: "Palola", POS: "PROPN", Head: 2, Rel: "flat:name"},
		{ID: 4, Form: "sanoi", Lemma: "sanoa", POS: "VERB", Head: 0, Rel: "root"},
		{ID: 5, Form: "näin", Lemma: "näin", POS: "ADV", Head: 4, Rel: "ccomp"},
		{ID: 6, Form: ".", Lemma: ".", POS: "PUNCT", Head: 4, Rel: "punct"},
	})
	rs := mustRules(t, cueClauseRules)

	span, author := NewActorResolver(rs).NormalizeActor(s, 1)
	if author != "Antti Palola" {
		t.Errorf("author = %q, want the appositive name", author)
	}
	if span != (model.Span{Start: 2, End: 3}) {
		t.Errorf("span = %v, want 2..3", span)
	}
}

func TestNormalizeActor_MessageNoun(t *testing.T) {
	// `Liisan ehdotuksen mukaan ...` names Liisa, not the proposal.
	s := mustSentence(t, 1, []model.Token{
		{ID: 1, Form: "Liisan", Lemma: "Liisa", POS: "PROPN", Head: 2, Rel: "nmod:poss"},
		{ID: 2, Form: "ehdotuksen", Lemma: "ehdotus", POS: "NOUN", Head: 4, Rel: "obl"},
		{ID: 3, Form: "mukaan", Lemma: "mukaan", POS: "ADP", Head: 2, Rel: "case"},
		{ID: 4, Form: "etenemme", Lemma: "edetä", POS: "VERB", Head: 0, Rel: "root"},
		{ID: 5, Form: ".", Lemma: ".", POS: "PUNCT", Head: 4, Rel: "punct"},
	})
	rs := mustRules(t, `
lexicon:
  message-nouns: [ehdotus]
rules:
  - id: probe
    kind: quote
    match: { pos: VERB }
    action: { span: { token: anchor } }`)

	span, author := NewActorResolver(rs).NormalizeActor(s, 2)
	if author != "Liisa" {
		t.Errorf("author = %q, want the possessor of the message noun", author)
	}
	if span != (model.Span{Start: 1, End: 1}) {
		t.Errorf("span = %v, want 1..1", span)
	}
}

func TestNormalizeActor_PlainToken(t *testing.T) {
	s := liisaSentence(t)
	rs := mustRules(t, cueClauseRules)

	span, author := NewActorResolver(rs).NormalizeActor(s, 1)
	if author != "Liisa" || span != (model.Span{Start: 1, End: 1}) {
		t.Errorf("got %v %q", span, author)
	}
	if span, author = NewActorResolver(rs).NormalizeActor(s, 99); author != "" || !span.Empty() {
		t.Error("out-of-range token must normalize to nothing")
	}
}
