package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/flopo/quotedetect/internal/model"
	"github.com/flopo/quotedetect/internal/rules"
)

const pipelineRules = `
lexicon:
  cue-verbs: [sanoa, jatkaa]
rules:
  - id: cue-clause
    kind: quote
    priority: 10
    match:
      all:
        - pos: VERB
        - lemma: { lexicon: cue-verbs }
        - child: { as: clause, rel: ccomp }
    action:
      span: { subtree: clause }
      type: auto
      open-ended: true
  - id: actor-subject
    kind: actor
    match:
      child:
        as: speaker
        rel: nsubj
        match: { pos: PROPN }
    action: { actor: speaker }
`

func mustRuleSet(t *testing.T, src string) *rules.RuleSet {
	t.Helper()
	rs, err := rules.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return rs
}

func mustSent(t *testing.T, id int, tokens []model.Token) *model.Sentence {
	t.Helper()
	s, err := model.NewSentence("a1", id, tokens)
	if err != nil {
		t.Fatalf("NewSentence: %v", err)
	}
	return s
}

// Sentence 1: `Liisa sanoi että se on totta .` (a named speaker).
func namedSpeakerSentence(t *testing.T, id, par int) *model.Sentence {
	t.Helper()
	return mustSent(t, id, []model.Token{
		{ID: 1, Form: "Liisa", Lemma: "Liisa", POS: "PROPN", Head: 2, Rel: "nsubj", ParagraphID: par},
		{ID: 2, Form: "sanoi", Lemma: "sanoa", POS: "VERB", Head: 0, Rel: "root", ParagraphID: par},
		{ID: 3, Form: "että", Lemma: "että", POS: "SCONJ", Head: 6, Rel: "mark", ParagraphID: par},
		{ID: 4, Form: "se", Lemma: "se", POS: "PRON", Head: 6, Rel: "nsubj:cop", ParagraphID: par},
		{ID: 5, Form: "on", Lemma: "olla", POS: "AUX", Head: 6, Rel: "cop", ParagraphID: par},
		{ID: 6, Form: "totta", Lemma: "tosi", POS: "ADJ", Head: 2, Rel: "ccomp", ParagraphID: par},
		{ID: 7, Form: ".", Lemma: ".", POS: "PUNCT", Head: 2, Rel: "punct", ParagraphID: par},
	})
}

func TestProcessDocument_NearestAntecedent(t *testing.T) {
	// Sentence 2: `Hän jatkoi vielä .` has only a pronoun subject, which
	// the actor rules skip; the previous speaker is reused.
	doc := &model.Document{ArticleID: "a1", Sentences: []*model.Sentence{
		namedSpeakerSentence(t, 1, 1),
		mustSent(t, 2, []model.Token{
			{ID: 1, Form: "Hän", Lemma: "hän", POS: "PRON", Head: 2, Rel: "nsubj", ParagraphID: 1},
			{ID: 2, Form: "jatkoi", Lemma: "jatkaa", POS: "VERB", Head: 0, Rel: "root", ParagraphID: 1},
			{ID: 3, Form: "vielä", Lemma: "vielä", POS: "ADV", Head: 2, Rel: "ccomp", ParagraphID: 1},
			{ID: 4, Form: ".", Lemma: ".", POS: "PUNCT", Head: 2, Rel: "punct", ParagraphID: 1},
		}),
	}}

	p := New(mustRuleSet(t, pipelineRules), nil)
	out := p.ProcessDocument(doc)
	if len(out) != 2 {
		t.Fatalf("expected 2 attributions, got %d", len(out))
	}

	first, second := out[0], out[1]
	if first.Actor.Resolution != model.ResolutionDirect || first.Actor.Author != "Liisa" {
		t.Errorf("sentence 1 actor = %+v", first.Actor)
	}
	if second.Actor.Resolution != model.ResolutionAntecedent {
		t.Errorf("sentence 2 resolution = %s, want nearest-antecedent", second.Actor.Resolution)
	}
	if second.Actor.Author != "Liisa" || second.Actor.SentenceID != 1 {
		t.Errorf("sentence 2 actor = %+v, want the sentence-1 speaker", second.Actor)
	}
}

func TestProcessDocument_CarryOverContinuation(t *testing.T) {
	// Sentence 1 leaves the quote open at the sentence boundary; sentence 2
	// opens the next paragraph fully mark-delimited and matches no rule, so
	// it is absorbed whole and attributed to the carried speaker.
	doc := &model.Document{ArticleID: "a1", Sentences: []*model.Sentence{
		mustSent(t, 1, []model.Token{
			{ID: 1, Form: "Liisa", Lemma: "Liisa", POS: "PROPN", Head: 2, Rel: "nsubj", ParagraphID: 1},
			{ID: 2, Form: "sanoi", Lemma: "sanoa", POS: "VERB", Head: 0, Rel: "root", ParagraphID: 1},
			{ID: 3, Form: ":", Lemma: ":", POS: "PUNCT", Head: 2, Rel: "punct", ParagraphID: 1},
			{ID: 4, Form: `"`, Lemma: `"`, POS: "PUNCT", Head: 5, Rel: "punct", ParagraphID: 1},
			{ID: 5, Form: "Tulen", Lemma: "tulla", POS: "VERB", Head: 2, Rel: "ccomp", ParagraphID: 1},
			{ID: 6, Form: "huomenna", Lemma: "huomenna", POS: "ADV", Head: 5, Rel: "advmod", ParagraphID: 1},
		}),
		mustSent(t, 2, []model.Token{
			{ID: 1, Form: `"`, Lemma: `"`, POS: "PUNCT", Head: 3, Rel: "punct", ParagraphID: 2},
			{ID: 2, Form: "Se", Lemma: "se", POS: "PRON", Head: 3, Rel: "nsubj", ParagraphID: 2},
			{ID: 3, Form: "riittää", Lemma: "riittää", POS: "VERB", Head: 0, Rel: "root", ParagraphID: 2},
			{ID: 4, Form: ".", Lemma: ".", POS: "PUNCT", Head: 3, Rel: "punct", ParagraphID: 2},
			{ID: 5, Form: `"`, Lemma: `"`, POS: "PUNCT", Head: 3, Rel: "punct", ParagraphID: 2},
		}),
	}}

	p := New(mustRuleSet(t, pipelineRules), nil)
	out := p.ProcessDocument(doc)
	if len(out) != 2 {
		t.Fatalf("expected 2 attributions, got %d", len(out))
	}

	if !out[0].Quote.CarryOver {
		t.Error("sentence 1 quote should carry over")
	}
	cont := out[1]
	if cont.Quote.RuleID != "carry-over" || cont.Quote.SentenceID != 2 {
		t.Errorf("continuation quote = %+v", cont.Quote)
	}
	if cont.Quote.Span != (model.Span{Start: 1, End: 5}) || cont.Quote.Type != model.QuoteDirect {
		t.Errorf("continuation span/type = %v %s", cont.Quote.Span, cont.Quote.Type)
	}
	if cont.Actor.Author != "Liisa" || cont.Actor.Resolution != model.ResolutionAntecedent {
		t.Errorf("continuation actor = %+v", cont.Actor)
	}
}

func TestProcessDocument_NoContinuationAcrossParagraphGap(t *testing.T) {
	// The follow-up sentence sits two paragraphs later, so the carry-over
	// lapses even though it is mark-delimited.
	doc := &model.Document{ArticleID: "a1", Sentences: []*model.Sentence{
		mustSent(t, 1, []model.Token{
			{ID: 1, Form: "Liisa", Lemma: "Liisa", POS: "PROPN", Head: 2, Rel: "nsubj", ParagraphID: 1},
			{ID: 2, Form: "sanoi", Lemma: "sanoa", POS: "VERB", Head: 0, Rel: "root", ParagraphID: 1},
			{ID: 3, Form: "näin", Lemma: "näin", POS: "ADV", Head: 2, Rel: "ccomp", ParagraphID: 1},
		}),
		mustSent(t, 2, []model.Token{
			{ID: 1, Form: `"`, Lemma: `"`, POS: "PUNCT", Head: 2, Rel: "punct", ParagraphID: 4},
			{ID: 2, Form: "Ehkä", Lemma: "ehkä", POS: "ADV", Head: 0, Rel: "root", ParagraphID: 4},
			{ID: 3, Form: `"`, Lemma: `"`, POS: "PUNCT", Head: 2, Rel: "punct", ParagraphID: 4},
		}),
	}}

	p := New(mustRuleSet(t, pipelineRules), nil)
	out := p.ProcessDocument(doc)
	if len(out) != 1 {
		t.Fatalf("expected only the sentence-1 attribution, got %d", len(out))
	}
	if out[0].Quote.SentenceID != 1 {
		t.Errorf("unexpected attribution: %+v", out[0])
	}
}

func TestProcessDocument_Deterministic(t *testing.T) {
	doc := &model.Document{ArticleID: "a1", Sentences: []*model.Sentence{
		namedSpeakerSentence(t, 1, 1),
		namedSpeakerSentence(t, 2, 2),
	}}
	p := New(mustRuleSet(t, pipelineRules), nil)

	a, err := json.Marshal(p.ProcessDocument(doc))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(p.ProcessDocument(doc))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two passes over the same document must be byte-identical")
	}
}

func TestProcessFile(t *testing.T) {
	input := tableHeader +
		"a1,1,1,1,Liisa,Liisa,PROPN,_,2,nsubj,\n" +
		"a1,1,1,2,sanoi,sanoa,VERB,_,0,root,\n" +
		"a1,1,1,3,että,että,SCONJ,_,6,mark,\n" +
		"a1,1,1,4,se,se,PRON,_,6,\"nsubj:cop\",\n" +
		"a1,1,1,5,on,olla,AUX,_,6,cop,\n" +
		"a1,1,1,6,totta,tosi,ADJ,_,2,ccomp,\n" +
		"a1,1,1,7,.,.,PUNCT,_,2,punct,\n"
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	p := New(mustRuleSet(t, pipelineRules), nil)
	report, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if report.Documents != 1 || report.Sentences != 1 || len(report.Attributions) != 1 {
		t.Fatalf("report counters: %+v", report)
	}
	if report.Input != path || report.GeneratedAt.IsZero() {
		t.Errorf("report metadata: input=%q generatedAt=%v", report.Input, report.GeneratedAt)
	}
	att := report.Attributions[0]
	if att.Quote.RuleID != "cue-clause" || att.Actor.Author != "Liisa" {
		t.Errorf("attribution = %+v", att)
	}
}

func TestProcessFile_Canceled(t *testing.T) {
	input := tableHeader + "a1,1,1,1,Hyvä,hyvä,ADJ,_,0,root,\n"
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(mustRuleSet(t, pipelineRules), nil)
	if _, err := p.ProcessFile(ctx, path); err == nil {
		t.Fatal("expected context error")
	}
}

func TestProcessFile_MissingInput(t *testing.T) {
	p := New(mustRuleSet(t, pipelineRules), nil)
	if _, err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for a missing input file")
	}
	if _, err := p.ProcessFile(context.Background(), "nope.csv"); err == nil ||
		!strings.Contains(err.Error(), "nope.csv") {
		t.Error("error should name the input path")
	}
}
