// Package pipeline orchestrates reading, quote extraction and actor
// resolution over documents.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flopo/quotedetect/internal/extract"
	"github.com/flopo/quotedetect/internal/model"
	"github.com/flopo/quotedetect/internal/rules"
)

// carryRuleID tags continuation quotes absorbed from a carried-over span;
// no authored rule produces them directly.
const carryRuleID = "carry-over"

// Pipeline runs the detection passes over documents. The rule set is
// shared read-only, so one Pipeline may serve many goroutines as long as
// each document is processed by a single one.
type Pipeline struct {
	rs        *rules.RuleSet
	extractor *extract.QuoteExtractor
	resolver  *extract.ActorResolver
	reader    *Reader
	log       *zap.Logger
}

// New creates a pipeline over a loaded rule set.
func New(rs *rules.RuleSet, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		rs:        rs,
		extractor: extract.NewQuoteExtractor(rs),
		resolver:  extract.NewActorResolver(rs),
		reader:    NewReader(log),
		log:       log,
	}
}

// Report is the externally visible output for one input: the ordered
// attribution sequence plus run counters.
type Report struct {
	Input        string              `json:"input,omitempty"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Documents    int                 `json:"documents"`
	Sentences    int                 `json:"sentences"`
	Attributions []model.Attribution `json:"attributions"`
	LLMSummary   string              `json:"llm_summary,omitempty"`
}

// ProcessFile reads a token-table file and processes every document in it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Report, error) {
	docs, err := p.reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	report := &Report{
		Input:       path,
		GeneratedAt: time.Now().UTC(),
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Documents++
		report.Sentences += len(doc.Sentences)
		report.Attributions = append(report.Attributions, p.ProcessDocument(doc)...)
	}
	return report, nil
}

// ProcessDocument runs quote extraction and actor resolution over one
// document, sentences strictly in order. The document context (last
// resolved actor, pending carry-over) is threaded explicitly from
// sentence to sentence and dies with the pass.
func (p *Pipeline) ProcessDocument(doc *model.Document) []model.Attribution {
	var out []model.Attribution
	dctx := &extract.Context{}

	for _, s := range doc.Sentences {
		matches := p.extractor.Extract(doc.ArticleID, s)

		// A span carried over from the previous sentence absorbs this
		// sentence whole if it opens a quoted paragraph and no rule
		// already claimed any of its tokens.
		if cont, ok := p.continuation(doc, s, dctx, matches); ok {
			out = append(out, cont)
		}
		dctx.Carry = nil

		var lastMatch *extract.Match
		for i := range matches {
			m := matches[i]
			actor := p.resolver.Resolve(s, m, dctx)
			if actor.Resolution == model.ResolutionDirect || actor.Resolution == model.ResolutionFallback {
				saved := actor
				dctx.LastActor = &saved
			}
			out = append(out, model.Attribution{Quote: m.Quote, Actor: actor})
			lastMatch = &matches[i]
		}

		if lastMatch != nil && lastMatch.Quote.CarryOver && dctx.LastActor != nil {
			endTok, _ := s.Token(lastMatch.Quote.Span.End)
			dctx.Carry = &extract.Carry{
				Actor:         *dctx.LastActor,
				FromSentence:  s.ID,
				FromParagraph: endTok.ParagraphID,
			}
		}
	}
	return out
}

// continuation checks whether the pending carry-over extends into this
// sentence: it must be the next sentence, open the next paragraph with a
// quotation dash or a full quotation-mark pair, and contain no tokens
// already claimed by a rule match.
func (p *Pipeline) continuation(doc *model.Document, s *model.Sentence, dctx *extract.Context, matches []extract.Match) (model.Attribution, bool) {
	carry := dctx.Carry
	if carry == nil || s.ID != carry.FromSentence+1 {
		return model.Attribution{}, false
	}
	first, _ := s.Token(1)
	last, _ := s.Token(s.Len())
	if first.ParagraphID != carry.FromParagraph+1 {
		return model.Attribution{}, false
	}
	dashOpened := first.Form == "-" || first.Form == "–" || first.Form == "—"
	markDelimited := first.IsQuoteMark() && last.IsQuoteMark() &&
		model.CompatibleMarks(first.Form, last.Form)
	if !dashOpened && !markDelimited {
		return model.Attribution{}, false
	}
	if len(matches) > 0 {
		return model.Attribution{}, false
	}

	actor := carry.Actor
	actor.Resolution = model.ResolutionAntecedent
	return model.Attribution{
		Quote: model.QuoteMatch{
			ArticleID:  doc.ArticleID,
			SentenceID: s.ID,
			Anchor:     1,
			Span:       model.Span{Start: 1, End: s.Len()},
			Type:       model.QuoteDirect,
			RuleID:     carryRuleID,
		},
		Actor: actor,
	}, true
}
