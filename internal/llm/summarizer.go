package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flopo/quotedetect/internal/cache"
	"github.com/flopo/quotedetect/internal/model"
	"github.com/flopo/quotedetect/internal/pipeline"
)

const summarySystemPrompt = "You are summarizing the output of a rule-based quote attribution tool " +
	"for dependency-parsed news text. Describe only what the report contains: " +
	"how many quotes were found, of which types, and to whom they were attributed. " +
	"Never speculate about content that is not in the report."

// Summarizer generates a short natural-language summary of a report,
// caching responses by report fingerprint so re-runs over unchanged
// corpora do not repeat API calls.
type Summarizer struct {
	provider Provider
	config   Config
	store    cache.Cache // optional
}

// NewSummarizer creates a summarizer; store may be nil to disable caching.
func NewSummarizer(config Config, store cache.Cache) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config, store: store}, nil
}

// Provider returns the backing provider's name.
func (s *Summarizer) Provider() string {
	return s.provider.Name()
}

// Summarize produces the summary text for a report.
func (s *Summarizer) Summarize(ctx context.Context, report *pipeline.Report) (string, error) {
	fingerprint, err := json.Marshal(report.Attributions)
	if err != nil {
		return "", fmt.Errorf("fingerprint report: %w", err)
	}
	key := cache.SummaryKey(s.provider.Name(), s.config.Model, fingerprint)

	if s.store != nil {
		if cached, found := s.store.Get(key); found {
			return string(cached), nil
		}
	}

	resp, err := s.provider.Complete(ctx, CompletionRequest{
		System:    summarySystemPrompt,
		Prompt:    BuildPrompt(report),
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	if s.store != nil {
		_ = s.store.Set(key, []byte(resp.Text), 0)
	}
	return resp.Text, nil
}

// BuildPrompt renders the report facts the model is allowed to talk
// about: counters plus the attribution table itself.
func BuildPrompt(report *pipeline.Report) string {
	var b strings.Builder

	types := map[model.QuoteType]int{}
	resolutions := map[model.Resolution]int{}
	authors := map[string]int{}
	for _, att := range report.Attributions {
		types[att.Quote.Type]++
		resolutions[att.Actor.Resolution]++
		if att.Actor.Author != "" {
			authors[att.Actor.Author]++
		}
	}

	fmt.Fprintf(&b, "Report for input %s: %d documents, %d sentences, %d attributed quotes.\n\n",
		report.Input, report.Documents, report.Sentences, len(report.Attributions))
	fmt.Fprintf(&b, "Quote types: direct=%d indirect=%d mixed=%d\n",
		types[model.QuoteDirect], types[model.QuoteIndirect], types[model.QuoteMixed])
	fmt.Fprintf(&b, "Actor resolution: direct-dependency=%d rule-fallback=%d nearest-antecedent=%d none=%d\n\n",
		resolutions[model.ResolutionDirect], resolutions[model.ResolutionFallback],
		resolutions[model.ResolutionAntecedent], resolutions[model.ResolutionNone])

	b.WriteString("Attributions (articleId, sentence, span, type, author, resolution):\n")
	for _, att := range report.Attributions {
		fmt.Fprintf(&b, "- %s s%d %d..%d %s %q %s\n",
			att.Quote.ArticleID, att.Quote.SentenceID,
			att.Quote.Span.Start, att.Quote.Span.End,
			att.Quote.Type, att.Actor.Author, att.Actor.Resolution)
	}

	b.WriteString("\nWrite a concise summary (at most two paragraphs) of who is quoted and how.\n")
	return b.String()
}
