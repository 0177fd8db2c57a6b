package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Renderer writes attribution reports as CSV (the token-table companion
// format) or JSON.
type Renderer struct{}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// csvHeader matches the downstream tabular consumers: spans are resolved
// to sentence/word coordinates, authorHead points at the head token of
// the actor span, and resolution distinguishes an empty actor ("none")
// from every other outcome.
var csvHeader = []string{
	"articleId", "startSentenceId", "startWordId", "endSentenceId", "endWordId",
	"author", "authorHead", "quoteType", "ruleId", "resolution",
}

// WriteCSV writes the report rows in order.
func (r *Renderer) WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, att := range report.Attributions {
		q := att.Quote
		authorHead := ""
		if !att.Actor.Span.Empty() {
			authorHead = strconv.Itoa(att.Actor.SentenceID) + "-" + strconv.Itoa(att.Actor.Span.Start)
		}
		row := []string{
			q.ArticleID,
			strconv.Itoa(q.SentenceID),
			strconv.Itoa(q.Span.Start),
			strconv.Itoa(q.SentenceID),
			strconv.Itoa(q.Span.End),
			att.Actor.Author,
			authorHead,
			string(q.Type),
			q.RuleID,
			string(att.Actor.Resolution),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the full report as indented JSON.
func (r *Renderer) WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteFile renders the report to the given path in the given format
// ("csv" or "json"). An empty path or "-" writes to stdout.
func (r *Renderer) WriteFile(report *Report, path, format string) (err error) {
	w := io.Writer(os.Stdout)
	if path != "" && path != "-" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		w = f
	}

	switch format {
	case "", "csv":
		return r.WriteCSV(w, report)
	case "json":
		return r.WriteJSON(w, report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
