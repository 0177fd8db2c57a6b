package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/flopo/quotedetect/internal/pipeline"
)

// Detector runs the detection pipeline over one token-table file.
type Detector interface {
	ProcessFile(ctx context.Context, path string) (*pipeline.Report, error)
}

// Summarizer optionally produces a natural-language summary of a report.
// It never influences detection.
type Summarizer interface {
	Summarize(ctx context.Context, report *pipeline.Report) (string, error)
	Provider() string
}

// DetectJob processes one input file.
type DetectJob struct {
	Path       string
	Detector   Detector
	Summarizer Summarizer // optional
	Limiter    *Limiter   // optional, guards Summarizer calls
}

// Execute runs detection and, if configured, the rate-limited summary.
// A failed summary never fails the job.
func (j *DetectJob) Execute(ctx context.Context) Result {
	report, err := j.Detector.ProcessFile(ctx, j.Path)
	if err != nil {
		return &DetectResult{Path: j.Path, Error: err}
	}

	res := &DetectResult{Path: j.Path, Report: report}
	if j.Summarizer != nil {
		if j.Limiter != nil {
			if err := j.Limiter.Wait(ctx, j.Summarizer.Provider()); err != nil {
				res.SummaryError = err
				return res
			}
		}
		summary, err := j.Summarizer.Summarize(ctx, report)
		if err != nil {
			res.SummaryError = err
		} else {
			report.LLMSummary = summary
		}
	}
	return res
}

// DetectResult is the outcome of one detection job.
type DetectResult struct {
	Path         string
	Report       *pipeline.Report
	Error        error
	SummaryError error // non-fatal
}

// GetError returns the detection error, if any.
func (r *DetectResult) GetError() error { return r.Error }

// BatchProcessor processes multiple token-table files concurrently.
type BatchProcessor struct {
	detector    Detector
	summarizer  Summarizer
	limiter     *Limiter
	concurrency int
}

// NewBatchProcessor creates a batch processor. Summarizer and limiter may
// be nil.
func NewBatchProcessor(detector Detector, summarizer Summarizer, limiter *Limiter, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		detector:    detector,
		summarizer:  summarizer,
		limiter:     limiter,
		concurrency: concurrency,
	}
}

// ProcessPaths runs detection over the given files in parallel and
// returns one result per file.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*DetectResult {
	if len(paths) == 0 {
		return []*DetectResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pool.Shutdown()
		case <-done:
		}
	}()

	for _, path := range paths {
		pool.Submit(&DetectJob{
			Path:       path,
			Detector:   b.detector,
			Summarizer: b.summarizer,
			Limiter:    b.limiter,
		})
	}

	results := pool.Wait()
	detectResults := make([]*DetectResult, len(results))
	for i, result := range results {
		detectResults[i] = result.(*DetectResult)
	}
	return detectResults
}

// ReadPathsFromFile reads input file paths from a manifest, one per line.
// Empty lines and #-comments are skipped; duplicates are dropped.
func ReadPathsFromFile(manifest string) ([]string, error) {
	file, err := os.Open(manifest)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return paths, nil
}
