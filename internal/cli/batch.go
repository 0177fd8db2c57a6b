package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flopo/quotedetect/internal/pipeline"
	"github.com/flopo/quotedetect/internal/rules"
	"github.com/flopo/quotedetect/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Process multiple token-table files in parallel",
	Long: `Batch processes many token-table files concurrently:
- Read input paths from a manifest file (one per line)
- One worker per file; sentences within a document stay sequential
- The rule set is loaded once and shared read-only by all workers
- One output file per input, written to the output directory

Example:
  quotedetect batch inputs.txt -r rules.yaml
  quotedetect batch inputs.txt --concurrency 8 --output-dir ./quotes
  quotedetect batch inputs.txt --llm --llm-provider ollama`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./quotedetect-out", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	batchCmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "rule file (default from config: rules.yaml)")
	batchCmd.Flags().StringVar(&outFormat, "format", "csv", "output format (csv, json)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the LLM summary cache")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an LLM summary per report")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	paths, err := worker.ReadPathsFromFile(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("manifest %s lists no input files", args[0])
	}

	cfg := buildConfig()
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	rs, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Inputs:  %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "Workers: %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "Rules:   %s\n", cfg.Rules.Path)

	var summarizer worker.Summarizer
	var limiter *worker.Limiter
	if llmEnabled {
		s, err := newSummarizer(cfg)
		if err != nil {
			return err
		}
		summarizer = s
		limiter = worker.NewLimiter(cfg.LLM.RateLimit, 1)
		fmt.Fprintf(os.Stderr, "LLM:     %s (%.1f req/s)\n", cfg.LLM.Provider, cfg.LLM.RateLimit)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	pipe := pipeline.New(rs, logger)
	processor := worker.NewBatchProcessor(pipe, summarizer, limiter, cfg.Concurrency.Workers)
	results := processor.ProcessPaths(ctx, paths)

	renderer := pipeline.NewRenderer()
	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Path, res.Error)
			continue
		}
		if res.SummaryError != nil {
			fmt.Fprintf(os.Stderr, "Warning: summary for %s failed: %v\n", res.Path, res.SummaryError)
		}
		out := batchOutputPath(res.Path, cfg.Output.Format)
		if err := renderer.WriteFile(res.Report, out, cfg.Output.Format); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Path, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d quotes → %s\n", res.Path, len(res.Report.Attributions), out)
	}

	fmt.Fprintf(os.Stderr, "Done: %d ok, %d failed\n", len(results)-failed, failed)
	if failed == len(results) {
		return fmt.Errorf("all %d inputs failed", failed)
	}
	return nil
}

// batchOutputPath derives an output file name in the output directory
// from the input file name.
func batchOutputPath(input, format string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	ext := ".quotes.csv"
	if format == "json" {
		ext = ".quotes.json"
	}
	return filepath.Join(outputDir, base+ext)
}
