package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flopo/quotedetect/internal/cache"
	"github.com/flopo/quotedetect/internal/llm"
	"github.com/flopo/quotedetect/internal/model"
	"github.com/flopo/quotedetect/internal/pipeline"
	"github.com/flopo/quotedetect/internal/rules"
)

var (
	rulesPath   string
	outPath     string
	outFormat   string
	timeout     time.Duration
	noCache     bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <token-table.csv>",
	Short: "Detect and attribute quotes in one token-table file",
	Long: `Detect runs the rule set over a dependency-parsed token table:
- Load and validate the YAML rule set (any invalid rule aborts the run)
- Build per-sentence dependency trees, skipping malformed ones
- Match quote rules against every anchor token in priority order
- Resolve each quote's actor (direct dependency, rule fallback,
  nearest antecedent)

Example:
  quotedetect detect articles.csv -r rules.yaml -o quotes.csv
  quotedetect detect articles.csv -r rules.yaml --format json -o report.json
  quotedetect detect articles.csv --llm --llm-provider openai`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "rule file (default from config: rules.yaml)")
	detectCmd.Flags().StringVarP(&outPath, "output", "o", "-", "output path ('-' = stdout)")
	detectCmd.Flags().StringVar(&outFormat, "format", "csv", "output format (csv, json)")
	detectCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall processing timeout")
	detectCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the LLM summary cache")

	// LLM flags
	detectCmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an LLM summary of the report")
	detectCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	detectCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg := buildConfig()
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	rs, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d quote rules, %d actor rules from %s\n",
			len(rs.Quote), len(rs.Actor), cfg.Rules.Path)
	}

	pipe := pipeline.New(rs, logger)
	report, err := pipe.ProcessFile(ctx, args[0])
	if err != nil {
		return err
	}

	if llmEnabled {
		summarizer, err := newSummarizer(cfg)
		if err != nil {
			return err
		}
		summary, err := summarizer.Summarize(ctx, report)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: LLM summary failed: %v\n", err)
		} else {
			report.LLMSummary = summary
		}
	}

	renderer := pipeline.NewRenderer()
	if err := renderer.WriteFile(report, outPath, cfg.Output.Format); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d documents, %d sentences, %d quotes\n",
		report.Documents, report.Sentences, len(report.Attributions))
	return nil
}

// buildConfig merges defaults, config file / env (via viper) and flags,
// flags last.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetString("rules.path"); v != "" {
		cfg.Rules.Path = v
	}
	if v := viper.GetString("output.format"); v != "" {
		cfg.Output.Format = v
	}
	if v := viper.GetInt("concurrency.workers"); v > 0 {
		cfg.Concurrency.Workers = v
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := viper.GetString("llm.provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetFloat64("llm.rate_limit"); v > 0 {
		cfg.LLM.RateLimit = v
	}

	if rulesPath != "" {
		cfg.Rules.Path = rulesPath
	}
	if outFormat != "" {
		cfg.Output.Format = outFormat
	}
	cfg.Output.Verbose = verbose
	cfg.Cache.Enabled = !noCache
	if cfg.Cache.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Cache.Dir = home + "/.quotedetect/cache"
		}
	}

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "ollama":
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}
	return cfg
}

// newSummarizer wires the provider and summary cache from the config.
func newSummarizer(cfg *model.Config) (*llm.Summarizer, error) {
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var store cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
		store = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	return llm.NewSummarizer(llm.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
		MaxTokens: cfg.LLM.MaxTokens,
	}, store)
}
