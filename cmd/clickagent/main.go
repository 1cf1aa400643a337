package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clickagent/clickagent/adapters/anthropic"
	"github.com/clickagent/clickagent/adapters/aws/bedrock"
	"github.com/clickagent/clickagent/adapters/e5"
	"github.com/clickagent/clickagent/adapters/openai"
	"github.com/clickagent/clickagent/adapters/pgvector"
	"github.com/clickagent/clickagent/adapters/sqlite"
	"github.com/clickagent/clickagent/agent"
	"github.com/clickagent/clickagent/config"
	"github.com/clickagent/clickagent/document"
	"github.com/clickagent/clickagent/embedding"
	"github.com/clickagent/clickagent/llm"
	"github.com/clickagent/clickagent/vectorstore"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:   "clickagent",
		Short: "import chat exports and documents, then ask questions over them",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default: clickagent.yaml, then ~/.config/clickagent/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newImportCmd(&configPath, &verbose))
	rootCmd.AddCommand(newAskCmd(&configPath, &verbose))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newImportCmd(configPath *string, verbose *bool) *cobra.Command {
	var (
		format      string
		origin      string
		dateStr     string
		storeArg    string
		minSentence int
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "import a chat export (CSV) or plain text file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if storeArg != "" {
				cfg.Store.Type = "sqlite"
				cfg.Store.SQLite = &config.SQLiteConfig{Path: storeArg}
			}
			if minSentence > 0 {
				cfg.Chunker.MinSentenceLength = minSentence
			}

			ag, closeStore, err := buildAgent(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer closeStore()

			src, err := openSource(args[0], format, origin, dateStr, cfg)
			if err != nil {
				return err
			}

			stats, err := ag.Ingest(ctx, src)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d documents (%d skipped)\n", stats.Processed, stats.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "input format: csv or text (default: by file extension)")
	cmd.Flags().StringVar(&origin, "origin", "", "origin label for text documents")
	cmd.Flags().StringVar(&dateStr, "date", "", "timestamp for text documents (YYYY-MM-DD)")
	cmd.Flags().StringVar(&storeArg, "store", "", "sqlite database path, overriding the config")
	cmd.Flags().IntVar(&minSentence, "min-sentence-len", 0, "minimum retained sentence length for text imports")
	return cmd
}

func newAskCmd(configPath *string, verbose *bool) *cobra.Command {
	var (
		topK        int
		showContext bool
		storeArg    string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "answer a question using the imported documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			cfg, logger, err := loadConfig(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if storeArg != "" {
				cfg.Store.Type = "sqlite"
				cfg.Store.SQLite = &config.SQLiteConfig{Path: storeArg}
			}
			if topK > 0 {
				cfg.Retrieval.TopK = topK
			}

			ag, closeStore, err := buildAgent(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer closeStore()

			answer, err := ag.Ask(ctx, question)
			if err != nil {
				return err
			}

			if showContext {
				fmt.Println("Context:")
				fmt.Println(agent.FormatContext(answer.Context))
				fmt.Println()
			}
			fmt.Println(answer.Text)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of documents to retrieve")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved context before the answer")
	cmd.Flags().StringVar(&storeArg, "store", "", "sqlite database path, overriding the config")
	return cmd
}

func loadConfig(path string, verbose bool) (*config.AppConfig, *zap.Logger, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
	}
	return cfg, logger, nil
}

// buildAgent wires the configured embedder, store and, when needed, the
// answer model into an agent. The returned func releases the store.
func buildAgent(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, withLLM bool) (*agent.Agent, func(), error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := buildStore(ctx, cfg, embedder)
	if err != nil {
		return nil, nil, err
	}

	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithTopK(cfg.Retrieval.TopK),
		agent.WithIngestBatchSize(cfg.Retrieval.IngestBatchSize),
		agent.WithMaxAnswerTokens(cfg.Retrieval.MaxAnswerTokens),
		agent.WithTemperature(cfg.Retrieval.Temperature),
	}
	if batch := embedBatchSize(cfg); batch > 0 {
		opts = append(opts, agent.WithEmbedBatchSize(batch))
	}

	if withLLM {
		model, err := buildLLM(ctx, cfg)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		opts = append(opts, agent.WithLLM(model))
	}

	ag, err := agent.New(ctx, store, embedder, opts...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return ag, closeStore, nil
}

func buildEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "e5":
		e5cfg := cfg.Embedder.E5
		return e5.NewEmbedder(e5.Config{
			BaseURL:   e5cfg.BaseURL,
			APIKey:    os.Getenv(e5cfg.APIKeyEnv),
			Dimension: e5cfg.Dimension,
			Timeout:   time.Duration(e5cfg.TimeoutSecs) * time.Second,
		},
			embedding.WithModel(e5cfg.Model),
			embedding.WithBatchSize(e5cfg.BatchSize),
		)
	case "openai":
		oaiCfg := cfg.Embedder.OpenAI
		var opts []embedding.Option
		if oaiCfg.Model != "" {
			opts = append(opts, embedding.WithModel(oaiCfg.Model))
		}
		if oaiCfg.BatchSize > 0 {
			opts = append(opts, embedding.WithBatchSize(oaiCfg.BatchSize))
		}
		return openai.NewOpenAIEmbedder(os.Getenv(oaiCfg.APIKeyEnv), opts...)
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

func embedBatchSize(cfg *config.AppConfig) int {
	switch cfg.Embedder.Type {
	case "e5":
		return cfg.Embedder.E5.BatchSize
	case "openai":
		return cfg.Embedder.OpenAI.BatchSize
	}
	return 0
}

func buildStore(ctx context.Context, cfg *config.AppConfig, embedder embedding.Embedder) (vectorstore.Store, func(), error) {
	switch cfg.Store.Type {
	case "sqlite":
		store, err := sqlite.NewStore(sqlite.Config{
			Path:      cfg.Store.SQLite.Path,
			Dimension: embedder.Dimension(),
			ModelID:   embedder.ModelID(),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "pgvector":
		dsn := os.Getenv(cfg.Store.PGVector.DSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("store: set %s to the Postgres connection string", cfg.Store.PGVector.DSNEnv)
		}
		store, err := pgvector.NewStore(ctx, dsn, pgvector.Config{
			Table:     cfg.Store.PGVector.Table,
			Dimension: embedder.Dimension(),
			ModelID:   embedder.ModelID(),
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.Init(ctx, false); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func buildLLM(ctx context.Context, cfg *config.AppConfig) (llm.LLM, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey: os.Getenv(cfg.LLM.APIKeyEnv),
			Model:  cfg.LLM.Model,
		})
	case "openai":
		return openai.NewOpenAILLM(os.Getenv(cfg.LLM.APIKeyEnv), cfg.LLM.Model)
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		return bedrock.NewBedrockLLM(client, bedrock.LLMModelID(cfg.LLM.Model)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// openSource picks a document source for the input file. CSV files are
// parsed as chat exports, everything else is split into sentences.
func openSource(path, format, origin, dateStr string, cfg *config.AppConfig) (document.Source, error) {
	if format == "" {
		if filepath.Ext(path) == ".csv" {
			format = "csv"
		} else {
			format = "text"
		}
	}

	var opts []document.SourceOption
	opts = append(opts, document.WithMinSentenceLength(cfg.Chunker.MinSentenceLength))
	if cfg.Chunker.MaxTokens > 0 {
		limiter, err := document.NewTokenLimiter(cfg.Chunker.MaxTokens)
		if err != nil {
			return nil, err
		}
		opts = append(opts, document.WithTokenLimiter(limiter))
	}
	if origin != "" {
		opts = append(opts, document.WithOrigin(origin))
	}
	if dateStr != "" {
		ts, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse --date: %w", err)
		}
		opts = append(opts, document.WithTimestamp(ts))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case "csv":
		src, err := document.NewChatSource(f, opts...)
		if err != nil {
			f.Close()
			return nil, err
		}
		return src, nil
	case "text":
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		return document.NewTextSource(string(data), opts...)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
