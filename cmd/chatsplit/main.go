package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatsplit/internal/config"
	"github.com/MikeSquared-Agency/chatsplit/internal/ingest"
	"github.com/MikeSquared-Agency/chatsplit/internal/slack"
	"github.com/MikeSquared-Agency/chatsplit/internal/split"
	"github.com/MikeSquared-Agency/chatsplit/internal/store"
	"github.com/MikeSquared-Agency/chatsplit/internal/upload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "chatsplit",
		Short:        "Split WhatsApp chat exports into chunks for retrieval tools",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Command output owns stdout, except for the long-running service.
			out := io.Writer(os.Stderr)
			if cmd.Name() == "serve" {
				out = os.Stdout
			}
			setupLogging(cfg.LogLevel, out)
		},
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	root.PersistentFlags().StringVar(&cfg.ThemesFile, "themes", cfg.ThemesFile, "YAML theme table replacing the built-in one")

	root.AddCommand(
		splitCmd(&cfg),
		checkCmd(&cfg),
		uploadCmd(&cfg),
		chunksCmd(&cfg),
		serveCmd(&cfg),
	)
	return root
}

func setupLogging(level string, w io.Writer) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// runtime holds the optional collaborators built from configuration. Each
// one is nil when its settings are absent.
type runtime struct {
	split   split.Config
	store   *store.Store
	batcher *upload.Batcher
	slack   *slack.Poster
}

func (r *runtime) Close() {
	if r.store != nil {
		r.store.Close()
	}
}

func (r *runtime) pipeline() *ingest.Pipeline {
	var (
		st ingest.RunStore
		n  ingest.Notifier
	)
	// Typed nils would defeat the pipeline's nil checks.
	if r.store != nil {
		st = r.store
	}
	if r.slack != nil {
		n = r.slack
	}
	return ingest.NewPipeline(r.split, st, r.batcher, n, slog.Default())
}

func buildRuntime(ctx context.Context, cfg *config.Config, wantUpload bool) (*runtime, error) {
	sc, err := cfg.Split()
	if err != nil {
		return nil, err
	}
	rt := &runtime{split: sc}

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		rt.store = db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, runs are not persisted")
	}

	if wantUpload {
		client, err := upload.NewVectorStoreClient(cfg.VectorStore())
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.batcher = upload.NewBatcher(client, cfg.Batch(), slog.Default())
		slog.Info("vector store ready", "vector_store_id", cfg.VectorStoreID)
	}

	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		rt.slack = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}
	return rt, nil
}
