package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatsplit/internal/api"
	"github.com/MikeSquared-Agency/chatsplit/internal/config"
	"github.com/MikeSquared-Agency/chatsplit/internal/hermes"
	"github.com/MikeSquared-Agency/chatsplit/internal/processor"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and consume transcript events from NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			slog.Info("chatsplit starting", "port", cfg.Port)

			// Uploads are enabled when a vector store is configured.
			uploads := cfg.VectorStoreKey != "" && cfg.VectorStoreID != ""
			rt, err := buildRuntime(ctx, cfg, uploads)
			if err != nil {
				return err
			}
			defer rt.Close()
			if !uploads {
				slog.Warn("vector store not configured, events are chunked without upload")
			}

			hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
			if err != nil {
				return err
			}
			defer hermesClient.Close()
			slog.Info("NATS connected", "url", cfg.NatsURL)

			var hashes processor.HashLookup
			if rt.store != nil {
				hashes = rt.store
			}
			proc := processor.New(ctx, rt.pipeline(), hermesClient, hashes, slog.Default())
			if err := hermesClient.Subscribe(hermes.SubjectTranscriptReceived, proc.HandleTranscriptReceived); err != nil {
				return err
			}

			srv := api.NewServer(cfg.Port, cfg.APIToken, rt.split)
			go func() {
				if err := srv.Start(); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()

			if err := hermesClient.Publish("swarm.agent.chatsplit.registered", map[string]any{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
				"port":      cfg.Port,
				"uploads":   uploads,
			}); err != nil {
				slog.Warn("failed to publish registration", "error", err)
			}

			slog.Info("chatsplit ready", "port", cfg.Port)
			<-ctx.Done()
			slog.Info("chatsplit stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	return cmd
}
