package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/config"
	"github.com/MikeSquared-Agency/chatsplit/internal/ingest"
)

func uploadCmd(cfg *config.Config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "upload <export|directory>",
		Short: "Chunk chat exports and upload the chunks to the vector store",
		Long: "Chunks a single export or every .txt/.zip export under a directory and uploads\n" +
			"the chunks. Progress is kept in a state file so interrupted runs resume, and\n" +
			"chunks uploaded by an earlier run are not sent again.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := buildRuntime(ctx, cfg, !dryRun)
			if err != nil {
				return err
			}
			defer rt.Close()

			rc := ingest.Config{
				Strategy:   chunk.Strategy(cfg.Strategy),
				CutoffYear: cfg.CutoffYear,
				ExportDir:  cfg.ExportDir,
				Upload:     !dryRun,
				DryRun:     dryRun,
				StatePath:  cfg.StatePath,
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if info.IsDir() {
				rc.Dir = args[0]
			} else {
				rc.SingleFile = args[0]
			}

			sum, err := ingest.NewRunner(rc, rt.pipeline(), slog.Default()).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("files: %d  chunks: %d  uploaded: %d  failed: %d\n", sum.Files, sum.Chunks, sum.Uploaded, sum.Failed)
			if sum.Errors > 0 {
				return fmt.Errorf("%d files had errors; rerun to retry them", sum.Errors)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Strategy, "strategy", cfg.Strategy, strategyUsage())
	cmd.Flags().IntVar(&cfg.CutoffYear, "cutoff-year", cfg.CutoffYear, "first year kept by the recent strategy")
	cmd.Flags().StringVarP(&cfg.ExportDir, "out", "o", cfg.ExportDir, "also write chunk files under this directory")
	cmd.Flags().StringVar(&cfg.StatePath, "state", cfg.StatePath, "resume state file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "chunk and export without storing or uploading")
	return cmd
}
