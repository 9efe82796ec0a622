package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatsplit/internal/config"
	"github.com/MikeSquared-Agency/chatsplit/internal/export"
	"github.com/MikeSquared-Agency/chatsplit/internal/store"
)

func chunksCmd(cfg *config.Config) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "chunks [run-id]",
		Short: "List the chunks of a stored run, or of an export directory with --dir",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if dir != "" {
				m, err := export.ReadManifest(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "# %s (%s)\n", m.Label, m.CreatedAt.Format("2006-01-02 15:04"))
				fmt.Fprintln(tw, "FILE\tTITLE\tLINES\tTOKENS\tHASH")
				for _, e := range m.Chunks {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", e.File, e.Title, e.Metadata.LineCount, e.Metadata.TokenCount, e.Hash[:12])
				}
				return nil
			}

			if len(args) == 0 {
				return errors.New("a run id or --dir is required")
			}
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required to list stored runs")
			}
			db, err := store.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.ListChunks(cmd.Context(), runID)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "#\tTITLE\tLINES\tTOKENS\tPARTICIPANTS\tUPLOAD")
			for _, r := range rows {
				status := "pending"
				switch {
				case r.FileID != nil:
					status = *r.FileID
				case r.UploadError != nil:
					status = "failed: " + *r.UploadError
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
					r.Index+1, r.Title, r.LineCount, r.TokenCount, strings.Join(r.Participants, ","), status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "read the manifest of an export directory instead of the database")
	return cmd
}
