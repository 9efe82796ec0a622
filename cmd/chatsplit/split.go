package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/config"
	"github.com/MikeSquared-Agency/chatsplit/internal/ingest"
	"github.com/MikeSquared-Agency/chatsplit/internal/split"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

func strategyUsage() string {
	names := make([]string, 0, 5)
	for _, s := range split.Strategies() {
		names = append(names, string(s))
	}
	return "one of " + strings.Join(names, ", ")
}

func splitCmd(cfg *config.Config) *cobra.Command {
	var label, out string

	cmd := &cobra.Command{
		Use:   "split <export.txt|export.zip>",
		Short: "Chunk one chat export and optionally write the chunks to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := cfg.Split()
			if err != nil {
				return err
			}
			content, err := transcript.Load(args[0])
			if err != nil {
				return err
			}
			if label == "" {
				label = ingest.Label(args[0])
			}

			p := ingest.NewPipeline(sc, nil, nil, nil, slog.Default())
			res, err := p.Process(cmd.Context(), ingest.Request{
				Label:      label,
				Source:     args[0],
				Strategy:   chunk.Strategy(cfg.Strategy),
				Content:    content,
				CutoffYear: cfg.CutoffYear,
				ExportDir:  out,
				DryRun:     true,
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTITLE\tLINES\tTOKENS\tPARTICIPANTS\tTOPICS")
			for _, c := range res.Chunks {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
					c.Index+1, c.Title, c.Metadata.LineCount, c.Metadata.TokenCount,
					strings.Join(c.Metadata.Participants, ","), strings.Join(c.Metadata.Topics, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if out != "" {
				fmt.Printf("wrote %d chunks to %s\n", len(res.Chunks), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Strategy, "strategy", cfg.Strategy, strategyUsage())
	cmd.Flags().IntVar(&cfg.CutoffYear, "cutoff-year", cfg.CutoffYear, "first year kept by the recent strategy")
	cmd.Flags().StringVar(&cfg.Granularity, "granularity", cfg.Granularity, "period size: day, month or year")
	cmd.Flags().StringVar(&label, "label", "", "title prefix (default: file name)")
	cmd.Flags().StringVarP(&out, "out", "o", cfg.ExportDir, "directory to write chunk files and manifest into")
	return cmd
}

func checkCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check <export.txt|export.zip>",
		Short: "Report whether a chat export is large enough to need splitting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := cfg.Split()
			if err != nil {
				return err
			}
			content, err := transcript.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("lines:  %d (limit %d)\n", chunk.LineCount(content), sc.Policy.MaxLines)
			fmt.Printf("bytes:  %d (limit %d)\n", len(content), sc.Policy.MaxBytes)
			fmt.Printf("tokens: ~%d\n", chunk.EstimateTokens(content))
			if sc.Policy.ShouldSplit(content) {
				fmt.Println("split:  yes")
			} else {
				fmt.Println("split:  no")
			}
			return nil
		},
	}
}
