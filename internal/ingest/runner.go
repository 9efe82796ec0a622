package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gosimple/slug"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

// Config holds the directory run configuration.
type Config struct {
	Dir        string
	SingleFile string // process a single file only
	Strategy   chunk.Strategy
	CutoffYear int
	ExportDir  string // each transcript exports into its own slugged subdirectory
	Upload     bool
	DryRun     bool
	StatePath  string
}

// Summary totals a directory run.
type Summary struct {
	Files    int
	Chunks   int
	Uploaded int
	Failed   int
	Errors   int
}

// Runner walks a directory of chat exports and feeds each through the
// pipeline, saving progress after every file.
type Runner struct {
	cfg      Config
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewRunner(cfg Config, p *Pipeline, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, pipeline: p, logger: logger}
}

// Run processes every export not already recorded in the state file. Per-file
// failures are recorded and do not stop the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	var pending []string
	for _, f := range files {
		if !state.IsProcessed(f) {
			pending = append(pending, f)
		}
	}
	state.FilesRemaining = len(pending)
	r.logger.Info("files to process", "total", len(files), "pending", len(pending))

	sum := &Summary{}
	for _, path := range pending {
		select {
		case <-ctx.Done():
			r.logger.Info("run interrupted, saving state")
			_ = state.Save()
			return sum, ctx.Err()
		default:
		}

		if err := r.processFile(ctx, path, state, sum); err != nil {
			r.logger.Error("file failed", "path", path, "error", err)
			state.AddError(fmt.Sprintf("%s: %v", path, err))
			sum.Errors++
			if ctx.Err() != nil {
				_ = state.Save()
				return sum, ctx.Err()
			}
		} else {
			state.MarkProcessed(path)
		}
		sum.Files++
		state.FilesRemaining--
		if err := state.Save(); err != nil {
			r.logger.Warn("failed to save state", "path", state.Path(), "error", err)
		}
	}

	r.logger.Info("run complete",
		"files", sum.Files,
		"chunks", sum.Chunks,
		"uploaded", sum.Uploaded,
		"failed", sum.Failed,
		"errors", sum.Errors,
		"dry_run", r.cfg.DryRun,
	)
	return sum, nil
}

func (r *Runner) processFile(ctx context.Context, path string, state *State, sum *Summary) error {
	content, err := transcript.Load(path)
	if err != nil {
		return err
	}

	label := Label(path)
	req := Request{
		Label:           label,
		Source:          path,
		Strategy:        r.cfg.Strategy,
		Content:         content,
		CutoffYear:      r.cfg.CutoffYear,
		Upload:          r.cfg.Upload,
		DryRun:          r.cfg.DryRun,
		AlreadyUploaded: state.Uploaded,
	}
	if r.cfg.ExportDir != "" {
		req.ExportDir = filepath.Join(r.cfg.ExportDir, slug.Make(label))
	}

	r.logger.Info("processing file", "path", path, "label", label)
	out, err := r.pipeline.Process(ctx, req)
	if err != nil {
		return err
	}

	sum.Chunks += len(out.Chunks)
	state.ChunksProduced += len(out.Chunks)
	if out.Report == nil {
		return nil
	}

	sum.Uploaded += out.Report.Uploaded()
	sum.Failed += out.Report.Failed()
	for _, res := range out.Report.Results {
		if res.OK() {
			state.MarkUploaded(res.Hash, res.FileID)
		}
	}
	// A file with failed chunks stays pending so the next run retries them;
	// chunks already uploaded are skipped by hash.
	if err := out.Report.Err(); err != nil {
		return fmt.Errorf("%d of %d chunks failed to upload: %w", out.Report.Failed(), out.Report.Total(), err)
	}
	return nil
}

// Label derives a transcript label from its file name: "WhatsApp Chat with
// Family.zip" becomes "WhatsApp Chat with Family".
func Label(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isExport(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".zip":
		return true
	}
	return false
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		path := expandHome(r.cfg.SingleFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("single file not found: %s", path)
		}
		return []string{path}, nil
	}

	dir := expandHome(r.cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	exportDir := ""
	if r.cfg.ExportDir != "" {
		exportDir = filepath.Clean(expandHome(r.cfg.ExportDir))
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		// Our own chunk files must not be ingested again.
		if d.IsDir() && path != dir && filepath.Clean(path) == exportDir {
			return filepath.SkipDir
		}
		if !d.IsDir() && isExport(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("error walking export dir", "dir", dir, "error", err)
	}
	sort.Strings(files)
	return files, nil
}
