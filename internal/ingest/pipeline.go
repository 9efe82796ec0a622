// Package ingest runs transcripts through chunking, export, persistence and
// upload, either one at a time or as a resumable batch over a directory.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/export"
	"github.com/MikeSquared-Agency/chatsplit/internal/slack"
	"github.com/MikeSquared-Agency/chatsplit/internal/split"
	"github.com/MikeSquared-Agency/chatsplit/internal/store"
	"github.com/MikeSquared-Agency/chatsplit/internal/upload"
)

// RunStore persists runs and upload outcomes. *store.Store implements it.
type RunStore interface {
	SaveRun(ctx context.Context, run store.Run, chunks []chunk.Chunk) (uuid.UUID, error)
	RecordUpload(ctx context.Context, runID, chunkID uuid.UUID, fileID string, uploadErr error) error
}

// Notifier tells humans how a run went. *slack.Poster implements it.
type Notifier interface {
	PostRunSummary(ctx context.Context, s slack.RunSummary) (string, error)
	PostThread(ctx context.Context, threadTS, text string) error
}

// Request describes one transcript to process.
type Request struct {
	Label      string
	Source     string
	Strategy   chunk.Strategy
	Content    string
	CutoffYear int    // overrides the configured cutoff when positive
	ExportDir  string // empty skips file export
	Upload     bool
	DryRun     bool // chunk and export only; nothing is stored or uploaded

	// AlreadyUploaded maps content hashes to file IDs from earlier runs.
	// Matching chunks are not sent again.
	AlreadyUploaded map[string]string
}

// Outcome is everything a run produced. Report is nil when no upload ran.
type Outcome struct {
	RunID    uuid.UUID
	Chunks   []chunk.Chunk
	Manifest *export.Manifest
	Report   *upload.Report
	Reused   int
	Duration time.Duration
}

// Tokens sums the estimated tokens across chunks.
func (o *Outcome) Tokens() int {
	n := 0
	for _, c := range o.Chunks {
		n += c.Metadata.TokenCount
	}
	return n
}

// Pipeline wires the chunking engine to its optional collaborators. Nil
// collaborators are skipped.
type Pipeline struct {
	cfg      split.Config
	store    RunStore
	batcher  *upload.Batcher
	notifier Notifier
	logger   *slog.Logger
}

func NewPipeline(cfg split.Config, st RunStore, b *upload.Batcher, n Notifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, batcher: b, notifier: n, logger: logger}
}

// Process chunks one transcript. Chunking and persistence errors are returned;
// upload failures are reported per chunk in Outcome.Report.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()

	cfg := p.cfg
	if req.CutoffYear > 0 {
		cfg.CutoffYear = req.CutoffYear
	}
	if req.Strategy == "" {
		req.Strategy = chunk.StrategyAuto
	}

	chunks, err := split.Run(req.Strategy, req.Content, req.Label, cfg)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", req.Label, err)
	}
	out := &Outcome{RunID: uuid.New(), Chunks: chunks}

	p.logger.Info("transcript chunked",
		"label", req.Label,
		"strategy", string(req.Strategy),
		"chunks", len(chunks),
		"tokens", out.Tokens(),
	)

	if req.ExportDir != "" {
		m, err := export.Write(req.ExportDir, req.Label, chunks)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", req.Label, err)
		}
		out.Manifest = m
	}

	if !req.DryRun && p.store != nil {
		id, err := p.store.SaveRun(ctx, store.Run{
			ID:       out.RunID,
			Label:    req.Label,
			Strategy: req.Strategy,
			Source:   req.Source,
		}, chunks)
		if err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		out.RunID = id
	}

	if req.Upload && !req.DryRun && p.batcher != nil {
		out.Report, out.Reused = p.upload(ctx, out.RunID, chunks, req.AlreadyUploaded)
	}

	out.Duration = time.Since(start)
	p.notify(ctx, req, out)
	return out, nil
}

func (p *Pipeline) upload(ctx context.Context, runID uuid.UUID, chunks []chunk.Chunk, done map[string]string) (*upload.Report, int) {
	pending := make([]chunk.Chunk, 0, len(chunks))
	reused := 0
	for _, c := range chunks {
		if fileID, ok := done[c.Hash]; ok {
			reused++
			p.record(ctx, runID, c.ID, fileID, nil)
			continue
		}
		pending = append(pending, c)
	}
	if reused > 0 {
		p.logger.Info("skipping chunks uploaded by an earlier run", "reused", reused)
	}

	rep := p.batcher.Upload(ctx, pending)
	for i, res := range rep.Results {
		p.record(ctx, runID, pending[i].ID, res.FileID, res.Err)
	}
	return rep, reused
}

func (p *Pipeline) record(ctx context.Context, runID, chunkID uuid.UUID, fileID string, uploadErr error) {
	if p.store == nil {
		return
	}
	// The run may already be cancelled; outcomes are still worth keeping.
	if err := p.store.RecordUpload(context.WithoutCancel(ctx), runID, chunkID, fileID, uploadErr); err != nil {
		p.logger.Warn("failed to record upload", "chunk_id", chunkID, "error", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, req Request, out *Outcome) {
	summary := slack.RunSummary{
		RunID:    out.RunID.String(),
		Label:    req.Label,
		Source:   req.Source,
		Strategy: string(req.Strategy),
		Chunks:   len(out.Chunks),
		Tokens:   out.Tokens(),
		Duration: out.Duration,
	}
	if out.Report != nil {
		summary.Uploads = true
		summary.Uploaded = out.Report.Uploaded() + out.Reused
		summary.Failed = out.Report.Failed()
		for _, res := range out.Report.Results {
			if res.Err != nil {
				summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", res.Name, res.Err))
			}
		}
	}

	if p.notifier == nil {
		p.logger.Info("run summary (no Slack configured)", "summary", slack.FormatRunSummary(summary))
		return
	}
	ts, err := p.notifier.PostRunSummary(ctx, summary)
	if err != nil {
		p.logger.Warn("failed to post run summary to Slack, logging instead",
			"error", err,
			"summary", slack.FormatRunSummary(summary),
		)
		return
	}
	// The summary lists only the first few failures; the thread gets all of them.
	if len(summary.Failures) > 0 {
		if err := p.notifier.PostThread(ctx, ts, strings.Join(summary.Failures, "\n")); err != nil {
			p.logger.Warn("failed to post upload failures to Slack", "error", err)
		}
	}
}
