package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/hermes"
	"github.com/MikeSquared-Agency/chatsplit/internal/ingest"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

// Publisher sends events to the bus. *hermes.Client implements it.
type Publisher interface {
	Publish(subject string, data any) error
}

// HashLookup returns the content hashes already uploaded for a label.
// *store.Store implements it.
type HashLookup interface {
	UploadedHashes(ctx context.Context, label string) (map[string]string, error)
}

// Processor turns transcript events into chunking runs and announces the result.
type Processor struct {
	base     context.Context
	pipeline *ingest.Pipeline
	hermes   Publisher
	hashes   HashLookup
	logger   *slog.Logger
	timeout  time.Duration
}

// New returns a Processor. Event handling runs under base, so cancelling it
// interrupts runs in flight. hashes may be nil, in which case every chunk is
// uploaded.
func New(base context.Context, p *ingest.Pipeline, pub Publisher, hashes HashLookup, logger *slog.Logger) *Processor {
	return &Processor{
		base:     base,
		pipeline: p,
		hermes:   pub,
		hashes:   hashes,
		logger:   logger,
		timeout:  30 * time.Minute,
	}
}

// HandleTranscriptReceived is the NATS handler for chatsplit.transcript.received.
func (p *Processor) HandleTranscriptReceived(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(p.base, p.timeout)
	defer cancel()

	var evt hermes.TranscriptReceived
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcript event", "subject", subject, "error", err)
		return
	}

	if err := p.Handle(ctx, evt); err != nil {
		p.logger.Error("transcript processing failed",
			"transcript_ref", evt.TranscriptRef,
			"label", evt.Label,
			"error", err,
		)
	}
}

// Handle processes one transcript event end to end.
func (p *Processor) Handle(ctx context.Context, evt hermes.TranscriptReceived) error {
	content := evt.Content
	if content == "" {
		if evt.Path == "" {
			return errors.New("event carries neither content nor path")
		}
		loaded, err := transcript.Load(evt.Path)
		if err != nil {
			return fmt.Errorf("load transcript: %w", err)
		}
		content = loaded
	}

	label := evt.Label
	if label == "" {
		label = evt.TranscriptRef
	}
	if label == "" && evt.Path != "" {
		label = ingest.Label(evt.Path)
	}

	req := ingest.Request{
		Label:      label,
		Source:     evt.Path,
		Strategy:   chunk.Strategy(evt.Strategy),
		Content:    content,
		CutoffYear: evt.CutoffYear,
		Upload:     evt.Upload,
	}
	if req.Source == "" {
		req.Source = evt.TranscriptRef
	}
	if evt.Upload && p.hashes != nil {
		done, err := p.hashes.UploadedHashes(ctx, label)
		if err != nil {
			p.logger.Warn("failed to load uploaded hashes, uploading everything", "label", label, "error", err)
		} else {
			req.AlreadyUploaded = done
		}
	}

	out, err := p.pipeline.Process(ctx, req)
	if err != nil {
		return err
	}

	strategy := evt.Strategy
	if strategy == "" {
		strategy = string(chunk.StrategyAuto)
	}
	ready := hermes.ChunksReady{
		RunID:         out.RunID.String(),
		TranscriptRef: evt.TranscriptRef,
		Label:         label,
		Strategy:      strategy,
		Chunks:        make([]hermes.ChunkSummary, 0, len(out.Chunks)),
		CreatedAt:     time.Now().UTC(),
	}
	for _, c := range out.Chunks {
		ready.Chunks = append(ready.Chunks, hermes.ChunkSummary{
			ID:     c.ID.String(),
			Index:  c.Index,
			Title:  c.Title,
			Hash:   c.Hash,
			Lines:  c.Metadata.LineCount,
			Tokens: c.Metadata.TokenCount,
		})
	}
	if err := p.hermes.Publish(hermes.SubjectChunksReady, ready); err != nil {
		p.logger.Warn("failed to publish chunks ready", "run_id", ready.RunID, "error", err)
	}

	if out.Report == nil {
		return nil
	}

	done := hermes.UploadCompleted{
		RunID:    ready.RunID,
		Total:    out.Report.Total() + out.Reused,
		Uploaded: out.Report.Uploaded() + out.Reused,
		Failed:   out.Report.Failed(),
	}
	for _, res := range out.Report.Results {
		if res.Err != nil {
			done.Errors = append(done.Errors, fmt.Sprintf("%s: %v", res.Name, res.Err))
		}
	}
	if err := p.hermes.Publish(hermes.SubjectUploadCompleted, done); err != nil {
		p.logger.Warn("failed to publish upload completed", "run_id", done.RunID, "error", err)
	}
	return nil
}
