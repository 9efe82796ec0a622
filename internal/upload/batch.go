// Package upload sends chunks to an external indexing service in bounded,
// rate-limited batches and reports the outcome of every chunk.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/export"
)

// ErrSkipped marks chunks never attempted because the run was cancelled.
var ErrSkipped = errors.New("upload skipped")

// Uploader accepts one chunk's text and returns an opaque identifier.
type Uploader interface {
	Upload(ctx context.Context, name, content string) (string, error)
}

// Attacher is implemented by uploaders with a separate attach step. A retry
// after an *AttachError then re-attaches the created file instead of uploading
// it again.
type Attacher interface {
	Attach(ctx context.Context, fileID string) error
}

// Result is the outcome for one chunk.
type Result struct {
	Index    int
	Title    string
	Name     string
	Hash     string
	FileID   string
	Attempts int
	Err      error
}

func (r Result) OK() bool { return r.Err == nil && r.FileID != "" }

// Report collects per-chunk results in chunk order. A report with failures is a
// normal outcome, not an error.
type Report struct {
	Results []Result
}

func (r *Report) Total() int { return len(r.Results) }

func (r *Report) Uploaded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int { return r.Total() - r.Uploaded() }

// Err joins the errors of every chunk that did not upload, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return errors.Join(errs...)
}

// BatchConfig bounds the pressure put on the upload service.
type BatchConfig struct {
	Size       int           // chunks in flight per batch
	Pause      time.Duration // wait between batches
	MaxRetries uint64
	Backoff    time.Duration // base of the exponential backoff
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.Size <= 0 {
		c.Size = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	return c
}

// Batcher drives an Uploader over a chunk list.
type Batcher struct {
	up     Uploader
	cfg    BatchConfig
	logger *slog.Logger
}

func NewBatcher(up Uploader, cfg BatchConfig, logger *slog.Logger) *Batcher {
	return &Batcher{up: up, cfg: cfg.withDefaults(), logger: logger}
}

// Upload sends every chunk, cfg.Size at a time, pausing cfg.Pause between
// batches. A failing chunk never stops its siblings. When ctx is cancelled the
// chunks not yet started are marked with ErrSkipped and the partial report is
// returned.
func (b *Batcher) Upload(ctx context.Context, chunks []chunk.Chunk) *Report {
	rep := &Report{Results: make([]Result, len(chunks))}
	for i, c := range chunks {
		rep.Results[i] = Result{Index: c.Index, Title: c.Title, Name: export.FileName(c), Hash: c.Hash}
	}

	for start := 0; start < len(chunks); start += b.cfg.Size {
		if start > 0 && b.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.cfg.Pause):
			}
		}
		if err := ctx.Err(); err != nil {
			b.skip(rep, start, err)
			break
		}

		end := min(start+b.cfg.Size, len(chunks))

		// A plain group: one failure must not cancel the rest of the batch.
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				b.uploadOne(ctx, chunks[i], &rep.Results[i])
				return nil
			})
		}
		_ = g.Wait()

		b.logger.Info("upload batch complete",
			"from", start,
			"to", end,
			"total", len(chunks),
		)
	}

	b.logger.Info("upload finished",
		"total", rep.Total(),
		"uploaded", rep.Uploaded(),
		"failed", rep.Failed(),
	)
	return rep
}

func (b *Batcher) uploadOne(ctx context.Context, c chunk.Chunk, res *Result) {
	backoff := retry.WithMaxRetries(b.cfg.MaxRetries, retry.NewExponential(b.cfg.Backoff))
	content := c.Content()

	attacher, _ := b.up.(Attacher)
	var created string // file uploaded by an earlier attempt, awaiting attach

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res.Attempts++
		var (
			id  string
			err error
		)
		if created != "" {
			id = created
			err = attacher.Attach(ctx, created)
		} else {
			id, err = b.up.Upload(ctx, res.Name, content)
			var ae *AttachError
			if attacher != nil && errors.As(err, &ae) {
				created = ae.FileID
			}
		}
		if err != nil {
			if IsRetryable(err) {
				b.logger.Warn("upload attempt failed, retrying", "name", res.Name, "attempt", res.Attempts, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		res.FileID = id
		return nil
	})
	if err != nil {
		res.Err = err
		b.logger.Error("upload failed", "name", res.Name, "attempts", res.Attempts, "error", err)
	}
}

func (b *Batcher) skip(rep *Report, from int, cause error) {
	for i := from; i < len(rep.Results); i++ {
		rep.Results[i].Err = fmt.Errorf("%w: %w", ErrSkipped, cause)
	}
	b.logger.Warn("upload interrupted", "skipped", len(rep.Results)-from, "error", cause)
}
