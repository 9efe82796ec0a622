package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/chatsplit/internal/hermes"
	"github.com/MikeSquared-Agency/chatsplit/internal/ingest"
	"github.com/MikeSquared-Agency/chatsplit/internal/split"
	"github.com/MikeSquared-Agency/chatsplit/internal/upload"
)

type published struct {
	subject string
	data    any
}

type fakeBus struct {
	events []published
}

func (f *fakeBus) Publish(subject string, data any) error {
	f.events = append(f.events, published{subject, data})
	return nil
}

type fakeHashes struct {
	done map[string]string
	err  error
}

func (f *fakeHashes) UploadedHashes(context.Context, string) (map[string]string, error) {
	return f.done, f.err
}

type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeUploader) Upload(_ context.Context, name, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	if strings.Contains(content, "/03/2024") {
		return "", errors.New("rejected")
	}
	return "file-" + name, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func transcriptText(months int) string {
	var lines []string
	for m := 1; m <= months; m++ {
		lines = append(lines, fmt.Sprintf("01/%02d/2024, 09:00 - Alice: month %d", m, m))
	}
	return strings.Join(lines, "\n")
}

func newProcessor(up upload.Uploader, bus Publisher, hashes HashLookup) *Processor {
	return newProcessorWithContext(context.Background(), up, bus, hashes)
}

func newProcessorWithContext(ctx context.Context, up upload.Uploader, bus Publisher, hashes HashLookup) *Processor {
	var b *upload.Batcher
	if up != nil {
		b = upload.NewBatcher(up, upload.BatchConfig{Size: 2, Backoff: time.Millisecond}, quietLogger())
	}
	p := ingest.NewPipeline(split.DefaultConfig(), nil, b, nil, quietLogger())
	return New(ctx, p, bus, hashes, quietLogger())
}

func TestHandle_PublishesChunksReady(t *testing.T) {
	bus := &fakeBus{}
	proc := newProcessor(nil, bus, nil)

	err := proc.Handle(context.Background(), hermes.TranscriptReceived{
		TranscriptRef: "ref-1",
		Label:         "family",
		Strategy:      "period",
		Content:       transcriptText(2),
	})
	require.NoError(t, err)

	require.Len(t, bus.events, 1)
	assert.Equal(t, hermes.SubjectChunksReady, bus.events[0].subject)
	ready := bus.events[0].data.(hermes.ChunksReady)
	assert.Equal(t, "ref-1", ready.TranscriptRef)
	assert.Equal(t, "period", ready.Strategy)
	require.Len(t, ready.Chunks, 2)
	assert.Equal(t, "family 01/2024", ready.Chunks[0].Title)
	assert.Equal(t, 1, ready.Chunks[1].Index)
	assert.Equal(t, 1, ready.Chunks[0].Lines)
}

func TestHandle_UploadReportsOutcome(t *testing.T) {
	bus := &fakeBus{}
	up := &fakeUploader{}
	proc := newProcessor(up, bus, nil)

	require.NoError(t, proc.Handle(context.Background(), hermes.TranscriptReceived{
		Label: "family", Strategy: "period", Content: transcriptText(3), Upload: true,
	}))

	require.Len(t, bus.events, 2)
	assert.Equal(t, hermes.SubjectUploadCompleted, bus.events[1].subject)
	done := bus.events[1].data.(hermes.UploadCompleted)
	assert.Equal(t, 3, done.Total)
	assert.Equal(t, 2, done.Uploaded)
	assert.Equal(t, 1, done.Failed)
	require.Len(t, done.Errors, 1)
	assert.Contains(t, done.Errors[0], "period_00003_2024-03.txt")
}

func TestHandle_SkipsUploadedHashes(t *testing.T) {
	bus := &fakeBus{}
	up := &fakeUploader{}
	proc := newProcessor(up, bus, nil)

	evt := hermes.TranscriptReceived{Label: "c", Strategy: "period", Content: transcriptText(2), Upload: true}
	require.NoError(t, proc.Handle(context.Background(), evt))
	ready := bus.events[0].data.(hermes.ChunksReady)

	hashes := &fakeHashes{done: map[string]string{ready.Chunks[0].Hash: "file-old"}}
	again := newProcessor(up, &fakeBus{}, hashes)
	require.NoError(t, again.Handle(context.Background(), evt))
	assert.Len(t, up.names, 3)
}

func TestHandle_HashLookupFailureUploadsEverything(t *testing.T) {
	up := &fakeUploader{}
	proc := newProcessor(up, &fakeBus{}, &fakeHashes{err: errors.New("db down")})

	require.NoError(t, proc.Handle(context.Background(), hermes.TranscriptReceived{
		Label: "c", Strategy: "period", Content: transcriptText(2), Upload: true,
	}))
	assert.Len(t, up.names, 2)
}

func TestHandle_LoadsFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WhatsApp Chat with Work.txt")
	require.NoError(t, os.WriteFile(path, []byte(transcriptText(1)), 0o644))

	bus := &fakeBus{}
	require.NoError(t, newProcessor(nil, bus, nil).Handle(context.Background(), hermes.TranscriptReceived{Path: path}))

	ready := bus.events[0].data.(hermes.ChunksReady)
	assert.Equal(t, "WhatsApp Chat with Work", ready.Label)
	assert.Equal(t, "auto", ready.Strategy)
	require.Len(t, ready.Chunks, 1)
}

func TestHandle_Errors(t *testing.T) {
	bus := &fakeBus{}
	proc := newProcessor(nil, bus, nil)

	err := proc.Handle(context.Background(), hermes.TranscriptReceived{Label: "x"})
	assert.Error(t, err)

	err = proc.Handle(context.Background(), hermes.TranscriptReceived{Label: "x", Content: "hi", Strategy: "recent"})
	assert.ErrorIs(t, err, split.ErrMissingCutoff)

	err = proc.Handle(context.Background(), hermes.TranscriptReceived{Path: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)

	assert.Empty(t, bus.events)
}

func TestHandleTranscriptReceived(t *testing.T) {
	bus := &fakeBus{}
	proc := newProcessor(nil, bus, nil)

	proc.HandleTranscriptReceived(hermes.SubjectTranscriptReceived, []byte("{not json"))
	assert.Empty(t, bus.events)

	data, err := json.Marshal(hermes.TranscriptReceived{Label: "c", Content: transcriptText(1)})
	require.NoError(t, err)
	proc.HandleTranscriptReceived(hermes.SubjectTranscriptReceived, data)
	require.Len(t, bus.events, 1)
}

func TestHandleTranscriptReceived_ShutdownSkipsUploads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bus := &fakeBus{}
	up := &fakeUploader{}
	proc := newProcessorWithContext(ctx, up, bus, nil)

	data, err := json.Marshal(hermes.TranscriptReceived{Label: "c", Strategy: "period", Content: transcriptText(2), Upload: true})
	require.NoError(t, err)
	proc.HandleTranscriptReceived(hermes.SubjectTranscriptReceived, data)

	require.Len(t, bus.events, 2)
	done := bus.events[1].data.(hermes.UploadCompleted)
	assert.Equal(t, 2, done.Failed)
	assert.Zero(t, done.Uploaded)
	require.Len(t, done.Errors, 2)
	assert.Contains(t, done.Errors[0], upload.ErrSkipped.Error())
	assert.Empty(t, up.names)
}
