package ingest

import (
	"context"
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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/slack"
	"github.com/MikeSquared-Agency/chatsplit/internal/split"
	"github.com/MikeSquared-Agency/chatsplit/internal/store"
	"github.com/MikeSquared-Agency/chatsplit/internal/upload"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu      sync.Mutex
	runs    []store.Run
	uploads map[uuid.UUID]string
	failed  map[uuid.UUID]error
	saveErr error
}

func (f *fakeStore) SaveRun(_ context.Context, run store.Run, _ []chunk.Chunk) (uuid.UUID, error) {
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	f.runs = append(f.runs, run)
	return run.ID, nil
}

func (f *fakeStore) RecordUpload(_ context.Context, _, id uuid.UUID, fileID string, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = map[uuid.UUID]string{}
		f.failed = map[uuid.UUID]error{}
	}
	if err != nil {
		f.failed[id] = err
	} else {
		f.uploads[id] = fileID
	}
	return nil
}

type fakeUploader struct {
	mu    sync.Mutex
	names []string
	fail  func(content string) bool
}

func (f *fakeUploader) Upload(_ context.Context, name, content string) (string, error) {
	f.mu.Lock()
	f.names = append(f.names, name)
	f.mu.Unlock()
	if f.fail != nil && f.fail(content) {
		return "", errors.New("rejected")
	}
	return "file-" + name, nil
}

type fakeNotifier struct {
	summaries []slack.RunSummary
	threads   []string
	err       error
}

func (f *fakeNotifier) PostThread(_ context.Context, threadTS, text string) error {
	f.threads = append(f.threads, threadTS+"|"+text)
	return nil
}

func (f *fakeNotifier) PostRunSummary(_ context.Context, s slack.RunSummary) (string, error) {
	f.summaries = append(f.summaries, s)
	return "ts", f.err
}

func transcriptText(months int) string {
	var lines []string
	for m := 1; m <= months; m++ {
		for d := 1; d <= 3; d++ {
			lines = append(lines, fmt.Sprintf("%02d/%02d/2024, 09:00 - Alice: day %d", d, m, d))
		}
	}
	return strings.Join(lines, "\n")
}

func newTestPipeline(st RunStore, up upload.Uploader, n Notifier) *Pipeline {
	var b *upload.Batcher
	if up != nil {
		b = upload.NewBatcher(up, upload.BatchConfig{Size: 2, Backoff: time.Millisecond}, quietLogger())
	}
	return NewPipeline(split.DefaultConfig(), st, b, n, quietLogger())
}

func TestProcess_StoresExportsAndUploads(t *testing.T) {
	st := &fakeStore{}
	up := &fakeUploader{fail: func(c string) bool { return strings.Contains(c, "/02/2024") }}
	n := &fakeNotifier{}
	dir := filepath.Join(t.TempDir(), "out")

	out, err := newTestPipeline(st, up, n).Process(context.Background(), Request{
		Label:     "family",
		Source:    "family.txt",
		Strategy:  chunk.StrategyPeriod,
		Content:   transcriptText(3),
		ExportDir: dir,
		Upload:    true,
	})
	require.NoError(t, err)

	require.Len(t, out.Chunks, 3)
	require.Len(t, st.runs, 1)
	assert.Equal(t, out.RunID, st.runs[0].ID)
	assert.Equal(t, "family.txt", st.runs[0].Source)

	_, err = os.Stat(filepath.Join(dir, "period_00002_2024-02.txt"))
	assert.NoError(t, err)
	require.NotNil(t, out.Manifest)

	require.NotNil(t, out.Report)
	assert.Equal(t, 2, out.Report.Uploaded())
	assert.Equal(t, 1, out.Report.Failed())
	assert.Len(t, st.uploads, 2)
	assert.Len(t, st.failed, 1)

	require.Len(t, n.summaries, 1)
	assert.Equal(t, 2, n.summaries[0].Uploaded)
	assert.Equal(t, 1, n.summaries[0].Failed)
	assert.True(t, n.summaries[0].Uploads)
	require.Len(t, n.threads, 1)
	assert.Contains(t, n.threads[0], "ts|period_00002_2024-02.txt: ")
}

func TestProcess_SkipsAlreadyUploaded(t *testing.T) {
	st := &fakeStore{}
	up := &fakeUploader{}
	p := newTestPipeline(st, up, nil)

	first, err := p.Process(context.Background(), Request{Label: "c", Strategy: chunk.StrategyPeriod, Content: transcriptText(2), Upload: true})
	require.NoError(t, err)

	done := map[string]string{first.Chunks[0].Hash: "file-old"}
	second, err := p.Process(context.Background(), Request{
		Label: "c", Strategy: chunk.StrategyPeriod, Content: transcriptText(2), Upload: true, AlreadyUploaded: done,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Reused)
	assert.Equal(t, 1, second.Report.Total())
	assert.Len(t, up.names, 3)
	assert.Equal(t, "file-old", st.uploads[second.Chunks[0].ID])
}

func TestProcess_DryRun(t *testing.T) {
	st := &fakeStore{}
	up := &fakeUploader{}

	out, err := newTestPipeline(st, up, nil).Process(context.Background(), Request{
		Label: "c", Content: transcriptText(1), Upload: true, DryRun: true,
	})
	require.NoError(t, err)
	assert.Len(t, out.Chunks, 1)
	assert.Nil(t, out.Report)
	assert.Empty(t, st.runs)
	assert.Empty(t, up.names)
}

func TestProcess_Errors(t *testing.T) {
	p := newTestPipeline(&fakeStore{saveErr: errors.New("db down")}, nil, nil)

	_, err := p.Process(context.Background(), Request{Label: "c", Content: "x"})
	assert.ErrorContains(t, err, "db down")

	_, err = p.Process(context.Background(), Request{Label: "c", Strategy: chunk.StrategyRecent, Content: "x"})
	assert.ErrorIs(t, err, split.ErrMissingCutoff)
}

func TestProcess_NotifierFailureIsNotFatal(t *testing.T) {
	n := &fakeNotifier{err: errors.New("channel_not_found")}
	out, err := newTestPipeline(nil, nil, n).Process(context.Background(), Request{Label: "c", Content: transcriptText(1)})
	require.NoError(t, err)
	assert.Len(t, out.Chunks, 1)
	assert.Len(t, n.summaries, 1)
	assert.False(t, n.summaries[0].Uploads)
	assert.Empty(t, n.threads)
}
