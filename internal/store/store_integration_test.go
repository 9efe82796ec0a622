//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_SaveRunAndRecordUploads(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	label := "integration-" + t.Name()

	cs := testChunks()
	runID, err := s.SaveRun(ctx, Run{Label: label, Strategy: chunk.StrategyPeriod, Source: "chat.txt"}, cs)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), "DELETE FROM chunk_runs WHERE id = $1", runID)
	})

	if err := s.RecordUpload(ctx, runID, cs[0].ID, "file-int-1", nil); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}
	if err := s.RecordUpload(ctx, runID, cs[1].ID, "", errors.New("status 500")); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}

	rows, err := s.ListChunks(ctx, runID)
	if err != nil {
		t.Fatalf("ListChunks failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(rows))
	}
	if rows[0].FileID == nil || *rows[0].FileID != "file-int-1" {
		t.Errorf("chunk 0 file_id = %v", rows[0].FileID)
	}
	if rows[0].UploadedAt == nil {
		t.Error("chunk 0 uploaded_at should be set")
	}
	if rows[1].UploadError == nil || *rows[1].UploadError != "status 500" {
		t.Errorf("chunk 1 upload_error = %v", rows[1].UploadError)
	}

	hashes, err := s.UploadedHashes(ctx, label)
	if err != nil {
		t.Fatalf("UploadedHashes failed: %v", err)
	}
	if hashes[cs[0].Hash] != "file-int-1" {
		t.Errorf("hashes = %v", hashes)
	}
}

func TestIntegration_RerunSameTranscript(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	label := "integration-" + t.Name()

	cs := testChunks()
	for i := 0; i < 2; i++ {
		runID, err := s.SaveRun(ctx, Run{Label: label, Strategy: chunk.StrategyPeriod}, cs)
		if err != nil {
			t.Fatalf("SaveRun %d failed: %v", i, err)
		}
		t.Cleanup(func() {
			_, _ = s.pool.Exec(context.Background(), "DELETE FROM chunk_runs WHERE id = $1", runID)
		})
		if err := s.RecordUpload(ctx, runID, cs[0].ID, "file-rerun", nil); err != nil {
			t.Fatalf("RecordUpload %d failed: %v", i, err)
		}
	}
}
