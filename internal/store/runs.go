package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
)

// Run describes one chunking of one transcript.
type Run struct {
	ID       uuid.UUID
	Label    string
	Strategy chunk.Strategy
	Source   string // file path or transcript ref the run came from
}

// ChunkRow is a stored chunk plus its upload outcome.
type ChunkRow struct {
	ID           uuid.UUID
	Index        int
	Title        string
	Group        string
	Strategy     string
	Hash         string
	LineCount    int
	TokenCount   int
	Participants []string
	Topics       []string
	FileID       *string
	UploadError  *string
	UploadedAt   *time.Time
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// SaveRun writes the run and all its chunks in one transaction. A zero run.ID
// is replaced with a new one, which is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, chunks []chunk.Chunk) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO chunk_runs (id, label, strategy, source, chunk_count, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		run.ID, run.Label, string(run.Strategy), run.Source, len(chunks),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	for _, c := range chunks {
		md := c.Metadata
		_, err = tx.Exec(ctx, `
			INSERT INTO transcript_chunks (id, run_id, idx, title, group_key, strategy, content_hash,
				overlap_lines, line_count, token_count, message_count, date_start, date_end, participants, topics)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			c.ID, run.ID, c.Index, c.Title, c.Group, string(c.Strategy), c.Hash,
			c.Overlap, md.LineCount, md.TokenCount, md.MessageCount,
			nullDate(md.DateStart), nullDate(md.DateEnd), md.Participants, md.Topics,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return run.ID, nil
}

// RecordUpload stores the outcome of uploading one chunk of a run. Chunk IDs
// are derived from content, so the same ID recurs across runs of one
// transcript. A nil uploadErr records success and clears any earlier error.
func (s *Store) RecordUpload(ctx context.Context, runID, chunkID uuid.UUID, fileID string, uploadErr error) error {
	var (
		fid  *string
		emsg *string
	)
	if uploadErr != nil {
		msg := uploadErr.Error()
		emsg = &msg
	} else {
		fid = &fileID
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE transcript_chunks
		SET file_id = $2, upload_error = $3, uploaded_at = CASE WHEN $2::text IS NULL THEN NULL ELSE now() END
		WHERE run_id = $4 AND id = $1`,
		chunkID, fid, emsg, runID,
	)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record upload: chunk %s not found", chunkID)
	}
	return nil
}

// ListChunks returns the chunks of a run in index order.
func (s *Store) ListChunks(ctx context.Context, runID uuid.UUID) ([]ChunkRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, idx, title, group_key, strategy, content_hash, line_count, token_count,
			participants, topics, file_id, upload_error, uploaded_at
		FROM transcript_chunks
		WHERE run_id = $1
		ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		if err := rows.Scan(&r.ID, &r.Index, &r.Title, &r.Group, &r.Strategy, &r.Hash, &r.LineCount, &r.TokenCount,
			&r.Participants, &r.Topics, &r.FileID, &r.UploadError, &r.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return out, nil
}

// UploadedHashes returns the content hashes already uploaded for a label, so
// re-runs can skip unchanged chunks.
func (s *Store) UploadedHashes(ctx context.Context, label string) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.content_hash, c.file_id
		FROM transcript_chunks c
		JOIN chunk_runs r ON r.id = c.run_id
		WHERE r.label = $1 AND c.file_id IS NOT NULL`, label)
	if err != nil {
		return nil, fmt.Errorf("uploaded hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var hash, fileID string
		if err := rows.Scan(&hash, &fileID); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		out[hash] = fileID
	}
	return out, rows.Err()
}
