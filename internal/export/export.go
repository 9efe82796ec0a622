// Package export writes chunks to a directory as individual text files plus a
// manifest, for consumption by an external indexer.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
)

const ManifestName = "manifest.json"

// Entry is one manifest line.
type Entry struct {
	File     string         `json:"file"`
	ID       string         `json:"id"`
	Index    int            `json:"index"`
	Strategy chunk.Strategy `json:"strategy"`
	Title    string         `json:"title"`
	Hash     string         `json:"hash"`
	Overlap  int            `json:"overlap,omitempty"`
	Metadata chunk.Metadata `json:"metadata"`
}

// Manifest lists every file written by one export, in chunk order.
type Manifest struct {
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	Chunks    []Entry   `json:"chunks"`
}

// indexWidth is the zero padding of the chunk number in file names. Five
// digits cover 99999 chunks, far beyond any chat export.
const indexWidth = 5

// FileName returns the deterministic file name for a chunk:
// "<strategy>_<NNNNN>_<group>.txt", numbered from 00001. The number comes
// before the group so a lexical sort of one run's files is chunk order.
func FileName(c chunk.Chunk) string {
	group := slug.Make(c.Group)
	if group == "" {
		group = "chunk"
	}
	return fmt.Sprintf("%s_%0*d_%s.txt", c.Strategy, indexWidth, c.Index+1, group)
}

// Write creates dir if needed and writes one file per chunk plus the manifest.
func Write(dir, label string, chunks []chunk.Chunk) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	m := &Manifest{
		Label:     label,
		CreatedAt: time.Now().UTC(),
		Chunks:    make([]Entry, 0, len(chunks)),
	}
	for _, c := range chunks {
		name := FileName(c)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(c.Content()+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		m.Chunks = append(m.Chunks, Entry{
			File:     name,
			ID:       c.ID.String(),
			Index:    c.Index,
			Strategy: c.Strategy,
			Title:    c.Title,
			Hash:     c.Hash,
			Overlap:  c.Overlap,
			Metadata: c.Metadata,
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// ReadManifest loads the manifest from an export directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
