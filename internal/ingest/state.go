package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State tracks progress for resumable directory runs.
type State struct {
	StartedAt       time.Time         `json:"started_at"`
	LastProcessedAt time.Time         `json:"last_processed_at"`
	FilesProcessed  []string          `json:"files_processed"`
	FilesRemaining  int               `json:"files_remaining"`
	ChunksProduced  int               `json:"chunks_produced"`
	ChunksUploaded  int               `json:"chunks_uploaded"`
	Uploaded        map[string]string `json:"uploaded"` // content hash -> file id
	Errors          []string          `json:"errors"`

	path string // not serialized
}

// LoadState loads the state file at path, or starts a new one.
func LoadState(path string) (*State, error) {
	p := expandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{
				StartedAt: time.Now().UTC(),
				Uploaded:  map[string]string{},
				path:      p,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Uploaded == nil {
		s.Uploaded = map[string]string{}
	}
	s.path = p
	return &s, nil
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

func (s *State) Path() string { return s.path }

// IsProcessed returns true if the given file has already been processed.
func (s *State) IsProcessed(path string) bool {
	for _, f := range s.FilesProcessed {
		if f == path {
			return true
		}
	}
	return false
}

// MarkProcessed records a file as processed.
func (s *State) MarkProcessed(path string) {
	s.FilesProcessed = append(s.FilesProcessed, path)
}

// MarkUploaded remembers a chunk hash so later runs can skip it.
func (s *State) MarkUploaded(hash, fileID string) {
	if s.Uploaded == nil {
		s.Uploaded = map[string]string{}
	}
	s.Uploaded[hash] = fileID
	s.ChunksUploaded++
}

// AddError records a processing error.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
