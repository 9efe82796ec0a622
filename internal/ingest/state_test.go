package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestState_NewAndSave(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	s, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	s.MarkProcessed("family.zip")
	s.MarkUploaded("hash-1", "file-1")
	s.ChunksProduced = 10

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	back, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !back.IsProcessed("family.zip") {
		t.Error("family.zip should be processed after reload")
	}
	if back.Uploaded["hash-1"] != "file-1" {
		t.Errorf("uploaded = %v", back.Uploaded)
	}
	if back.ChunksProduced != 10 || back.ChunksUploaded != 1 {
		t.Errorf("counters = %d/%d", back.ChunksProduced, back.ChunksUploaded)
	}
}

func TestState_IsProcessed(t *testing.T) {
	s := &State{}

	if s.IsProcessed("a.txt") {
		t.Error("a.txt should not be processed yet")
	}

	s.MarkProcessed("a.txt")

	if !s.IsProcessed("a.txt") {
		t.Error("a.txt should be processed")
	}
	if s.IsProcessed("b.txt") {
		t.Error("b.txt should not be processed")
	}
}

func TestState_AddError(t *testing.T) {
	s := &State{}
	s.AddError("something went wrong")
	s.AddError("another error")

	if len(s.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(s.Errors))
	}
	if s.Errors[0] != "something went wrong" {
		t.Errorf("error[0] = %q", s.Errors[0])
	}
}

func TestState_SaveCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "nested", "dir", "state.json")

	s := &State{path: statePath}
	if err := s.Save(); err != nil {
		t.Fatalf("Save with nested dir failed: %v", err)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created in nested dir: %v", err)
	}
}

func TestLoadState_Corrupt(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(statePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(statePath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	got := expandHome("~/test/path")
	want := filepath.Join(home, "test/path")
	if got != want {
		t.Errorf("expandHome(~/test/path) = %q, want %q", got, want)
	}

	got = expandHome("/absolute/path")
	if got != "/absolute/path" {
		t.Errorf("expandHome(/absolute/path) = %q", got)
	}
}
