package hermes

import (
	"encoding/json"
	"testing"
)

func TestTranscriptReceivedParsing(t *testing.T) {
	raw := `{
		"transcript_ref": "wa-2024-export",
		"label": "Family",
		"strategy": "recent",
		"path": "/data/exports/family.zip",
		"cutoff_year": 2025,
		"upload": true
	}`

	var ev TranscriptReceived
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("failed to parse TranscriptReceived: %v", err)
	}

	if ev.TranscriptRef != "wa-2024-export" {
		t.Errorf("transcript_ref = %q", ev.TranscriptRef)
	}
	if ev.Strategy != "recent" {
		t.Errorf("strategy = %q", ev.Strategy)
	}
	if ev.Path != "/data/exports/family.zip" {
		t.Errorf("path = %q", ev.Path)
	}
	if ev.CutoffYear != 2025 {
		t.Errorf("cutoff_year = %d", ev.CutoffYear)
	}
	if !ev.Upload {
		t.Error("expected upload to be true")
	}
	if ev.Content != "" {
		t.Errorf("content should be empty, got %q", ev.Content)
	}
}

func TestUploadCompletedOmitsEmptyErrors(t *testing.T) {
	data, err := json.Marshal(UploadCompleted{RunID: "r1", Total: 22, Uploaded: 22})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"run_id":"r1","total":22,"uploaded":22,"failed":0}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestSubjects(t *testing.T) {
	for _, s := range []string{SubjectTranscriptReceived, SubjectChunksReady, SubjectUploadCompleted} {
		if len(s) < len("chatsplit.") || s[:len("chatsplit.")] != "chatsplit." {
			t.Errorf("subject %q outside the chatsplit namespace", s)
		}
	}
}
