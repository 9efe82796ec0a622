package hermes

import "time"

const (
	// SubjectTranscriptReceived carries transcripts to chunk.
	SubjectTranscriptReceived = "chatsplit.transcript.received"
	// SubjectChunksReady is published once a run is chunked and stored.
	SubjectChunksReady = "chatsplit.chunks.ready"
	// SubjectUploadCompleted reports the aggregate upload outcome of a run.
	SubjectUploadCompleted = "chatsplit.upload.completed"
)

// TranscriptReceived asks for a transcript to be chunked. Exactly one of Path
// and Content is expected; Content wins when both are set.
type TranscriptReceived struct {
	TranscriptRef string `json:"transcript_ref"`
	Label         string `json:"label"`
	Strategy      string `json:"strategy"`
	Path          string `json:"path,omitempty"`
	Content       string `json:"content,omitempty"`
	CutoffYear    int    `json:"cutoff_year,omitempty"`
	Upload        bool   `json:"upload"`
}

type ChunkSummary struct {
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Hash   string `json:"hash"`
	Lines  int    `json:"lines"`
	Tokens int    `json:"tokens"`
}

type ChunksReady struct {
	RunID         string         `json:"run_id"`
	TranscriptRef string         `json:"transcript_ref"`
	Label         string         `json:"label"`
	Strategy      string         `json:"strategy"`
	Chunks        []ChunkSummary `json:"chunks"`
	CreatedAt     time.Time      `json:"created_at"`
}

type UploadCompleted struct {
	RunID    string   `json:"run_id"`
	Total    int      `json:"total"`
	Uploaded int      `json:"uploaded"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
