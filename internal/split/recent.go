package split

import (
	"strings"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

// ExtractRecent keeps every line from the first dated line whose year is at
// least cutoffYear to the end of the transcript. Exports can interleave older
// blocks after newer ones, so a later older-dated line does not stop inclusion.
func ExtractRecent(content string, cutoffYear int) string {
	var (
		kept  []string
		found bool
	)
	for _, line := range transcript.Lines(content) {
		if !found {
			if m := transcript.ParseLine(line); m.HasTimestamp && m.Date.Year() >= cutoffYear {
				found = true
			}
		}
		if found {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Recent windows only the recent part of the transcript through the temporal
// chunker.
func Recent(content, label string, cfg Config) []chunk.Chunk {
	recent := ExtractRecent(content, cfg.CutoffYear)
	msgs := transcript.Classify(transcript.Lines(recent))
	return windowChunks(msgs, label, chunk.StrategyRecent, cfg.normalized())
}
