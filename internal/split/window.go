package split

import (
	"fmt"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

// Temporal classifies the transcript and windows it into token-budgeted,
// overlapping chunks.
func Temporal(content, label string, cfg Config) []chunk.Chunk {
	return Window(transcript.Classify(transcript.Lines(content)), label, cfg)
}

// Window is the sliding-window stage of the temporal chunker. It flushes once
// the estimated tokens exceed cfg.MaxTokensPerChunk and the buffer holds more
// than cfg.OverlapMessageCount lines, then seeds the next buffer with the last
// cfg.OverlapMessageCount lines. The seeded chunk's dates, participants, topics
// and token count are derived from those carried lines only.
func Window(msgs []transcript.Message, label string, cfg Config) []chunk.Chunk {
	return windowChunks(msgs, label, chunk.StrategyTemporal, cfg.normalized())
}

func windowChunks(msgs []transcript.Message, label string, strategy chunk.Strategy, cfg Config) []chunk.Chunk {
	var (
		out     []chunk.Chunk
		acc     = newAccumulator(cfg.Themes)
		carried int
	)

	emit := func() {
		c := acc.emit(strategy, "", "")
		c.Overlap = carried
		out = append(out, c)
	}

	for _, m := range msgs {
		acc.add(m)

		if acc.tokens > cfg.MaxTokensPerChunk && acc.len() > cfg.OverlapMessageCount {
			emit()
			tail := acc.tail(cfg.OverlapMessageCount)
			acc.reset()
			for _, t := range tail {
				acc.add(t)
			}
			carried = len(tail)
		}
	}

	// A buffer holding nothing but carried overlap adds no new line.
	if acc.len() > carried {
		emit()
	}

	for i := range out {
		out[i].Title = joinTitle(label, fmt.Sprintf("#%03d", i+1))
		if d := out[i].Metadata.DateStart; !d.IsZero() {
			out[i].Group = d.Format("2006-01")
		}
	}
	chunk.Renumber(out)
	return out
}
