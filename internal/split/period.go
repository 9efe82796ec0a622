package split

import (
	"fmt"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

const finalPeriod = "final"

// Periods cuts the transcript into contiguous chunks, one per calendar period,
// with a forced cut whenever a chunk reaches cfg.PeriodMaxLines.
func Periods(content, label string, cfg Config) []chunk.Chunk {
	return periodChunks(transcript.Classify(transcript.Lines(content)), label, cfg.normalized())
}

func periodChunks(msgs []transcript.Message, label string, cfg Config) []chunk.Chunk {
	var (
		out     []chunk.Chunk
		acc     = newAccumulator(cfg.Themes)
		current string // title of the active period, "" until the first dated line
		group   string
		part    = 1
	)

	flush := func(forced bool) {
		period, g := current, group
		if period == "" {
			period, g = finalPeriod, finalPeriod
		}
		title := joinTitle(label, period)
		if forced || part > 1 {
			title = fmt.Sprintf("%s (part %d)", title, part)
		}
		out = append(out, acc.emit(chunk.StrategyPeriod, title, g))
		acc.reset()
		if forced {
			part++
		}
	}

	for _, m := range msgs {
		if m.HasTimestamp {
			if p := cfg.Granularity.title(m.Date); p != current {
				// Lines ahead of the first dated line stay with the first period.
				if current != "" && acc.len() > 0 {
					flush(false)
				}
				current = p
				group = cfg.Granularity.key(m.Date)
				part = 1
			}
		}

		acc.add(m)

		if acc.len() >= cfg.PeriodMaxLines {
			flush(true)
		}
	}

	if acc.len() > 0 {
		flush(false)
	}

	chunk.Renumber(out)
	return out
}
