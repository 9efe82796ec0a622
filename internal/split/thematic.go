package split

import (
	"fmt"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/themes"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

type span struct{ start, end int } // [start, end)

// Themes produces topic-centric chunks: for every theme, the context windows
// around each matching line are merged, joined with a separator line and cut
// every cfg.ThemeMaxLines lines. A theme is dropped when its windows, counted
// one per match before merging, total fewer than cfg.ThemeMinLines lines. When cfg.RecentStart is set, one more chunk holds
// the lines from that date on, whatever their topics.
func Themes(content, label string, cfg Config) []chunk.Chunk {
	cfg = cfg.normalized()
	msgs := transcript.Classify(transcript.Lines(content))
	if len(msgs) == 0 {
		return nil
	}

	var out []chunk.Chunk
	for _, th := range cfg.Themes {
		out = append(out, themeChunks(msgs, label, th, cfg)...)
	}
	if c, ok := recentWindow(msgs, label, cfg); ok {
		out = append(out, c)
	}

	chunk.Renumber(out)
	return out
}

func themeChunks(msgs []transcript.Message, label string, th themes.Theme, cfg Config) []chunk.Chunk {
	var hits []int
	for i, m := range msgs {
		if th.Pattern.MatchString(m.RawLine) {
			hits = append(hits, i)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	// The floor counts every match's own window, so a dense burst of matches
	// weighs as much as the same matches spread out.
	windowed := 0
	for _, h := range hits {
		windowed += min(h+cfg.ContextAfter+1, len(msgs)) - max(h-cfg.ContextBefore, 0)
	}
	if windowed < cfg.ThemeMinLines {
		return nil
	}

	var body []transcript.Message
	sep := transcript.Message{RawLine: excerptSeparator, Text: excerptSeparator}
	for i, s := range contextSpans(hits, cfg.ContextBefore, cfg.ContextAfter, len(msgs)) {
		if i > 0 {
			body = append(body, sep)
		}
		body = append(body, msgs[s.start:s.end]...)
	}

	parts := (len(body) + cfg.ThemeMaxLines - 1) / cfg.ThemeMaxLines
	out := make([]chunk.Chunk, 0, parts)
	for p := 0; p < parts; p++ {
		end := (p + 1) * cfg.ThemeMaxLines
		if end > len(body) {
			end = len(body)
		}

		acc := newAccumulator(nil)
		for _, m := range body[p*cfg.ThemeMaxLines : end] {
			acc.add(m)
		}
		acc.topics.add(th.Label)

		title := joinTitle(label, th.Label)
		if parts > 1 {
			title = fmt.Sprintf("%s (part %d)", title, p+1)
		}
		out = append(out, acc.emit(chunk.StrategyThematic, title, th.Label))
	}
	return out
}

// contextSpans widens each hit to [hit-before, hit+after] and merges spans
// that overlap or touch, so no line is repeated inside one theme.
func contextSpans(hits []int, before, after, n int) []span {
	var spans []span
	for _, h := range hits {
		s := span{start: h - before, end: h + after + 1}
		if s.start < 0 {
			s.start = 0
		}
		if s.end > n {
			s.end = n
		}
		if k := len(spans) - 1; k >= 0 && s.start <= spans[k].end {
			if s.end > spans[k].end {
				spans[k].end = s.end
			}
			continue
		}
		spans = append(spans, s)
	}
	return spans
}

func recentWindow(msgs []transcript.Message, label string, cfg Config) (chunk.Chunk, bool) {
	if cfg.RecentStart.IsZero() {
		return chunk.Chunk{}, false
	}

	start := -1
	for i, m := range msgs {
		if m.HasTimestamp && !m.Date.Before(cfg.RecentStart) {
			start = i
			break
		}
	}
	if start < 0 {
		return chunk.Chunk{}, false
	}

	end := start + cfg.RecentMaxLines
	if end > len(msgs) {
		end = len(msgs)
	}

	acc := newAccumulator(cfg.Themes)
	for _, m := range msgs[start:end] {
		acc.add(m)
	}
	title := joinTitle(label, "recent", cfg.RecentStart.Format("01/2006"))
	return acc.emit(chunk.StrategyThematic, title, "recent"), true
}
