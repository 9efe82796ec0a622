package split

import (
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/themes"
	"github.com/MikeSquared-Agency/chatsplit/internal/transcript"
)

type set map[string]struct{}

func (s set) add(items ...string) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// accumulator is the growing buffer behind every strategy: the messages taken
// so far plus the metadata derived from exactly those messages.
type accumulator struct {
	table themes.Table

	msgs         []transcript.Message
	dateStart    time.Time
	dateEnd      time.Time
	participants set
	topics       set
	tokens       int
	messages     int
}

func newAccumulator(table themes.Table) *accumulator {
	a := &accumulator{table: table}
	a.reset()
	return a
}

func (a *accumulator) reset() {
	a.msgs = nil
	a.dateStart = time.Time{}
	a.dateEnd = time.Time{}
	a.participants = set{}
	a.topics = set{}
	a.tokens = 0
	a.messages = 0
}

func (a *accumulator) len() int { return len(a.msgs) }

func (a *accumulator) add(m transcript.Message) {
	a.msgs = append(a.msgs, m)
	a.tokens += chunk.EstimateTokens(m.RawLine)
	if m.HasTimestamp {
		a.messages++
		if a.dateStart.IsZero() || m.Date.Before(a.dateStart) {
			a.dateStart = m.Date
		}
		if m.Date.After(a.dateEnd) {
			a.dateEnd = m.Date
		}
		if m.Participant != "" {
			a.participants.add(m.Participant)
		}
	}
	a.topics.add(a.table.Match(m.RawLine)...)
}

// tail returns a copy of the last n messages.
func (a *accumulator) tail(n int) []transcript.Message {
	if n > len(a.msgs) {
		n = len(a.msgs)
	}
	out := make([]transcript.Message, n)
	copy(out, a.msgs[len(a.msgs)-n:])
	return out
}

// emit snapshots the buffer into a chunk. Index and ID are assigned later.
func (a *accumulator) emit(strategy chunk.Strategy, title, group string) chunk.Chunk {
	lines := make([]string, len(a.msgs))
	for i, m := range a.msgs {
		lines[i] = m.RawLine
	}
	return chunk.Chunk{
		Strategy: strategy,
		Title:    title,
		Group:    group,
		Lines:    lines,
		Metadata: chunk.Metadata{
			DateStart:    a.dateStart,
			DateEnd:      a.dateEnd,
			Participants: a.participants.sorted(),
			Topics:       a.topics.sorted(),
			TokenCount:   a.tokens,
			MessageCount: a.messages,
			LineCount:    len(lines),
		},
	}
}

func joinTitle(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
