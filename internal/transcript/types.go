package transcript

import "time"

// Layout identifies which export layout a dated line was written in.
type Layout int

const (
	LayoutNone    Layout = iota // continuation or header line
	LayoutDash                  // DD/MM/YYYY, HH:MM - Name: text
	LayoutBracket               // [DD/MM/YYYY, HH:MM:SS] Name: text
)

// Message is a single classified transcript line. Lines that start a new chat
// message carry a date; continuation lines only carry RawLine.
type Message struct {
	Date         time.Time // UTC midnight of the message day
	Clock        string    // time of day as written, e.g. "14:05" or "14:05:33"
	Participant  string    // empty for system lines and continuations
	Text         string
	RawLine      string
	HasTimestamp bool
	Layout       Layout
}

// Year returns the message year, or 0 for continuation lines.
func (m Message) Year() int {
	if !m.HasTimestamp {
		return 0
	}
	return m.Date.Year()
}
