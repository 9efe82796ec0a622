package transcript

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Android exports: "12/01/2024, 14:05 - Alice: hello"
// iOS exports:     "[12/01/2024, 14:05:33] Alice: hello"
var (
	dashLine    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?(?:[\s\x{202F}]?[AaPp][Mm])?)\s+[-–]\s+(.*)$`)
	bracketLine = regexp.MustCompile(`^\[(\d{1,2})/(\d{1,2})/(\d{2}|\d{4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?(?:[\s\x{202F}]?[AaPp][Mm])?)\]\s+(.*)$`)
)

// invisible marks iOS and some editors prepend to exported lines.
const leadingMarks = "\u200e\u200f\ufeff"

// ParseLine classifies a single transcript line. A line that does not open with
// one of the known timestamp layouts, or whose date is not a real calendar day,
// is returned as a continuation carrying only RawLine and Text.
func ParseLine(line string) Message {
	msg := Message{RawLine: line, Text: line}

	trimmed := strings.TrimLeft(line, leadingMarks)

	layout := LayoutDash
	m := dashLine.FindStringSubmatch(trimmed)
	if m == nil {
		layout = LayoutBracket
		m = bracketLine.FindStringSubmatch(trimmed)
	}
	if m == nil {
		return msg
	}

	date, ok := parseDate(m[1], m[2], m[3])
	if !ok {
		return msg
	}

	msg.Date = date
	msg.Clock = m[4]
	msg.HasTimestamp = true
	msg.Layout = layout
	msg.Participant, msg.Text = splitAuthor(strings.TrimLeft(m[5], leadingMarks))
	return msg
}

// Classify parses every line in order. The result has the same length and
// order as lines.
func Classify(lines []string) []Message {
	msgs := make([]Message, len(lines))
	for i, line := range lines {
		msgs[i] = ParseLine(line)
	}
	return msgs
}

// Lines splits transcript content into lines. A single trailing newline does
// not produce an extra empty line and CRLF endings are normalised.
func Lines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func parseDate(dd, mm, yy string) (time.Time, bool) {
	day, err := strconv.Atoi(dd)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(mm)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yy)
	if err != nil {
		return time.Time{}, false
	}
	if len(yy) == 2 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31/02 into March; reject those.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// splitAuthor separates "Name: text". System lines ("Alice joined using this
// group's invite link") have no author.
func splitAuthor(rest string) (string, string) {
	idx := strings.Index(rest, ": ")
	if idx <= 0 {
		if strings.HasSuffix(rest, ":") && !strings.Contains(rest[:len(rest)-1], ":") {
			return strings.TrimSpace(rest[:len(rest)-1]), ""
		}
		return "", rest
	}
	return strings.TrimSpace(rest[:idx]), rest[idx+2:]
}
