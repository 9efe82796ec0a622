package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_DashLayout(t *testing.T) {
	msg := ParseLine("12/01/2024, 14:05 - Alice: shall we record the podcast?")

	require.True(t, msg.HasTimestamp)
	assert.Equal(t, LayoutDash, msg.Layout)
	assert.Equal(t, time.Date(2024, time.January, 12, 0, 0, 0, 0, time.UTC), msg.Date)
	assert.Equal(t, "14:05", msg.Clock)
	assert.Equal(t, "Alice", msg.Participant)
	assert.Equal(t, "shall we record the podcast?", msg.Text)
	assert.Equal(t, 2024, msg.Year())
}

func TestParseLine_BracketLayout(t *testing.T) {
	msg := ParseLine("[03/02/2025, 09:15:42] Jean-Marc Dupont: On se voit à l'EPFL")

	require.True(t, msg.HasTimestamp)
	assert.Equal(t, LayoutBracket, msg.Layout)
	assert.Equal(t, time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC), msg.Date)
	assert.Equal(t, "09:15:42", msg.Clock)
	assert.Equal(t, "Jean-Marc Dupont", msg.Participant)
	assert.Equal(t, "On se voit à l'EPFL", msg.Text)
}

func TestParseLine_LeadingDirectionMark(t *testing.T) {
	msg := ParseLine("\u200e[03/02/2025, 09:15:42] Bob: \u200eimage omitted")

	require.True(t, msg.HasTimestamp)
	assert.Equal(t, "Bob", msg.Participant)
	assert.Equal(t, "\u200e[03/02/2025, 09:15:42] Bob: \u200eimage omitted", msg.RawLine)
}

func TestParseLine_TwoDigitYearAndMeridiem(t *testing.T) {
	msg := ParseLine("5/6/24, 9:07 PM - Carol: ok")

	require.True(t, msg.HasTimestamp)
	assert.Equal(t, 2024, msg.Date.Year())
	assert.Equal(t, time.June, msg.Date.Month())
	assert.Equal(t, 5, msg.Date.Day())
	assert.Equal(t, "9:07 PM", msg.Clock)
	assert.Equal(t, "Carol", msg.Participant)
}

func TestParseLine_SystemLineHasNoParticipant(t *testing.T) {
	msg := ParseLine("12/01/2024, 14:05 - Messages and calls are end-to-end encrypted.")

	require.True(t, msg.HasTimestamp)
	assert.Empty(t, msg.Participant)
	assert.Equal(t, "Messages and calls are end-to-end encrypted.", msg.Text)
}

func TestParseLine_Continuation(t *testing.T) {
	cases := []string{
		"",
		"just a wrapped second line of a long message",
		"see you at 12/01/2024, 14:05 - tomorrow",
		"31/02/2024, 10:00 - Alice: not a real day",
		"12/13/2024, 10:00 - Alice: no thirteenth month",
		"[12/01/2024 14:05:33 Alice: missing bracket",
	}
	for _, line := range cases {
		msg := ParseLine(line)
		assert.False(t, msg.HasTimestamp, "line %q", line)
		assert.Equal(t, line, msg.RawLine)
		assert.Empty(t, msg.Participant)
		assert.True(t, msg.Date.IsZero())
		assert.Equal(t, 0, msg.Year())
	}
}

func TestClassify_PreservesOrder(t *testing.T) {
	lines := []string{
		"header exported by the phone",
		"12/01/2024, 14:05 - Alice: one",
		"wrapped",
		"[13/01/2024, 08:00:00] Bob: two",
	}

	msgs := Classify(lines)

	require.Len(t, msgs, 4)
	for i := range lines {
		assert.Equal(t, lines[i], msgs[i].RawLine)
	}
	assert.False(t, msgs[0].HasTimestamp)
	assert.True(t, msgs[1].HasTimestamp)
	assert.False(t, msgs[2].HasTimestamp)
	assert.True(t, msgs[3].HasTimestamp)
}

func TestLines(t *testing.T) {
	assert.Nil(t, Lines(""))
	assert.Equal(t, []string{"a", "b"}, Lines("a\nb"))
	assert.Equal(t, []string{"a", "b"}, Lines("a\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, Lines("a\r\n\r\nb\r\n"))
}
