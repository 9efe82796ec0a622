// Package split turns a chat transcript into ordered chunk records. Each
// strategy is a pure function over the transcript text: no I/O, no shared state.
package split

import (
	"time"

	"github.com/MikeSquared-Agency/chatsplit/internal/chunk"
	"github.com/MikeSquared-Agency/chatsplit/internal/themes"
)

const (
	defaultPeriodMaxLines = 8000
	defaultMaxTokens      = 500
	defaultOverlap        = 5
	defaultContextBefore  = 5
	defaultContextAfter   = 10
	defaultThemeMaxLines  = 3000
	defaultThemeMinLines  = 100
	defaultRecentMaxLines = 4000

	// separator placed between non-contiguous excerpts of a thematic chunk
	excerptSeparator = "---"
)

// Granularity selects the calendar period the period splitter cuts on.
type Granularity string

const (
	Month Granularity = "month"
	Day   Granularity = "day"
	Year  Granularity = "year"
)

// title returns the human label of the period containing d.
func (g Granularity) title(d time.Time) string {
	switch g {
	case Day:
		return d.Format("02/01/2006")
	case Year:
		return d.Format("2006")
	default:
		return d.Format("01/2006")
	}
}

// key returns a sortable identifier of the period containing d.
func (g Granularity) key(d time.Time) string {
	switch g {
	case Day:
		return d.Format("2006-01-02")
	case Year:
		return d.Format("2006")
	default:
		return d.Format("2006-01")
	}
}

// Config is the chunking policy shared by all strategies.
type Config struct {
	Policy chunk.Policy

	// Period splitter
	PeriodMaxLines int
	Granularity    Granularity

	// Temporal chunker
	MaxTokensPerChunk   int
	OverlapMessageCount int

	Themes themes.Table

	// Thematic extractor
	ContextBefore  int
	ContextAfter   int
	ThemeMaxLines  int
	ThemeMinLines  int
	RecentStart    time.Time // zero disables the recent-window chunk
	RecentMaxLines int

	// Recency filter
	CutoffYear int
}

// DefaultConfig returns the documented defaults with the built-in theme table.
func DefaultConfig() Config {
	return Config{
		Policy:              chunk.DefaultPolicy(),
		PeriodMaxLines:      defaultPeriodMaxLines,
		Granularity:         Month,
		MaxTokensPerChunk:   defaultMaxTokens,
		OverlapMessageCount: defaultOverlap,
		Themes:              themes.Default(),
		ContextBefore:       defaultContextBefore,
		ContextAfter:        defaultContextAfter,
		ThemeMaxLines:       defaultThemeMaxLines,
		ThemeMinLines:       defaultThemeMinLines,
		RecentMaxLines:      defaultRecentMaxLines,
	}
}

// normalized fills non-positive sizes with defaults. Overlap and context radii
// may legitimately be zero, so only negative values are corrected.
func (c Config) normalized() Config {
	if c.PeriodMaxLines <= 0 {
		c.PeriodMaxLines = defaultPeriodMaxLines
	}
	if c.Granularity == "" {
		c.Granularity = Month
	}
	if c.MaxTokensPerChunk <= 0 {
		c.MaxTokensPerChunk = defaultMaxTokens
	}
	if c.OverlapMessageCount < 0 {
		c.OverlapMessageCount = 0
	}
	if c.ContextBefore < 0 {
		c.ContextBefore = 0
	}
	if c.ContextAfter < 0 {
		c.ContextAfter = 0
	}
	if c.ThemeMaxLines <= 0 {
		c.ThemeMaxLines = defaultThemeMaxLines
	}
	if c.ThemeMinLines < 0 {
		c.ThemeMinLines = 0
	}
	if c.RecentMaxLines <= 0 {
		c.RecentMaxLines = defaultRecentMaxLines
	}
	return c
}
