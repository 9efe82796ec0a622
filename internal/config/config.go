package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/chatsplit/internal/split"
	"github.com/MikeSquared-Agency/chatsplit/internal/themes"
	"github.com/MikeSquared-Agency/chatsplit/internal/upload"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	APIToken    string

	SlackBotToken string
	SlackChannel  string

	// Chunking policy
	Strategy       string
	MaxLines       int
	MaxBytes       int
	PeriodMaxLines int
	Granularity    string
	MaxTokens      int
	Overlap        int
	ContextBefore  int
	ContextAfter   int
	ThemeMaxLines  int
	ThemeMinLines  int
	RecentStart    string // YYYY-MM, empty disables the recent-window chunk
	RecentMaxLines int
	CutoffYear     int
	ThemesFile     string

	ExportDir string
	StatePath string

	// Upload target
	VectorStoreURL   string
	VectorStoreKey   string
	VectorStoreID    string
	UploadTimeout    time.Duration
	UploadBatchSize  int
	UploadPause      time.Duration
	UploadMaxRetries int
	UploadBackoff    time.Duration
}

func Load() Config {
	return Config{
		Port:        envInt("CHATSPLIT_PORT", 8760),
		NatsURL:     envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("CHATSPLIT_API_TOKEN", ""),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CHATSPLIT_CHANNEL", ""),

		Strategy:       envStr("CHATSPLIT_STRATEGY", "auto"),
		MaxLines:       envInt("CHATSPLIT_MAX_LINES", 5000),
		MaxBytes:       envInt("CHATSPLIT_MAX_BYTES", 1024*1024),
		PeriodMaxLines: envInt("CHATSPLIT_PERIOD_MAX_LINES", 8000),
		Granularity:    envStr("CHATSPLIT_GRANULARITY", "month"),
		MaxTokens:      envInt("CHATSPLIT_MAX_TOKENS", 500),
		Overlap:        envInt("CHATSPLIT_OVERLAP", 5),
		ContextBefore:  envInt("CHATSPLIT_CONTEXT_BEFORE", 5),
		ContextAfter:   envInt("CHATSPLIT_CONTEXT_AFTER", 10),
		ThemeMaxLines:  envInt("CHATSPLIT_THEME_MAX_LINES", 3000),
		ThemeMinLines:  envInt("CHATSPLIT_THEME_MIN_LINES", 100),
		RecentStart:    envStr("CHATSPLIT_RECENT_START", ""),
		RecentMaxLines: envInt("CHATSPLIT_RECENT_MAX_LINES", 4000),
		CutoffYear:     envInt("CHATSPLIT_CUTOFF_YEAR", 0),
		ThemesFile:     envStr("CHATSPLIT_THEMES_FILE", ""),

		ExportDir: envStr("CHATSPLIT_EXPORT_DIR", ""),
		StatePath: envStr("CHATSPLIT_STATE_PATH", "~/.chatsplit/state.json"),

		VectorStoreURL:   envStr("VECTOR_STORE_URL", "https://api.openai.com/v1"),
		VectorStoreKey:   envStr("VECTOR_STORE_API_KEY", ""),
		VectorStoreID:    envStr("VECTOR_STORE_ID", ""),
		UploadTimeout:    envDur("CHATSPLIT_UPLOAD_TIMEOUT", 60*time.Second),
		UploadBatchSize:  envInt("CHATSPLIT_UPLOAD_BATCH", 5),
		UploadPause:      envDur("CHATSPLIT_UPLOAD_PAUSE", 2*time.Second),
		UploadMaxRetries: envInt("CHATSPLIT_UPLOAD_RETRIES", 3),
		UploadBackoff:    envDur("CHATSPLIT_UPLOAD_BACKOFF", 500*time.Millisecond),
	}
}

// Split builds the chunking policy, loading the theme table from ThemesFile
// when one is configured.
func (c Config) Split() (split.Config, error) {
	sc := split.DefaultConfig()
	sc.Policy.MaxLines = c.MaxLines
	sc.Policy.MaxBytes = c.MaxBytes
	sc.PeriodMaxLines = c.PeriodMaxLines
	sc.MaxTokensPerChunk = c.MaxTokens
	sc.OverlapMessageCount = c.Overlap
	sc.ContextBefore = c.ContextBefore
	sc.ContextAfter = c.ContextAfter
	sc.ThemeMaxLines = c.ThemeMaxLines
	sc.ThemeMinLines = c.ThemeMinLines
	sc.RecentMaxLines = c.RecentMaxLines
	sc.CutoffYear = c.CutoffYear

	switch g := split.Granularity(c.Granularity); g {
	case split.Month, split.Day, split.Year:
		sc.Granularity = g
	default:
		return sc, fmt.Errorf("unknown granularity %q", c.Granularity)
	}

	if c.RecentStart != "" {
		t, err := time.Parse("2006-01", c.RecentStart)
		if err != nil {
			return sc, fmt.Errorf("parse recent start: %w", err)
		}
		sc.RecentStart = t
	}

	if c.ThemesFile != "" {
		table, err := themes.LoadFile(c.ThemesFile)
		if err != nil {
			return sc, fmt.Errorf("load themes: %w", err)
		}
		sc.Themes = table
	}
	return sc, nil
}

// Batch returns the upload batching policy.
func (c Config) Batch() upload.BatchConfig {
	retries := c.UploadMaxRetries
	if retries < 0 {
		retries = 0
	}
	return upload.BatchConfig{
		Size:       c.UploadBatchSize,
		Pause:      c.UploadPause,
		MaxRetries: uint64(retries),
		Backoff:    c.UploadBackoff,
	}
}

// VectorStore returns the upload target.
func (c Config) VectorStore() upload.VectorStoreConfig {
	return upload.VectorStoreConfig{
		BaseURL:       c.VectorStoreURL,
		APIKey:        c.VectorStoreKey,
		VectorStoreID: c.VectorStoreID,
		Timeout:       c.UploadTimeout,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
