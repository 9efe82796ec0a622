package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxListedFailures caps how many failed chunks are spelled out in a summary.
const maxListedFailures = 10

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// RunSummary is what a human needs to know about one chunking run.
type RunSummary struct {
	RunID    string
	Label    string
	Source   string
	Strategy string
	Chunks   int
	Tokens   int
	Uploaded int
	Failed   int
	Failures []string // "<file>: <error>" per failed chunk
	Duration time.Duration
	Uploads  bool // whether an upload was attempted at all
}

// PostRunSummary posts the run summary and returns the message timestamp.
func (p *Poster) PostRunSummary(ctx context.Context, s RunSummary) (string, error) {
	text := FormatRunSummary(s)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	p.logger.Info("posted run summary to slack", "ts", ts, "run_id", s.RunID)
	return ts, nil
}

// PostThread posts a reply to threadTS, or a standalone message when threadTS
// is empty.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	payload := map[string]any{
		"channel": p.channel,
		"text":    text,
	}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}
	_, err := p.post(ctx, payload)
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

// FormatRunSummary renders a run summary as Slack mrkdwn.
func FormatRunSummary(s RunSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Transcript:* %s (%s)\n", s.Label, s.Strategy)
	if s.Source != "" {
		fmt.Fprintf(&sb, "*Source:* %s\n", s.Source)
	}
	if s.RunID != "" {
		fmt.Fprintf(&sb, "*Run:* %s\n", s.RunID)
	}
	fmt.Fprintf(&sb, "*Chunks:* %d (~%d tokens) in %s\n", s.Chunks, s.Tokens, s.Duration.Round(time.Millisecond))

	if !s.Uploads {
		sb.WriteString("_Upload not requested._")
		return sb.String()
	}

	total := s.Uploaded + s.Failed
	if s.Failed == 0 {
		fmt.Fprintf(&sb, "*Uploaded:* %d/%d :white_check_mark:", s.Uploaded, total)
		return sb.String()
	}

	fmt.Fprintf(&sb, "*Uploaded:* %d/%d, *failed:* %d :warning:\n", s.Uploaded, total, s.Failed)
	for i, f := range s.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&sb, "  … and %d more\n", len(s.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&sb, "  - %s\n", f)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
