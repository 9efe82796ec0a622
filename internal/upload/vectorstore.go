package upload

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatusError is a non-2xx answer from the vector-store API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}

// IsRetryable reports whether err is worth another attempt: rate limiting,
// server errors and network failures.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// AttachError reports an upload whose file was created but could not be
// attached to the vector store. Retrying only needs Attach(FileID).
type AttachError struct {
	FileID string
	Err    error
}

func (e *AttachError) Error() string { return e.Err.Error() }

func (e *AttachError) Unwrap() error { return e.Err }

// VectorStoreConfig identifies the account and vector store chunks go to.
type VectorStoreConfig struct {
	BaseURL       string
	APIKey        string
	VectorStoreID string
	Timeout       time.Duration
}

// VectorStoreClient uploads a chunk as a file, then attaches that file to a
// vector store, over an OpenAI-compatible API.
type VectorStoreClient struct {
	client        *resty.Client
	vectorStoreID string
}

type fileObject struct {
	ID string `json:"id"`
}

// NewVectorStoreClient validates cfg and builds the HTTP client.
func NewVectorStoreClient(cfg VectorStoreConfig) (*VectorStoreClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("vector store base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("vector store API key is required")
	}
	if cfg.VectorStoreID == "" {
		return nil, errors.New("vector store ID is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("OpenAI-Beta", "assistants=v2")

	return &VectorStoreClient{client: client, vectorStoreID: cfg.VectorStoreID}, nil
}

// Upload implements Uploader. The returned ID is the file ID. When the file is
// created but attaching fails, the error is an *AttachError.
func (c *VectorStoreClient) Upload(ctx context.Context, name, content string) (string, error) {
	var file fileObject
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", name, strings.NewReader(content)).
		SetFormData(map[string]string{"purpose": "assistants"}).
		SetResult(&file).
		Post("/files")
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{Op: "upload file", Code: resp.StatusCode(), Body: resp.String()}
	}
	if file.ID == "" {
		return "", errors.New("upload file: response carries no file id")
	}

	if err := c.Attach(ctx, file.ID); err != nil {
		return "", &AttachError{FileID: file.ID, Err: err}
	}
	return file.ID, nil
}

// Attach adds an already uploaded file to the vector store.
func (c *VectorStoreClient) Attach(ctx context.Context, fileID string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"file_id": fileID}).
		Post("/vector_stores/" + c.vectorStoreID + "/files")
	if err != nil {
		return fmt.Errorf("attach file: %w", err)
	}
	if resp.IsError() {
		return &StatusError{Op: "attach file", Code: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
