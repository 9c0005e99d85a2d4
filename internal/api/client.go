// Package api talks to the analysis server that collects exported session records.
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arenalab/arena-recorder/pkg/core"
)

const (
	// HealthPath answers 200 when the server accepts uploads.
	HealthPath = "/healthcheck"
	// UploadPath is the endpoint exported records are posted to.
	UploadPath = "/api/v1/sessions/add"

	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a rejection body ends up in an error.
	maxErrorBody = 512
)

// Client posts exported session records to the analysis server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds each request. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the transport, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Healthcheck reports whether the analysis server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create healthcheck request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	return statusError("healthcheck", resp)
}

// Upload posts an exported record file. It satisfies handlers.Uploader.
func (c *Client) Upload(filePath string, meta core.UploadMetadata) error {
	return c.UploadContext(context.Background(), filePath, meta)
}

// UploadContext streams the file as a multipart form together with the
// record metadata. The form is written while the request is in flight.
func (c *Client) UploadContext(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := filepath.Base(filePath)
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(form, file, name, c.apiKey, meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pr.Close()
		return fmt.Errorf("upload of %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	return statusError("upload of "+name, resp)
}

func writeForm(form *multipart.Writer, src io.Reader, name, secret string, meta core.UploadMetadata) error {
	fields := [][2]string{
		{"secret", secret},
		{"filename", name},
		{"format", recordFormat(name)},
		{"sessionId", meta.SessionID},
		{"label", meta.Label},
		{"outcome", meta.Outcome},
		{"sessionDuration", strconv.FormatFloat(meta.SessionDuration, 'f', 6, 64)},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return form.Close()
}

// recordFormat derives json or msgpack from an export file name.
func recordFormat(name string) string {
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

// statusError accepts any 2xx and otherwise includes the start of the
// response body, where the server explains rejections.
func statusError(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%s returned status %d", op, resp.StatusCode)
	}
	return fmt.Errorf("%s returned status %d: %s", op, resp.StatusCode, msg)
}
