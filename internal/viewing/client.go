// Package viewing is the client for the remote viewing service (PrizmDoc
// Application Services). It creates viewing sessions and uploads their
// source documents.
package viewing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docviewer/internal/config"
)

// APIKeyHeader authenticates against hosted viewing services.
const APIKeyHeader = "Acs-Api-Key"

// ErrEmptySessionID is returned when the service answers without a session id.
var ErrEmptySessionID = errors.New("viewing service returned an empty viewingSessionId")

// Client creates remote viewing sessions and uploads their source documents.
type Client interface {
	// CreateSession registers a new session whose source will be uploaded later.
	CreateSession(ctx context.Context, displayName string) (string, error)
	// UploadSource sends the raw document bytes to an existing session.
	UploadSource(ctx context.Context, sessionID string, body []byte) error
}

// StatusError is returned when the service responds with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

type createSessionRequest struct {
	Source sessionSource `json:"source"`
}

type sessionSource struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
}

type createSessionResponse struct {
	ViewingSessionID string `json:"viewingSessionId"`
}

// HTTPClient talks to the viewing service over HTTP. It is safe for concurrent use.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for cfg.BaseURL with otelhttp client spans.
func NewHTTPClient(cfg config.ViewingConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("viewing service url is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse viewing service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("viewing service url must be http or https, got %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL: u,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// CreateSession issues POST /ViewingSession with an "upload" source.
func (c *HTTPClient) CreateSession(ctx context.Context, displayName string) (string, error) {
	payload, err := json.Marshal(createSessionRequest{
		Source: sessionSource{Type: "upload", DisplayName: displayName},
	})
	if err != nil {
		return "", fmt.Errorf("encode create session request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/ViewingSession", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("create session", resp); err != nil {
		return "", err
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode create session response: %w", err)
	}
	if out.ViewingSessionID == "" {
		return "", ErrEmptySessionID
	}
	return out.ViewingSessionID, nil
}

// UploadSource issues PUT /ViewingSession/u{id}/SourceFile with the raw bytes.
func (c *HTTPClient) UploadSource(ctx context.Context, sessionID string, body []byte) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	path := "/ViewingSession/u" + url.PathEscape(sessionID) + "/SourceFile"

	req, err := c.newRequest(ctx, http.MethodPut, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(body))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload source: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("upload source", resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	return req, nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
