package voicebrain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NoteFetcher is the read side of the API used by the poller.
type NoteFetcher interface {
	ListNotes(ctx context.Context, query string) ([]Note, error)
}

// NoteService is the full note surface used by the CLI and dashboard.
type NoteService interface {
	NoteFetcher
	GetNote(ctx context.Context, id string) (Note, error)
	UpdateNote(ctx context.Context, id string, update NoteUpdate) (Note, error)
	DeleteNote(ctx context.Context, id string) error
	DeleteNotes(ctx context.Context, ids []string) error
	FetchUser(ctx context.Context) (User, error)
}

// Ensure Client implements the interfaces at compile time.
var (
	_ NoteService = (*Client)(nil)
	_ Uploader    = (*Client)(nil)
)

// Client talks to the VoiceBrain HTTP API.
type Client struct {
	baseURL        *url.URL
	token          string
	http           *http.Client
	userAgent      string
	requestTimeout time.Duration
	uploadTimeout  time.Duration
}

const (
	defaultBaseURL        = "https://api.voicebrain.app"
	defaultUserAgent      = "voicesync/0.1"
	defaultRequestTimeout = 15 * time.Second
	defaultUploadTimeout  = 5 * time.Minute
	maxErrorBody          = 4 << 10
)

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, e.g. to observe connectivity.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.http.Transport = rt
		}
	}
}

// WithTimeouts sets the per-request deadline for JSON calls and uploads.
// Zero values keep the defaults.
func WithTimeouts(request, upload time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.requestTimeout = request
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
	}
}

// NewClient builds a Client for baseURL authenticating with token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:        base,
		token:          strings.TrimSpace(token),
		http:           &http.Client{},
		userAgent:      defaultUserAgent,
		requestTimeout: defaultRequestTimeout,
		uploadTimeout:  defaultUploadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListNotes retrieves the note list, optionally filtered by a semantic query.
func (c *Client) ListNotes(ctx context.Context, query string) ([]Note, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: "/notes"}
	if q := strings.TrimSpace(query); q != "" {
		values := url.Values{}
		values.Set("q", q)
		rel.RawQuery = values.Encode()
	}
	var payload []Note
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetNote retrieves a single note.
func (c *Client) GetNote(ctx context.Context, id string) (Note, error) {
	if c == nil {
		return Note{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return Note{}, fmt.Errorf("note id required")
	}
	var payload Note
	if err := c.do(ctx, http.MethodGet, "/notes/"+id, nil, &payload); err != nil {
		return Note{}, err
	}
	return payload, nil
}

// UpdateNote applies a partial update and returns the server's copy.
func (c *Client) UpdateNote(ctx context.Context, id string, update NoteUpdate) (Note, error) {
	if c == nil {
		return Note{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return Note{}, fmt.Errorf("note id required")
	}
	if update.IsEmpty() {
		return Note{}, fmt.Errorf("note update is empty")
	}
	var payload Note
	if err := c.do(ctx, http.MethodPut, "/notes/"+id, update, &payload); err != nil {
		return Note{}, err
	}
	return payload, nil
}

// DeleteNote removes a note permanently.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("note id required")
	}
	return c.do(ctx, http.MethodDelete, "/notes/"+id, nil, nil)
}

// DeleteNotes removes several notes in one request.
func (c *Client) DeleteNotes(ctx context.Context, ids []string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if len(ids) == 0 {
		return nil
	}
	body := struct {
		NoteIDs []string `json:"note_ids"`
	}{NoteIDs: ids}
	return c.do(ctx, http.MethodPost, "/notes/batch/delete", body, nil)
}

// FetchUser retrieves the account profile including usage counters.
func (c *Client) FetchUser(ctx context.Context) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	var payload User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &payload); err != nil {
		return User{}, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, rel, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: fmt.Sprintf("%s %s", method, rel.Path), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &ServerError{StatusCode: resp.StatusCode, Path: rel.String(), Detail: readDetail(resp.Body)}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(rel).String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) resolve(rel *url.URL) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + rel.Path
	u.RawQuery = rel.RawQuery
	return &u
}

// readDetail extracts FastAPI's {"detail": "..."} message from an error body.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}
	return string(payload.Detail)
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", raw)
	}
	// Keep a path prefix such as /api so relative endpoints resolve under it.
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
