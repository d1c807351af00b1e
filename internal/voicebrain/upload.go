package voicebrain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	uploadPath      = "/notes/upload"
	defaultFilename = "recording.webm"
)

var errNilBlob = errors.New("recording is empty")

// Uploader sends one recording to the ingestion endpoint.
type Uploader interface {
	Upload(ctx context.Context, blob []byte, filename string, onProgress func(percent int)) error
}

// Upload posts blob as the multipart "file" field. onProgress, when non-nil,
// receives non-decreasing percentages and ends at 100 when the server accepts
// the recording. A single request is made per call.
func (c *Client) Upload(ctx context.Context, blob []byte, filename string, onProgress func(percent int)) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if len(blob) == 0 {
		return errNilBlob
	}
	if strings.TrimSpace(filename) == "" {
		filename = defaultFilename
	}

	body, contentType, err := encodeMultipart(blob, filename)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	progress := &progressReader{r: bytes.NewReader(body), total: int64(len(body)), report: onProgress}
	rel := &url.URL{Path: uploadPath}
	req, err := c.newRequest(ctx, http.MethodPost, rel, progress)
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "POST " + uploadPath, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return &QuotaExceededError{StatusCode: resp.StatusCode, Message: readDetail(resp.Body)}
	case resp.StatusCode >= 400:
		return &ServerError{StatusCode: resp.StatusCode, Path: uploadPath, Detail: readDetail(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	progress.finish()
	return nil
}

func encodeMultipart(blob []byte, filename string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(blob); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// progressReader reports how much of the request body has been handed to the
// transport. Bytes sent are capped at 99% until the server responds.
type progressReader struct {
	r      io.Reader
	total  int64
	report func(int)

	mu   sync.Mutex
	read int64
	last int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		p.emitLocked(pct)
		p.mu.Unlock()
	}
	return n, err
}

func (p *progressReader) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitLocked(100)
}

func (p *progressReader) emitLocked(pct int) {
	if p.report == nil || pct <= p.last {
		return
	}
	p.last = pct
	p.report(pct)
}
