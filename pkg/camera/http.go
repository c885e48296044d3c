package camera

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/teslashibe/blurry-classifier/internal/httpc"
)

// maxSnapshotSize caps the body read from a snapshot endpoint.
const maxSnapshotSize = 32 << 20

// HTTPSource fetches one frame per call from a snapshot URL.
type HTTPSource struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPSource creates a source for url. A zero timeout uses
// DefaultSnapshotTimeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	return &HTTPSource{
		url:     url,
		timeout: timeout,
		client:  httpc.Client,
	}
}

// GetImage fetches a snapshot. The response Content-Type wins over the
// requested MIME type when present.
func (s *HTTPSource) GetImage(ctx context.Context, mimeType string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	if mimeType != "" {
		req.Header.Set("Accept", mimeType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.url, err)
	}
	defer httpc.Drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot %s: unexpected status %d", s.url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: read body: %w", s.url, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot %s: %w", s.url, ErrNoFrame)
	}

	contentType := mimeType
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			contentType = mt
		}
	}

	return &Image{Data: data, MimeType: contentType}, nil
}
