// Package export renders a session's proposal as PDF or spreadsheet. The
// renderers are pure functions of a Document; the only I/O they perform is
// fetching already-known photos through a PhotoSource.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tbourn/go-orcamento-backend/internal/proposal"
)

// Document is everything a renderer needs.
type Document struct {
	Company     string
	ClientName  string
	Address     string
	GeneratedAt time.Time
	Version     int

	// Proposal is nil when the model's output was not structured; Raw then
	// carries the text body and Equipment the best-effort scan of it.
	Proposal  *proposal.Proposal
	Totals    proposal.Totals
	Raw       string
	Equipment []proposal.Equipment
}

// Structured reports whether the document has itemized data.
func (d Document) Structured() bool { return d.Proposal != nil }

// PhotoSource returns the bytes of a photo referenced by file name.
type PhotoSource interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// URLResolver turns a photo file name into a fetchable (signed) URL.
type URLResolver func(ctx context.Context, name string) (string, error)

// ErrPhotoTooLarge is returned when a photo exceeds the configured cap.
var ErrPhotoTooLarge = errors.New("photo exceeds size limit")

// HTTPPhotoSource fetches photos over HTTP from resolved URLs.
type HTTPPhotoSource struct {
	client   *resty.Client
	resolve  URLResolver
	maxBytes int64
}

// NewHTTPPhotoSource builds a source with a per-request timeout and a body
// size cap (0 disables the cap).
func NewHTTPPhotoSource(resolve URLResolver, timeout time.Duration, maxBytes int64) *HTTPPhotoSource {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "image/*")
	return &HTTPPhotoSource{client: client, resolve: resolve, maxBytes: maxBytes}
}

func (s *HTTPPhotoSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	url, err := s.resolve(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: HTTP %d", name, resp.StatusCode())
	}
	body := resp.Body()
	if s.maxBytes > 0 && int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("%s: %w", name, ErrPhotoTooLarge)
	}
	return body, nil
}
