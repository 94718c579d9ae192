// Package connection turns a segment's connection config into a live handle
// on its backend, probes the backend once and classifies what came back.
package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/litescript/ls-segment-switch/internal/catalog"
)

// DefaultTimeout bounds every request made through a handle.
const DefaultTimeout = 5 * time.Second

var errBadEndpoint = errors.New("bad endpoint url")

// maxProbeBody caps how much of a probe response is read for classification.
const maxProbeBody = 64 << 10

// Handle is a constructed reference to one segment's backend. Handles are
// disposable; the Table that registered one releases it.
type Handle struct {
	id         string
	segment    catalog.SegmentID
	baseURL    string
	credential string
	httpClient *http.Client
	created    time.Time
	closed     atomic.Bool
}

// NewHandle builds a handle without contacting the backend. The endpoint is
// not validated here; a bad URL surfaces from the first request.
func NewHandle(cfg Config, timeout time.Duration) *Handle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(nil)

	return &Handle{
		id:         uuid.NewString(),
		segment:    cfg.Segment,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.EndpointURL), "/"),
		credential: cfg.Credential,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		created: time.Now(),
	}
}

func (h *Handle) ID() string                 { return h.id }
func (h *Handle) Segment() catalog.SegmentID { return h.segment }
func (h *Handle) Endpoint() string           { return h.baseURL }
func (h *Handle) Created() time.Time         { return h.created }
func (h *Handle) Closed() bool               { return h.closed.Load() }

// Get issues an authenticated GET for path relative to the endpoint. The
// caller closes the response body.
func (h *Handle) Get(ctx context.Context, path string) (*http.Response, error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	target, err := h.resolve(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if h.credential != "" {
		req.Header.Set("apikey", h.credential)
		req.Header.Set("Authorization", "Bearer "+h.credential)
	}
	return h.httpClient.Do(req)
}

func (h *Handle) resolve(path string) (string, error) {
	base, err := url.Parse(h.baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadEndpoint, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", errBadEndpoint, h.baseURL)
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadEndpoint, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String(), nil
}

// ProbePath is the lightweight read used to check reachability: one row of
// a table that usually does not exist.
func ProbePath(resource string) string {
	return "rest/v1/" + url.PathEscape(resource) + "?select=*&limit=1"
}

// Probe performs the reachability read and classifies its outcome. nil
// means the backend answered in a way that counts as reachable. A context
// error is returned as is so callers can tell cancellation from failure.
func (h *Handle) Probe(ctx context.Context, resource string) error {
	resp, err := h.Get(ctx, ProbePath(resource))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return classifyTransport(h.segment, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	return classifyResponse(h.segment, resp.StatusCode, resp.Header.Get("Content-Type"), body)
}

// Close releases idle connections. Further requests fail with
// ErrHandleClosed. Close is idempotent.
func (h *Handle) Close() {
	if h.closed.Swap(true) {
		return
	}
	h.httpClient.CloseIdleConnections()
}

// Factory builds the handle for a segment's config.
type Factory func(cfg Config) *Handle

// DefaultFactory returns a Factory producing HTTP handles with timeout.
func DefaultFactory(timeout time.Duration) Factory {
	return func(cfg Config) *Handle {
		return NewHandle(cfg, timeout)
	}
}
