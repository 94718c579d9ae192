package connection

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/litescript/ls-segment-switch/internal/catalog"
)

// Config is the backend a segment is provisioned with.
type Config struct {
	Segment     catalog.SegmentID
	EndpointURL string
	Credential  string
}

// Validate checks the segment is known and the endpoint is an absolute
// http(s) URL. The credential is opaque and may be empty.
func (c Config) Validate() error {
	if !catalog.Contains(c.Segment) {
		return &catalog.UnknownSegmentError{ID: c.Segment}
	}
	u, err := url.Parse(strings.TrimSpace(c.EndpointURL))
	if err != nil {
		return fmt.Errorf("endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint url %q: scheme must be http or https", c.EndpointURL)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint url %q: missing host", c.EndpointURL)
	}
	return nil
}

// Redacted returns a printable form that never includes the credential.
func (c Config) Redacted() string {
	return fmt.Sprintf("%s -> %s", c.Segment, c.EndpointURL)
}

// Source looks up the connection config of a segment. ok is false when the
// segment has not been provisioned.
type Source interface {
	ConnectionConfig(ctx context.Context, segment catalog.SegmentID) (cfg Config, ok bool, err error)
}
