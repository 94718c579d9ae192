package connection

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/litescript/ls-segment-switch/internal/catalog"
)

// PostgREST codes meaning the probed relation does not exist. The backend
// is up, it just has no schema yet.
var missingRelationCodes = map[string]bool{
	"42P01":    true,
	"PGRST205": true,
}

type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
}

func classifyTransport(segment catalog.SegmentID, err error) error {
	if errors.Is(err, errBadEndpoint) {
		return &UnknownConnectionError{Segment: segment, Err: err}
	}
	// Everything else out of http.Client.Do is transport level: DNS,
	// refused connections, TLS and client timeouts.
	return &NetworkError{Segment: segment, Err: err}
}

func classifyResponse(segment catalog.SegmentID, status int, contentType string, body []byte) error {
	rest, detail := describeBody(contentType, body)

	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return nil
	case missingRelationCodes[rest.Code]:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthenticationError{Segment: segment, Status: status, Detail: detail}
	case status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout:
		return &NetworkError{Segment: segment, Status: status, Detail: detail}
	default:
		return &UnknownConnectionError{Segment: segment, Status: status, Detail: detail}
	}
}

// describeBody extracts a short human-readable reason from a probe
// response: the PostgREST error message for JSON, the page title for HTML
// error pages served by proxies.
func describeBody(contentType string, body []byte) (restError, string) {
	var rest restError
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return rest, ""
	}

	if strings.Contains(contentType, "json") || trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &rest); err == nil {
			switch {
			case rest.Message != "" && rest.Code != "":
				return rest, rest.Code + " " + rest.Message
			case rest.Message != "":
				return rest, rest.Message
			default:
				return rest, rest.Code
			}
		}
	}

	if strings.Contains(contentType, "html") || bytes.HasPrefix(trimmed, []byte("<")) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
		if err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return rest, title
			}
		}
	}
	return rest, ""
}
