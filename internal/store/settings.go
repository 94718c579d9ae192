package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/litescript/ls-segment-switch/internal/catalog"
	"github.com/litescript/ls-segment-switch/internal/connection"
	"github.com/litescript/ls-segment-switch/internal/theme"
)

// Settings is the typed view of a Store used by the rest of the program.
type Settings struct {
	store Store
}

func NewSettings(s Store) *Settings {
	return &Settings{store: s}
}

// Store returns the underlying backend.
func (s *Settings) Store() Store { return s.store }

// ActiveSegment returns the last committed segment. ok is false when none
// has been stored. A stored id outside the catalog is a PersistenceError.
func (s *Settings) ActiveSegment(ctx context.Context) (catalog.SegmentID, bool, error) {
	raw, ok, err := s.store.Get(ctx, KeyActiveSegment)
	if err != nil || !ok {
		return "", false, err
	}
	id := catalog.SegmentID(strings.TrimSpace(raw))
	if !catalog.Contains(id) {
		return "", false, persistErr("read", KeyActiveSegment, &catalog.UnknownSegmentError{ID: id})
	}
	return id, true, nil
}

// Theme returns the last committed preference. ok is false when no theme
// has been stored; a partial or invalid theme is a PersistenceError.
func (s *Settings) Theme(ctx context.Context) (theme.Preference, bool, error) {
	values := make(map[string]string, 5)
	for _, key := range []string{
		KeyThemePrimaryColor,
		KeyThemeSecondaryColor,
		KeyThemeTypography,
		KeyThemeIconStyle,
		KeyThemeLayoutPriorities,
	} {
		v, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return theme.Preference{}, false, err
		}
		if ok {
			values[key] = v
		}
	}
	if len(values) == 0 {
		return theme.Preference{}, false, nil
	}

	pref := theme.Preference{
		PrimaryColor:   values[KeyThemePrimaryColor],
		SecondaryColor: values[KeyThemeSecondaryColor],
		Typography:     theme.Typography(values[KeyThemeTypography]),
		IconStyle:      theme.IconStyle(values[KeyThemeIconStyle]),
	}
	// Stores written before icon styles existed carry no icon key.
	if pref.IconStyle == "" {
		pref.IconStyle = theme.IconOutlined
	}
	if raw, ok := values[KeyThemeLayoutPriorities]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &pref.LayoutPriorities); err != nil {
			return theme.Preference{}, false, persistErr("read", KeyThemeLayoutPriorities, err)
		}
	}
	if err := pref.Validate(); err != nil {
		return theme.Preference{}, false, persistErr("read", "theme", err)
	}
	return pref.Normalized(), true, nil
}

// Commit writes the active segment and its theme in one SetMany call.
func (s *Settings) Commit(ctx context.Context, segment catalog.SegmentID, pref theme.Preference) error {
	values, err := commitValues(segment, pref)
	if err != nil {
		return err
	}
	return s.store.SetMany(ctx, values)
}

func commitValues(segment catalog.SegmentID, pref theme.Preference) (map[string]string, error) {
	pref = pref.Normalized()
	priorities := pref.LayoutPriorities
	if priorities == nil {
		priorities = []string{}
	}
	encoded, err := json.Marshal(priorities)
	if err != nil {
		return nil, persistErr("encode", KeyThemeLayoutPriorities, err)
	}
	return map[string]string{
		KeyActiveSegment:         string(segment),
		KeyThemePrimaryColor:     pref.PrimaryColor,
		KeyThemeSecondaryColor:   pref.SecondaryColor,
		KeyThemeTypography:       string(pref.Typography),
		KeyThemeIconStyle:        string(pref.IconStyle),
		KeyThemeLayoutPriorities: string(encoded),
	}, nil
}

type connectionRecord struct {
	EndpointURL string `json:"endpointUrl"`
	Credential  string `json:"credential"`
}

func connectionKey(segment catalog.SegmentID) string {
	return KeyConnectionConfigPrefix + string(segment)
}

// ConnectionConfig implements connection.Source.
func (s *Settings) ConnectionConfig(ctx context.Context, segment catalog.SegmentID) (connection.Config, bool, error) {
	key := connectionKey(segment)
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return connection.Config{}, false, err
	}
	var rec connectionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return connection.Config{}, false, persistErr("read", key, err)
	}
	if strings.TrimSpace(rec.EndpointURL) == "" {
		return connection.Config{}, false, persistErr("read", key, fmt.Errorf("empty endpointUrl"))
	}
	return connection.Config{
		Segment:     segment,
		EndpointURL: rec.EndpointURL,
		Credential:  rec.Credential,
	}, true, nil
}

// PutConnectionConfig provisions (or replaces) the backend of a segment.
func (s *Settings) PutConnectionConfig(ctx context.Context, cfg connection.Config) error {
	cfg.EndpointURL = strings.TrimSpace(cfg.EndpointURL)
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(connectionRecord{EndpointURL: cfg.EndpointURL, Credential: cfg.Credential})
	if err != nil {
		return persistErr("encode", connectionKey(cfg.Segment), err)
	}
	return s.store.Set(ctx, connectionKey(cfg.Segment), string(data))
}

// DeleteConnectionConfig removes the backend of a segment. Removing an
// unprovisioned segment is not an error.
func (s *Settings) DeleteConnectionConfig(ctx context.Context, segment catalog.SegmentID) error {
	return s.store.Delete(ctx, connectionKey(segment))
}

// ProvisionedSegments lists known segments that have a connection config,
// in catalog order.
func (s *Settings) ProvisionedSegments(ctx context.Context) ([]catalog.SegmentID, error) {
	keys, err := s.store.Keys(ctx, KeyConnectionConfigPrefix)
	if err != nil {
		return nil, err
	}
	present := make(map[catalog.SegmentID]bool, len(keys))
	for _, k := range keys {
		present[catalog.SegmentID(strings.TrimPrefix(k, KeyConnectionConfigPrefix))] = true
	}
	var out []catalog.SegmentID
	for _, id := range catalog.IDs() {
		if present[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// Dump returns every stored key and value. Credentials are included.
func (s *Settings) Dump(ctx context.Context) (map[string]string, error) {
	keys, err := s.store.Keys(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := s.store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}
