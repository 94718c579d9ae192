// Package store persists segment-switch state as string keys and values.
// Three backends share the Store interface: a TOML file, a SQLite table and
// an in-memory map. Settings layers typed accessors over any of them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Keys of the persisted key space.
const (
	KeyActiveSegment          = "activeSegmentId"
	KeyThemePrimaryColor      = "theme.primaryColor"
	KeyThemeSecondaryColor    = "theme.secondaryColor"
	KeyThemeTypography        = "theme.typography"
	KeyThemeIconStyle         = "theme.iconStyle"
	KeyThemeLayoutPriorities  = "theme.layoutPriorities"
	KeyConnectionConfigPrefix = "connectionConfig."
)

// Backend driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store is a last-writer-wins key/value store. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes every pair or none of them.
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// ErrPersistence matches any PersistenceError via errors.Is.
var ErrPersistence = errors.New("persistence failure")

// PersistenceError reports an unavailable or corrupt store.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Open builds the backend named by driver. path is ignored by the memory
// driver.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverFile:
		return NewFileStore(path)
	case DriverSQLite:
		return OpenSQLite(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func persistErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Key: key, Err: err}
}
