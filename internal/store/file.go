package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

const fileFormatVersion = 1

type fileDocument struct {
	Version int               `toml:"version"`
	Values  map[string]string `toml:"values"`
}

// FileStore keeps every key in one TOML document. Writes go to a temp file
// that is renamed over the original.
type FileStore struct {
	path string

	mu      sync.RWMutex
	values  map[string]string
	loaded  bool
	corrupt error
}

// NewFileStore returns a store backed by path. The file is read lazily.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("file store: empty path")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) ensureLoadedLocked() {
	if f.loaded {
		return
	}
	f.loaded = true
	f.values = make(map[string]string)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		f.corrupt = err
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}

	var doc fileDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		f.corrupt = err
		return
	}
	if doc.Version > fileFormatVersion {
		f.corrupt = fmt.Errorf("unsupported format version %d", doc.Version)
		return
	}
	if doc.Values != nil {
		f.values = doc.Values
	}
}

func (f *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked()
	if f.corrupt != nil {
		return "", false, persistErr("read", key, f.corrupt)
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) error {
	return f.SetMany(ctx, map[string]string{key: value})
}

func (f *FileStore) SetMany(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutateLocked(func(next map[string]string) {
		maps.Copy(next, values)
	})
}

func (f *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutateLocked(func(next map[string]string) {
		delete(next, key)
	})
}

func (f *FileStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked()
	if f.corrupt != nil {
		return nil, persistErr("list", prefix, f.corrupt)
	}
	return matchingKeys(f.values, prefix), nil
}

func (f *FileStore) Close() error { return nil }

// mutateLocked applies fn to a copy of the current values and persists it.
// The in-memory view only changes once the file has been replaced. A corrupt
// file is moved aside to <path>.corrupt before the first write replaces it.
func (f *FileStore) mutateLocked(fn func(map[string]string)) error {
	f.ensureLoadedLocked()
	if f.corrupt != nil {
		if err := os.Rename(f.path, f.path+".corrupt"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return persistErr("write", "", err)
		}
		f.corrupt = nil
		f.values = make(map[string]string)
	}

	next := maps.Clone(f.values)
	fn(next)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(fileDocument{Version: fileFormatVersion, Values: next}); err != nil {
		return persistErr("encode", "", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return persistErr("write", "", err)
	}
	if err := writeFileAtomic(f.path, buf.Bytes(), 0o600); err != nil {
		return persistErr("write", "", err)
	}
	f.values = next
	return nil
}

func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".segment-switch-store-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Chmod(perm); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
