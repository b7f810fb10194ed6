package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliolabs/folio"
)

// FSStore is a filesystem Store: one file per key at <dir>/<key>.json
// holding a JSON envelope of value and creation time. Writes go through
// a temp file and rename, so concurrent writers to the same key race
// safely and the last complete write wins.
type FSStore struct {
	dir string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates the directory if needed and returns a store over it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

type fileEnvelope struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt int64           `json:"created_at"`
}

// safeKey reports whether key can name a file directly. Digest keys
// always pass; anything with separators or dots cannot escape dir.
func safeKey(key string) bool {
	if key == "" {
		return false
	}
	for _, c := range key {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-') {
			return false
		}
	}
	return true
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FSStore) Read(ctx context.Context, key string) ([]byte, int64, error) {
	if !safeKey(key) {
		return nil, 0, ErrNotFound
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read entry: %w", err)
	}
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, 0, &folio.ErrMalformedEntry{Key: key, Reason: "invalid JSON envelope"}
	}
	if env.CreatedAt == 0 || len(env.Value) == 0 {
		return nil, 0, &folio.ErrMalformedEntry{Key: key, Reason: "missing value or created_at"}
	}
	return env.Value, env.CreatedAt, nil
}

func (s *FSStore) Write(ctx context.Context, key string, payload []byte, createdAt int64) error {
	if !safeKey(key) {
		return fmt.Errorf("unsafe cache key %q", key)
	}
	data, err := json.Marshal(fileEnvelope{Value: payload, CreatedAt: createdAt})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish entry: %w", err)
	}
	return nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	if !safeKey(key) {
		return nil
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *FSStore) Len(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list entries: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

func (s *FSStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove entry: %w", err)
		}
	}
	return nil
}
