package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileKV stores named JSON documents as files in a directory. The run
// summary lands here under its well-known key.
type FileKV struct {
	dir string
}

// NewFileKV ensures the directory exists and returns a store over it.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create kv dir: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

// Set marshals value and writes it to <dir>/<key>.json, replacing any
// previous document under that key. The write still happens on a cancelled
// context so an interrupted run keeps its summary.
func (s *FileKV) Set(_ context.Context, key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	path := filepath.Join(s.dir, key+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
