// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"

	"github.com/jeranaias/lumen/internal/util"
)

// =============================================================================
// FILE BACKEND
// =============================================================================

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileKV stores each key as <dir>/<key>.json.
type FileKV struct {
	// Dir holds one file per key.
	// Default: ~/.lumen/state/
	Dir string
}

// NewFileKV creates a file-backed store in dir, creating it if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create state directory")
	}
	return &FileKV{Dir: dir}, nil
}

// Get reads the file for key.
func (f *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := f.filePath(key)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", key)
	}
	return data, true, nil
}

// SetMany writes each entry atomically. Entries are written in key order;
// a crash mid-way can leave some keys updated and others not, which
// load-or-default tolerates.
func (f *FileKV) SetMany(ctx context.Context, entries map[string][]byte) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := f.filePath(key)
		if err != nil {
			return err
		}
		// RELIABILITY: Atomic write with fsync prevents data loss on crash
		if err := util.AtomicWriteFile(path, entries[key], 0o600); err != nil {
			return errors.Wrapf(err, "write %s", key)
		}
	}
	return nil
}

// Delete removes the file for key.
func (f *FileKV) Delete(_ context.Context, key string) error {
	path, err := f.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %s", key)
	}
	return nil
}

// Close is a no-op for the file backend.
func (f *FileKV) Close() error {
	return nil
}

// SECURITY: Keys are validated so they can never escape Dir.
func (f *FileKV) filePath(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", errors.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.Dir, key+".json"), nil
}
