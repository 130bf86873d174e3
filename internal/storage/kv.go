// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// =============================================================================
// KEY-VALUE INTERFACE
// =============================================================================

// KV is a durable string-keyed byte store.
type KV interface {
	// Get returns the value for key. found is false if the key was never set.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// SetMany writes all entries. Backends that support transactions apply
	// them atomically.
	SetMany(ctx context.Context, entries map[string][]byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Backend names a KV implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Open opens the named backend rooted at path. For the file backend path is a
// directory; for sqlite it is the database file.
func Open(backend Backend, path string) (KV, error) {
	path = ExpandHome(path)
	switch backend {
	case BackendFile, "":
		return NewFileKV(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", backend)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
