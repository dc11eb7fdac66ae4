// Package cache provides the incremental build cache for extension bundles.
//
// A build is identified by a Fingerprint of the project's source files. The
// last fingerprint that produced a good artifact is kept as a single record
// per output directory, either:
//
//  1. As a plain text file inside the output directory (FileStore), or
//  2. As a JSON entry in a BoltDB database under the project root (BoltStore)
//
// The record carries no schema beyond the fingerprint string; callers decide
// whether the artifact it vouches for still exists.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// RecordFileName is the FileStore record name inside the output directory
	RecordFileName = ".extpack-cache"

	// DefaultCacheDir is the directory under the project root used by BoltStore
	DefaultCacheDir = ".extpack"

	// BackendFile selects FileStore, the default
	BackendFile = "file"

	// BackendBolt selects BoltStore
	BackendBolt = "bolt"
)

// Backends lists the names Open accepts
var Backends = []string{BackendFile, BackendBolt}

// ErrNoRecord is returned by Store.Get when nothing has been recorded yet
var ErrNoRecord = errors.New("no cache record")

// Key addresses one cache record
type Key struct {
	ProjectRoot string
	OutDir      string
}

// Store is a one-value-per-key record store for fingerprints
type Store interface {
	Get(key Key) (string, error)
	Set(key Key, fingerprint string) error
	Delete(key Key) error
	Close() error
}

// Open returns the store for the named backend. An empty backend means file.
func Open(backend, projectRoot string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return FileStore{}, nil
	case BackendBolt:
		return NewBoltStore(filepath.Join(projectRoot, DefaultCacheDir))
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", backend)
	}
}

// FileStore keeps the fingerprint as text in the output directory
type FileStore struct{}

// RecordPath returns the location of the record for key
func (FileStore) RecordPath(key Key) string {
	return filepath.Join(key.OutDir, RecordFileName)
}

func (s FileStore) Get(key Key) (string, error) {
	data, err := os.ReadFile(s.RecordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoRecord
		}

		return "", fmt.Errorf("failed to read cache record: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func (s FileStore) Set(key Key, fingerprint string) error {
	if err := WriteFile(s.RecordPath(key), []byte(fingerprint)); err != nil {
		return fmt.Errorf("failed to write cache record: %w", err)
	}

	return nil
}

func (s FileStore) Delete(key Key) error {
	err := os.Remove(s.RecordPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache record: %w", err)
	}

	return nil
}

func (FileStore) Close() error {
	return nil
}
