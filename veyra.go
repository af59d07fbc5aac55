// Package veyra is an embedded vector database: named collections, each
// backed by an HNSW approximate nearest-neighbor index, a write-ahead log,
// and a scalar metadata side table.
package veyra

import (
	"os"
	"path/filepath"
	"sync"
)

// Database owns a directory of named collections, each in its own
// subdirectory. It is the top-level entry point; most callers only need
// OpenDatabase, CreateCollection, and GetCollection.
type Database struct {
	mu          sync.RWMutex
	dir         string
	collections map[string]*Collection
	opts        options
}

// OpenDatabase opens (creating if necessary) a database rooted at dir and
// loads every collection subdirectory it already contains (identified by
// the presence of a meta.json file).
func OpenDatabase(dir string, optFns ...Option) (*Database, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, WrapError(IoError, "mkdir database dir", err)
	}
	db := &Database{
		dir:         dir,
		collections: make(map[string]*Collection),
		opts:        applyOptions(optFns),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, WrapError(IoError, "read database dir", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		collDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(collDir, metaFileName)); err != nil {
			continue
		}
		c, err := LoadCollection(collDir, optFns...)
		if err != nil {
			return nil, WrapError(Internal, "load collection "+entry.Name(), err)
		}
		db.collections[c.Name()] = c
	}
	return db, nil
}

func (db *Database) collectionDir(name string) string {
	return filepath.Join(db.dir, name)
}

// CreateCollection creates and registers a new collection named
// config.Name. Returns AlreadyExists if the name is taken.
func (db *Database) CreateCollection(config CollectionConfig, optFns ...Option) (*Collection, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.collections[config.Name]; exists {
		return nil, NewErrorf(AlreadyExists, "collection %q already exists", config.Name)
	}

	merged := append(append([]Option{}, db.databaseOptions()...), optFns...)
	c, err := CreateCollection(db.collectionDir(config.Name), config, merged...)
	if err != nil {
		return nil, err
	}
	db.collections[config.Name] = c
	return c, nil
}

// databaseOptions replays the Options the database itself was opened with,
// so per-collection Option calls only need to add overrides.
func (db *Database) databaseOptions() []Option {
	o := db.opts
	return []Option{func(dst *options) { *dst = o }}
}

// GetCollection returns the named collection, or NotFound.
func (db *Database) GetCollection(name string) (*Collection, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.collections[name]
	if !ok {
		return nil, NewErrorf(NotFound, "collection %q not found", name)
	}
	return c, nil
}

// HasCollection reports whether name is a registered collection.
func (db *Database) HasCollection(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.collections[name]
	return ok
}

// ListCollections returns the names of every registered collection, in no
// particular order.
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	return names
}

// DropCollection closes and permanently deletes the named collection's
// on-disk directory.
func (db *Database) DropCollection(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.collections[name]
	if !ok {
		return NewErrorf(NotFound, "collection %q not found", name)
	}
	if c.w != nil {
		c.w.Close()
	}
	delete(db.collections, name)
	if err := os.RemoveAll(db.collectionDir(name)); err != nil {
		return WrapError(IoError, "remove collection dir", err)
	}
	return nil
}

// Close saves and closes every registered collection, returning the first
// error encountered (after attempting to close the rest).
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var firstErr error
	for _, c := range db.collections {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
