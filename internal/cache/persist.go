// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Persister stores one serialized payload per namespace.
type Persister interface {
	// Save replaces the stored payload for namespace.
	Save(namespace string, payload []byte) error
	// Load returns the stored payload, or nil when nothing is stored.
	Load(namespace string) ([]byte, error)
	// Remove erases the stored payload. Removing a missing namespace is not an error.
	Remove(namespace string) error
}

// StorageKey returns the durable key for a namespace.
func StorageKey(namespace string) string {
	return "minbar:cache:" + namespace
}

// BadgerPersister stores namespaces in BadgerDB.
type BadgerPersister struct {
	db    *badger.DB
	owned bool
}

// OpenBadgerPersister opens (or creates) a BadgerDB at path. An empty path
// opens an in-memory database.
func OpenBadgerPersister(path string) (*BadgerPersister, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.ValueLogFileSize = 16 << 20
		opts.SyncWrites = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for cache persistence: %w", err)
	}
	return &BadgerPersister{db: db, owned: true}, nil
}

// NewBadgerPersister wraps an existing database. Close does not close db.
func NewBadgerPersister(db *badger.DB) *BadgerPersister {
	return &BadgerPersister{db: db}
}

// Save writes payload under the namespace key.
func (p *BadgerPersister) Save(namespace string, payload []byte) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StorageKey(namespace)), payload)
	})
}

// Load reads the namespace payload.
func (p *BadgerPersister) Load(namespace string) ([]byte, error) {
	var payload []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StorageKey(namespace)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load cache namespace %s: %w", namespace, err)
	}
	return payload, nil
}

// Remove deletes the namespace payload.
func (p *BadgerPersister) Remove(namespace string) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(StorageKey(namespace)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("remove cache namespace %s: %w", namespace, err)
	}
	return nil
}

// Close closes the database if this persister opened it.
func (p *BadgerPersister) Close() error {
	if !p.owned {
		return nil
	}
	return p.db.Close()
}

// MemoryPersister keeps payloads in process memory. It survives namespace
// re-creation but not process restarts.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryPersister creates an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

// Save stores a copy of payload.
func (p *MemoryPersister) Save(namespace string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[StorageKey(namespace)] = append([]byte(nil), payload...)
	return nil
}

// Load returns a copy of the stored payload.
func (p *MemoryPersister) Load(namespace string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, ok := p.data[StorageKey(namespace)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

// Remove erases the payload.
func (p *MemoryPersister) Remove(namespace string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, StorageKey(namespace))
	return nil
}

// Close is a no-op.
func (p *MemoryPersister) Close() error {
	return nil
}
