// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrNotFound is returned by Get for an absent document.
	ErrNotFound = errors.New("document not found")

	// ErrExists is returned by Insert when the ID is already taken.
	ErrExists = errors.New("document already exists")

	// ErrInvalidKey is returned for an empty ID or a malformed collection name.
	ErrInvalidKey = errors.New("invalid document key")

	// ErrStopScan may be returned from a Scan callback to end the scan early
	// without an error.
	ErrStopScan = errors.New("stop scan")
)

// Filter is an equality predicate on a top-level JSON field of a document.
type Filter struct {
	Field string
	Value any
}

// Where builds a Filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// DocumentStore is the persistence contract the notes components depend on.
//
// # Description
//
// Each method touches exactly one document except Scan, which reads a
// consistent snapshot of one collection. Writes are atomic per document.
// Nothing composes several calls into one transaction.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type DocumentStore interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) ([]byte, error)

	// Put creates or replaces the document.
	Put(ctx context.Context, collection, id string, doc []byte) error

	// Insert creates the document, or fails with ErrExists without writing.
	Insert(ctx context.Context, collection, id string, doc []byte) error

	// Delete removes the document. Deleting an absent document succeeds.
	Delete(ctx context.Context, collection, id string) error

	// Scan calls fn for every document in the collection matching all
	// filters, in ascending ID order.
	Scan(ctx context.Context, collection string, filters []Filter, fn func(id string, doc []byte) error) error
}

func documentKey(collection, id string) ([]byte, error) {
	if collection == "" || strings.Contains(collection, "/") {
		return nil, fmt.Errorf("%w: collection %q", ErrInvalidKey, collection)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidKey)
	}
	return []byte(collection + "/" + id), nil
}

// Get implements DocumentStore.
func (d *DB) Get(ctx context.Context, collection, id string) ([]byte, error) {
	key, err := documentKey(collection, id)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = d.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put implements DocumentStore.
func (d *DB) Put(ctx context.Context, collection, id string, doc []byte) error {
	key, err := documentKey(collection, id)
	if err != nil {
		return err
	}
	return d.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, doc)
	})
}

// Insert implements DocumentStore. The existence check and the write share
// one transaction, so two racing inserts cannot both succeed.
func (d *DB) Insert(ctx context.Context, collection, id string, doc []byte) error {
	key, err := documentKey(collection, id)
	if err != nil {
		return err
	}
	err = d.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, doc)
	})
	// A conflicting concurrent writer surfaces as a transaction conflict.
	if errors.Is(err, badger.ErrConflict) {
		return ErrExists
	}
	return err
}

// Delete implements DocumentStore.
func (d *DB) Delete(ctx context.Context, collection, id string) error {
	key, err := documentKey(collection, id)
	if err != nil {
		return err
	}
	return d.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Scan implements DocumentStore.
func (d *DB) Scan(ctx context.Context, collection string, filters []Filter,
	fn func(id string, doc []byte) error) error {

	if collection == "" || strings.Contains(collection, "/") {
		return fmt.Errorf("%w: collection %q", ErrInvalidKey, collection)
	}
	matcher, err := newMatcher(filters)
	if err != nil {
		return err
	}
	prefix := []byte(collection + "/")

	err = d.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			doc, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			ok, err := matcher.match(doc)
			if err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			if !ok {
				continue
			}
			id := string(item.Key()[len(prefix):])
			if err := fn(id, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrStopScan) {
		return nil
	}
	return err
}

// matcher compares top-level fields by their canonical JSON encoding.
type matcher struct {
	fields []string
	values [][]byte
}

func newMatcher(filters []Filter) (*matcher, error) {
	m := &matcher{}
	for _, f := range filters {
		if f.Field == "" {
			return nil, errors.New("filter field must not be empty")
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		m.fields = append(m.fields, f.Field)
		m.values = append(m.values, v)
	}
	return m, nil
}

func (m *matcher) match(doc []byte) (bool, error) {
	if len(m.fields) == 0 {
		return true, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false, err
	}
	for i, name := range m.fields {
		raw, ok := fields[name]
		if !ok {
			return false, nil
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return false, err
		}
		if !bytes.Equal(compact.Bytes(), m.values[i]) {
			return false, nil
		}
	}
	return true, nil
}

var _ DocumentStore = (*DB)(nil)
