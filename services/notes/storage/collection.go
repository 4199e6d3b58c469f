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
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one collection of a DocumentStore.
// Documents are encoded as JSON.
type Collection[T any] struct {
	store DocumentStore
	name  string
}

// NewCollection binds a typed collection to a store.
func NewCollection[T any](store DocumentStore, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Get decodes the document with the given ID. Absent documents return
// ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return &doc, nil
}

// Put encodes and writes the document, replacing any previous version.
func (c *Collection[T]) Put(ctx context.Context, id string, doc *T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Put(ctx, c.name, id, raw)
}

// Insert writes the document only if the ID is free, otherwise ErrExists.
func (c *Collection[T]) Insert(ctx context.Context, id string, doc *T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Insert(ctx, c.name, id, raw)
}

// Delete removes the document. Absent documents are not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// Find returns every document matching all filters, in ascending ID order.
func (c *Collection[T]) Find(ctx context.Context, filters ...Filter) ([]*T, error) {
	var out []*T
	err := c.store.Scan(ctx, c.name, filters, func(id string, raw []byte) error {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		out = append(out, &doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
