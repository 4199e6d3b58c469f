// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest implements the two-phase note ingestion protocol and the
// owner-scoped note access operations.
//
// # Description
//
// Organize asks the oracle where new text belongs and returns that advice
// without writing anything. Commit executes the advice the client sends
// back: it either appends the text to an existing note of the caller or
// creates a new note. Commit trusts the decision it is given apart from
// the merge-title lookup.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Concurrent merges into the same note
// are read-then-write with last-writer-wins semantics.
package ingest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/observability"
	"github.com/AleutianAI/AleutianNotes/services/notes/oracle"
	"github.com/AleutianAI/AleutianNotes/services/notes/storage"
)

// NotesCollection is the collection holding note documents.
const NotesCollection = "notes"

var tracer = otel.Tracer("aleutian.notes.ingest")

// Engine runs organize/commit and note access against a DocumentStore.
type Engine struct {
	notes   *storage.Collection[datatypes.Note]
	oracle  oracle.Oracle
	now     func() time.Time
	newID   func() string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now for created_at, updated_at and added_at.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the random UUID note IDs.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithMetrics records oracle outcomes and commits on metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an Engine. A nil oracle behaves like oracle.Disabled.
func NewEngine(store storage.DocumentStore, o oracle.Oracle, opts ...Option) *Engine {
	if o == nil {
		o = oracle.Disabled{}
	}
	e := &Engine{
		notes:  storage.NewCollection[datatypes.Note](store, NotesCollection),
		oracle: o,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Organize classifies noteText against the caller's notes.
//
// # Description
//
// Every oracle failure becomes the fallback create decision, so the only
// errors returned are from reading the caller's notes. Organize performs no
// writes and returns the decision exactly as produced.
func (e *Engine) Organize(ctx context.Context, noteText, userID string) (*datatypes.Decision, error) {
	ctx, span := tracer.Start(ctx, "ingest.Engine.Organize",
		trace.WithAttributes(attribute.Int("note_length", len(noteText))),
	)
	defer span.End()

	owned, err := e.ownedNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	digests := make([]datatypes.NoteDigest, 0, len(owned))
	for _, n := range owned {
		digests = append(digests, n.Digest())
	}
	span.SetAttributes(attribute.Int("existing_notes", len(digests)))

	start := time.Now()
	decision, err := e.oracle.Classify(ctx, noteText, digests)
	elapsed := time.Since(start)
	if err != nil {
		e.metrics.RecordOracle(observability.OracleFallback, elapsed)
		e.logger.Warn("classification failed, using fallback decision",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		span.SetAttributes(
			attribute.Bool("fallback_used", true),
			attribute.String("fallback_reason", err.Error()),
		)
		return datatypes.FallbackDecision(noteText, err), nil
	}
	e.metrics.RecordOracle(observability.OracleSuccess, elapsed)
	span.SetAttributes(
		attribute.Bool("fallback_used", false),
		attribute.String("action", string(decision.Action)),
	)
	return decision, nil
}

// Commit executes a decision for noteText on behalf of userID.
//
// # Description
//
// A merge decision whose target title matches one of the caller's notes
// appends a fragment to that note, unions its tags, replaces its summary
// and persists it in a single write. When several notes share the title
// the earliest created one wins, then the lowest ID. Anything else creates
// a new note.
func (e *Engine) Commit(ctx context.Context, noteText string, decision *datatypes.Decision, userID string) (*datatypes.CommitResult, error) {
	if decision == nil {
		return nil, fmt.Errorf("%w: decision is required", datatypes.ErrInvalidInput)
	}
	ctx, span := tracer.Start(ctx, "ingest.Engine.Commit",
		trace.WithAttributes(attribute.String("action", string(decision.Action))),
	)
	defer span.End()

	now := e.now().UTC()

	if target := decision.MergeTarget(); target != "" {
		existing, err := e.findByTitle(ctx, userID, target)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			existing.Content = append(existing.Content, datatypes.ContentFragment{Text: noteText, AddedAt: now})
			existing.Tags = datatypes.NormalizeTags(existing.Tags, decision.Tags)
			existing.Summary = decision.Summary
			existing.UpdatedAt = now
			if err := e.notes.Put(ctx, existing.ID, existing); err != nil {
				return nil, fmt.Errorf("store merged note: %w", err)
			}
			e.metrics.RecordCommit(string(datatypes.StatusMerged))
			span.SetAttributes(attribute.String("status", string(datatypes.StatusMerged)))
			e.logger.Info("note merged",
				slog.String("note_id", existing.ID),
				slog.String("user_id", userID),
				slog.Int("fragments", len(existing.Content)),
			)
			return &datatypes.CommitResult{Status: datatypes.StatusMerged, Note: existing}, nil
		}
		e.logger.Debug("merge target not found, creating note",
			slog.String("user_id", userID), slog.String("title", target))
	}

	note := &datatypes.Note{
		ID:        e.newID(),
		Title:     decision.Title,
		Summary:   decision.Summary,
		Content:   []datatypes.ContentFragment{{Text: noteText, AddedAt: now}},
		Tags:      datatypes.NormalizeTags(decision.Tags),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.notes.Insert(ctx, note.ID, note); err != nil {
		return nil, fmt.Errorf("store new note: %w", err)
	}
	e.metrics.RecordCommit(string(datatypes.StatusCreated))
	span.SetAttributes(attribute.String("status", string(datatypes.StatusCreated)))
	e.logger.Info("note created", slog.String("note_id", note.ID), slog.String("user_id", userID))
	return &datatypes.CommitResult{Status: datatypes.StatusCreated, Note: note}, nil
}

// findByTitle returns the caller's earliest note whose stored title is
// title, or nil. The "Untitled" display default never matches.
func (e *Engine) findByTitle(ctx context.Context, userID, title string) (*datatypes.Note, error) {
	owned, err := e.ownedNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, n := range owned {
		if n.Title == title {
			return n, nil
		}
	}
	return nil, nil
}

// ownedNotes returns the caller's notes ordered by created_at, then ID.
func (e *Engine) ownedNotes(ctx context.Context, userID string) ([]*datatypes.Note, error) {
	notes, err := e.notes.Find(ctx, storage.Where("user_id", userID))
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	slices.SortStableFunc(notes, func(a, b *datatypes.Note) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return notes, nil
}

// load fetches a note and checks that userID owns it.
func (e *Engine) load(ctx context.Context, id, userID string) (*datatypes.Note, error) {
	note, err := e.notes.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		return nil, datatypes.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load note: %w", err)
	}
	if note.UserID != userID {
		return nil, datatypes.ErrForbidden
	}
	return note, nil
}
