// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/storage"
)

// List returns views of the caller's notes ordered by created_at, then ID.
// The result is never nil.
func (e *Engine) List(ctx context.Context, userID string) ([]datatypes.NoteView, error) {
	owned, err := e.ownedNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]datatypes.NoteView, 0, len(owned))
	for _, n := range owned {
		views = append(views, n.View())
	}
	return views, nil
}

// Get returns the note if the caller owns it.
//
// Returns datatypes.ErrNotFound or datatypes.ErrForbidden.
func (e *Engine) Get(ctx context.Context, id, userID string) (*datatypes.Note, error) {
	return e.load(ctx, id, userID)
}

// Update overwrites the supplied fields of the caller's note. updated_at is
// always refreshed and user_id is always reset to the caller.
func (e *Engine) Update(ctx context.Context, id string, fields *datatypes.UpdateNoteRequest, userID string) (*datatypes.Note, error) {
	note, err := e.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if fields != nil {
		if fields.Title != nil {
			note.Title = *fields.Title
		}
		if fields.Summary != nil {
			note.Summary = *fields.Summary
		}
		if fields.Tags != nil {
			note.Tags = datatypes.NormalizeTags(fields.Tags)
		}
		if fields.Content != nil {
			note.Content = fields.Content
		}
	}
	note.UpdatedAt = e.now().UTC()
	note.UserID = userID

	if err := e.notes.Put(ctx, note.ID, note); err != nil {
		return nil, fmt.Errorf("store note: %w", err)
	}
	return note, nil
}

// Delete removes the caller's note. Deleting a missing note succeeds;
// deleting someone else's note fails with datatypes.ErrForbidden.
func (e *Engine) Delete(ctx context.Context, id, userID string) error {
	_, err := e.load(ctx, id, userID)
	if errors.Is(err, datatypes.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := e.notes.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete note: %w", err)
	}
	e.logger.Info("note deleted", slog.String("note_id", id), slog.String("user_id", userID))
	return nil
}
