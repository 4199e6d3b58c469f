// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
)

func TestList_OwnerScopedAndOrdered(t *testing.T) {
	env := newTestEnv(t, WithIDGenerator(func() func() string {
		ids := []string{"c", "a", "b"}
		i := 0
		return func() string { id := ids[i]; i++; return id }
	}()))
	ctx := context.Background()

	_, err := env.engine.Commit(ctx, "1", createDecision("First", "s1"), "ann")
	require.NoError(t, err)
	_, err = env.engine.Commit(ctx, "2", createDecision("Other", "s2"), "bob")
	require.NoError(t, err)
	_, err = env.engine.Commit(ctx, "3", createDecision("", ""), "ann")
	require.NoError(t, err)

	views, err := env.engine.List(ctx, "ann")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "c", views[0].ID)
	assert.Equal(t, "First", views[0].Title)
	assert.Equal(t, "b", views[1].ID)
	assert.Equal(t, "Untitled", views[1].Title)
	assert.Equal(t, "No summary.", views[1].Summary)
	for _, v := range views {
		assert.Equal(t, "ann", v.UserID)
	}
}

func TestList_EmptyIsNotNil(t *testing.T) {
	env := newTestEnv(t)
	views, err := env.engine.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestGet_NotFoundAndForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.engine.Commit(ctx, "x", createDecision("T", "S"), "ann")
	require.NoError(t, err)

	_, err = env.engine.Get(ctx, "missing", "ann")
	assert.ErrorIs(t, err, datatypes.ErrNotFound)

	_, err = env.engine.Get(ctx, res.Note.ID, "bob")
	assert.ErrorIs(t, err, datatypes.ErrForbidden)

	got, err := env.engine.Get(ctx, res.Note.ID, "ann")
	require.NoError(t, err)
	assert.Equal(t, res.Note.ID, got.ID)
}

func TestUpdate_OverwritesOnlySuppliedFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.engine.Commit(ctx, "x", createDecision("T", "S", "a"), "ann")
	require.NoError(t, err)
	before := res.Note

	updated, err := env.engine.Update(ctx, before.ID, &datatypes.UpdateNoteRequest{
		Title: strPtr("New title"),
		Tags:  []string{"z", "y", "z"},
	}, "ann")
	require.NoError(t, err)

	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "S", updated.Summary)
	assert.Equal(t, []string{"y", "z"}, updated.Tags)
	require.Len(t, updated.Content, 1)
	assert.Equal(t, before.Content[0].Text, updated.Content[0].Text)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(before.CreatedAt))

	stored, err := env.engine.Get(ctx, before.ID, "ann")
	require.NoError(t, err)
	assert.Equal(t, "New title", stored.Title)
}

func TestUpdate_ReplacesContentAndClearsSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.engine.Commit(ctx, "x", createDecision("T", "S"), "ann")
	require.NoError(t, err)

	content := []datatypes.ContentFragment{{Text: "rewritten", AddedAt: res.Note.CreatedAt}}
	updated, err := env.engine.Update(ctx, res.Note.ID, &datatypes.UpdateNoteRequest{
		Summary: strPtr(""),
		Content: content,
	}, "ann")
	require.NoError(t, err)
	assert.Equal(t, "", updated.Summary)
	assert.Equal(t, "No summary.", updated.View().Summary)
	require.Len(t, updated.Content, 1)
	assert.Equal(t, "rewritten", updated.Content[0].Text)
}

func TestUpdate_NilFieldsOnlyTouchesTimestamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.engine.Commit(ctx, "x", createDecision("T", "S"), "ann")
	require.NoError(t, err)

	updated, err := env.engine.Update(ctx, res.Note.ID, nil, "ann")
	require.NoError(t, err)
	assert.Equal(t, "T", updated.Title)
	assert.True(t, updated.UpdatedAt.After(res.Note.UpdatedAt))
}

func TestUpdate_NotFoundAndForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.engine.Commit(ctx, "x", createDecision("T", "S"), "ann")
	require.NoError(t, err)

	_, err = env.engine.Update(ctx, "missing", &datatypes.UpdateNoteRequest{}, "ann")
	assert.ErrorIs(t, err, datatypes.ErrNotFound)

	_, err = env.engine.Update(ctx, res.Note.ID, &datatypes.UpdateNoteRequest{Title: strPtr("mine now")}, "bob")
	assert.ErrorIs(t, err, datatypes.ErrForbidden)

	stored, err := env.engine.Get(ctx, res.Note.ID, "ann")
	require.NoError(t, err)
	assert.Equal(t, "T", stored.Title)
	assert.Equal(t, "ann", stored.UserID)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, err := env.engine.Commit(ctx, "x", createDecision("T", "S"), "ann")
	require.NoError(t, err)

	t.Run("other user is forbidden", func(t *testing.T) {
		err := env.engine.Delete(ctx, res.Note.ID, "bob")
		assert.ErrorIs(t, err, datatypes.ErrForbidden)
		_, err = env.engine.Get(ctx, res.Note.ID, "ann")
		assert.NoError(t, err)
	})

	t.Run("owner deletes", func(t *testing.T) {
		require.NoError(t, env.engine.Delete(ctx, res.Note.ID, "ann"))
		_, err := env.engine.Get(ctx, res.Note.ID, "ann")
		assert.ErrorIs(t, err, datatypes.ErrNotFound)
	})

	t.Run("missing is success", func(t *testing.T) {
		assert.NoError(t, env.engine.Delete(ctx, res.Note.ID, "ann"))
		assert.NoError(t, env.engine.Delete(ctx, "never-existed", "bob"))
	})
}
