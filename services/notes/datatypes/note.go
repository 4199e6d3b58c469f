// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"slices"
	"time"

	"github.com/go-openapi/strfmt"
)

const (
	// DefaultTitle is rendered for notes stored without a title.
	DefaultTitle = "Untitled"

	// DefaultSummary is rendered for notes stored without a summary.
	DefaultSummary = "No summary."
)

// ContentFragment is one piece of text appended to a note.
type ContentFragment struct {
	Text    string    `json:"text"`
	AddedAt time.Time `json:"added_at"`
}

// Note is stored in the notes collection keyed by ID.
//
// Content is append-only through the ingestion path and keeps insertion
// order. Tags is a set; it is kept sorted and deduplicated on every write.
// UserID never changes after creation.
type Note struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	Content   []ContentFragment `json:"content"`
	Tags      []string          `json:"tags"`
	UserID    string            `json:"user_id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DisplayTitle returns the title with the "Untitled" default applied.
func (n *Note) DisplayTitle() string {
	if n.Title == "" {
		return DefaultTitle
	}
	return n.Title
}

// DisplaySummary returns the summary with the "No summary." default applied.
func (n *Note) DisplaySummary() string {
	if n.Summary == "" {
		return DefaultSummary
	}
	return n.Summary
}

// NoteDigest is the projection of a note handed to the classification oracle.
type NoteDigest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Digest projects the note to its oracle-facing summary.
func (n *Note) Digest() NoteDigest {
	return NoteDigest{Title: n.DisplayTitle(), Summary: n.DisplaySummary()}
}

// FragmentView is the wire form of a ContentFragment.
type FragmentView struct {
	Text    string          `json:"text"`
	AddedAt strfmt.DateTime `json:"added_at"`
}

// NoteView is the wire form of a Note returned by every notes endpoint.
type NoteView struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Summary   string          `json:"summary"`
	Content   []FragmentView  `json:"content"`
	Tags      []string        `json:"tags"`
	UserID    string          `json:"user_id"`
	CreatedAt strfmt.DateTime `json:"created_at"`
	UpdatedAt strfmt.DateTime `json:"updated_at"`
}

// View renders the note with defaulted fields and non-nil collections.
func (n *Note) View() NoteView {
	content := make([]FragmentView, 0, len(n.Content))
	for _, f := range n.Content {
		content = append(content, FragmentView{Text: f.Text, AddedAt: strfmt.DateTime(f.AddedAt)})
	}
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return NoteView{
		ID:        n.ID,
		Title:     n.DisplayTitle(),
		Summary:   n.DisplaySummary(),
		Content:   content,
		Tags:      tags,
		UserID:    n.UserID,
		CreatedAt: strfmt.DateTime(n.CreatedAt),
		UpdatedAt: strfmt.DateTime(n.UpdatedAt),
	}
}

// NormalizeTags returns the sorted, deduplicated union of the given tag
// lists. Empty tags are dropped. The result is never nil.
func NormalizeTags(lists ...[]string) []string {
	out := []string{}
	for _, list := range lists {
		for _, tag := range list {
			if tag != "" {
				out = append(out, tag)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
