// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle classifies a new note against the user's existing notes.
//
// # Description
//
// An Oracle answers one question: should this text be merged into one of
// these existing notes, or become a new one? Implementations return a
// validated Decision or an error. They never synthesize fallbacks; the
// ingestion engine owns that policy.
package oracle

import (
	"context"
	"errors"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
)

var (
	// ErrDisabled is returned by the Disabled oracle.
	ErrDisabled = errors.New("classification oracle disabled")

	// ErrMalformedResponse indicates the backend output was not a single
	// JSON decision.
	ErrMalformedResponse = errors.New("malformed oracle response")

	// ErrInvalidDecision indicates a well-formed JSON object that does not
	// have the decision shape.
	ErrInvalidDecision = errors.New("invalid oracle decision")

	// ErrReported indicates the backend answered with an explicit error.
	ErrReported = errors.New("oracle reported an error")
)

// Oracle classifies note text against digests of the user's notes.
type Oracle interface {
	Classify(ctx context.Context, noteText string, existing []datatypes.NoteDigest) (*datatypes.Decision, error)
}

// Disabled is an Oracle that always fails. It is used when no backend is
// configured so every organize call takes the fallback path.
type Disabled struct{}

// Classify implements Oracle.
func (Disabled) Classify(context.Context, string, []datatypes.NoteDigest) (*datatypes.Decision, error) {
	return nil, ErrDisabled
}

var _ Oracle = Disabled{}
