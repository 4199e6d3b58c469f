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

// Action is the oracle's verdict for a submitted note.
type Action string

const (
	ActionMerge  Action = "merge"
	ActionCreate Action = "create"
)

const (
	// FallbackTitle is the title of the decision synthesized when the
	// oracle cannot be used.
	FallbackTitle = "New Note"

	// FallbackTag is the single tag of the synthesized decision.
	FallbackTag = "general"

	// FallbackSummaryRunes is how much of the note text becomes the summary
	// of the synthesized decision.
	FallbackSummaryRunes = 120
)

// Decision is the classification record returned by organize and echoed
// back by the client on commit.
type Decision struct {
	Action    Action   `json:"action" validate:"required,oneof=merge create"`
	Title     string   `json:"title" validate:"max=512"`
	MergeWith *string  `json:"merge_with"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags" validate:"max=64,dive,max=128"`
	Reasoning string   `json:"reasoning"`
}

// Validate checks the decision shape.
func (d *Decision) Validate() error {
	return validate.Struct(d)
}

// MergeTarget returns the title to merge into, or "" when the decision does
// not request a merge.
func (d *Decision) MergeTarget() string {
	if d.Action != ActionMerge || d.MergeWith == nil {
		return ""
	}
	return *d.MergeWith
}

// FallbackDecision is the deterministic create decision used whenever the
// oracle fails. cause is recorded in Reasoning.
func FallbackDecision(noteText string, cause error) *Decision {
	reason := "AI classification unavailable"
	if cause != nil {
		reason += ": " + cause.Error()
	}
	return &Decision{
		Action:    ActionCreate,
		Title:     FallbackTitle,
		MergeWith: nil,
		Summary:   truncateRunes(noteText, FallbackSummaryRunes),
		Tags:      []string{FallbackTag},
		Reasoning: reason,
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
