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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxNoteTextBytes bounds the note text accepted by organize and commit.
const MaxNoteTextBytes = 32 * 1024

// validate is the validator instance for request bodies and decisions.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxNoteTextBytes
}

// validateStruct runs the struct validator and wraps failures in
// ErrInvalidInput with the offending field names.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// =============================================================================
// Auth
// =============================================================================

type SignupRequest struct {
	Email    string `json:"email" validate:"required,max=320"`
	Password string `json:"password" validate:"required,max=1024"`
	Name     string `json:"name" validate:"required,max=256"`
}

func (r *SignupRequest) Validate() error { return validateStruct(r) }

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error { return validateStruct(r) }

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Token   string    `json:"token"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Expires time.Time `json:"expires"`
}

// =============================================================================
// Notes
// =============================================================================

type OrganizeRequest struct {
	NoteText string `json:"note_text" validate:"required,maxbytes"`
}

func (r *OrganizeRequest) Validate() error { return validateStruct(r) }

// CommitRequest carries the note text together with the decision the client
// received from organize.
type CommitRequest struct {
	NoteText     string    `json:"note_text" validate:"required,maxbytes"`
	AISuggestion *Decision `json:"ai_suggestion" validate:"required"`
}

func (r *CommitRequest) Validate() error { return validateStruct(r) }

// CommitStatus tells the client which branch of commit ran.
type CommitStatus string

const (
	StatusMerged  CommitStatus = "merged"
	StatusCreated CommitStatus = "created"
)

// CommitResult is the outcome of the commit phase.
type CommitResult struct {
	Status CommitStatus
	Note   *Note
}

type CommitResponse struct {
	Message CommitStatus `json:"message"`
	Note    NoteView     `json:"note"`
}

// UpdateNoteRequest lists the note fields a client may overwrite. Absent
// (nil) fields are left untouched. Ownership is not updatable.
type UpdateNoteRequest struct {
	Title   *string           `json:"title" validate:"omitempty,max=512"`
	Summary *string           `json:"summary"`
	Tags    []string          `json:"tags" validate:"omitempty,max=64,dive,max=128"`
	Content []ContentFragment `json:"content"`
}

func (r *UpdateNoteRequest) Validate() error { return validateStruct(r) }

type UpdateNoteResponse struct {
	Note NoteView `json:"note"`
}

type DeleteNoteResponse struct {
	Status string `json:"status"`
}
