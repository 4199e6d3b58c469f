// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the documents, request and response bodies, and
// sentinel errors shared by every layer of the notes service.
package datatypes

import "errors"

// Sentinel errors for the notes service. Handlers map them to HTTP status
// codes with errors.Is; everything else is reported as 500.
var (
	// ErrInvalidInput indicates a missing or malformed request field (400).
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyExists indicates a signup for an email that is taken (400).
	ErrAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates an unknown email or wrong password (401).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated indicates a missing or unknown session token (401).
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrExpired indicates a session token past its expiry (401).
	ErrExpired = errors.New("session expired")

	// ErrForbidden indicates a note owned by another user (403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates a note that does not exist (404).
	ErrNotFound = errors.New("not found")
)
