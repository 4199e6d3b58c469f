// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extensions defines the authentication contract shared between the
// HTTP layer and the identity backends of the notes service.
//
// The bearer middleware only knows about AuthProvider. The session manager
// is the production implementation; tests substitute their own.
package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is wrapped by every AuthProvider error that should be
// reported to the client as 401.
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo is the identity attached to an authenticated request.
type AuthInfo struct {
	// UserID is the stable identity of the caller. For this service it is
	// the email the account was registered with.
	UserID string

	// Token is the bearer credential the request presented.
	Token string
}

// AuthProvider validates bearer tokens.
//
// # Description
//
// Validate is called once per protected request. Implementations return an
// error wrapping ErrUnauthorized when the token is unknown, malformed or
// expired. Any other error is treated as a backend failure by the caller.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type AuthProvider interface {
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// StaticAuthProvider accepts exactly one token and maps it to one user.
// Useful for local tooling and tests that do not want a session store.
type StaticAuthProvider struct {
	Token  string
	UserID string
}

// Validate implements AuthProvider.
func (p *StaticAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if token == "" || token != p.Token {
		return nil, ErrUnauthorized
	}
	return &AuthInfo{UserID: p.UserID, Token: token}, nil
}

var _ AuthProvider = (*StaticAuthProvider)(nil)
