// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sessions issues and validates opaque bearer tokens.
//
// # Description
//
// A token is 32 bytes from crypto/rand, hex encoded. It is stored in the
// "tokens" collection keyed by itself and never modified. Expiry is checked
// on every Validate call; an expired record is deleted at that moment rather
// than by a background sweeper. A user may hold any number of valid tokens
// at once, and nothing revokes a token before it expires.
//
// # Thread Safety
//
// Manager is safe for concurrent use.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianNotes/pkg/extensions"
	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/observability"
	"github.com/AleutianAI/AleutianNotes/services/notes/storage"
)

const (
	// TokensCollection is the collection holding session tokens.
	TokensCollection = "tokens"

	// DefaultTTL is how long an issued token stays valid.
	DefaultTTL = 30 * 24 * time.Hour

	tokenBytes = 32
)

var (
	errUnknownToken = fmt.Errorf("%w: %w", extensions.ErrUnauthorized, datatypes.ErrUnauthenticated)
	errExpiredToken = fmt.Errorf("%w: %w", extensions.ErrUnauthorized, datatypes.ErrExpired)
)

// Manager issues and validates session tokens.
type Manager struct {
	tokens  *storage.Collection[datatypes.SessionToken]
	ttl     time.Duration
	now     func() time.Time
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics records validation results on metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager backed by store.
func NewManager(store storage.DocumentStore, opts ...Option) *Manager {
	m := &Manager{
		tokens: storage.NewCollection[datatypes.SessionToken](store, TokensCollection),
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lifetime given to new tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates and stores a new token for userID.
func (m *Manager) Issue(ctx context.Context, userID string) (*datatypes.SessionToken, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", datatypes.ErrInvalidInput)
	}
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := m.now().UTC()
	tok := &datatypes.SessionToken{
		Token:     hex.EncodeToString(raw),
		UserID:    userID,
		CreatedAt: now,
		Expires:   now.Add(m.ttl),
	}
	if err := m.tokens.Insert(ctx, tok.Token, tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return tok, nil
}

// Lookup resolves token to its stored record.
//
// # Outputs
//
//   - error: wraps ErrUnauthenticated for empty or unknown tokens and
//     ErrExpired for tokens past their expiry. Both also wrap
//     extensions.ErrUnauthorized.
func (m *Manager) Lookup(ctx context.Context, token string) (*datatypes.SessionToken, error) {
	if token == "" {
		m.metrics.RecordSession(observability.SessionUnknown)
		return nil, errUnknownToken
	}
	tok, err := m.tokens.Get(ctx, token)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		m.metrics.RecordSession(observability.SessionUnknown)
		return nil, errUnknownToken
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	tok.Token = token

	if tok.ExpiredAt(m.now()) {
		if err := m.tokens.Delete(ctx, token); err != nil {
			m.logger.Warn("failed to delete expired session token",
				slog.String("user_id", tok.UserID),
				slog.String("error", err.Error()))
		}
		m.metrics.RecordSession(observability.SessionExpired)
		return nil, errExpiredToken
	}
	m.metrics.RecordSession(observability.SessionValid)
	return tok, nil
}

// Validate implements extensions.AuthProvider.
func (m *Manager) Validate(ctx context.Context, token string) (*extensions.AuthInfo, error) {
	tok, err := m.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	return &extensions.AuthInfo{UserID: tok.UserID, Token: token}, nil
}

var _ extensions.AuthProvider = (*Manager)(nil)
