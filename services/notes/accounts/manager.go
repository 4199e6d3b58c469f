// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package accounts registers users and checks their credentials.
//
// # Description
//
// Users live in the "users" collection keyed by email. Emails are compared
// exactly as given. Passwords are stored only as salted PBKDF2-SHA256
// digests. Accounts are never updated or deleted once created.
//
// # Thread Safety
//
// Manager is safe for concurrent use. Two concurrent signups for the same
// email resolve to exactly one success because the existence check and the
// write are a single insert-if-absent on the store.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/observability"
	"github.com/AleutianAI/AleutianNotes/services/notes/storage"
)

// UsersCollection is the collection holding user documents.
const UsersCollection = "users"

// Identity is what a successful authentication yields.
type Identity struct {
	Email string
	Name  string
}

// Manager implements register and authenticate over a DocumentStore.
type Manager struct {
	users      *storage.Collection[datatypes.User]
	now        func() time.Time
	iterations int
	metrics    *observability.Metrics
	logger     *slog.Logger

	// dummyDigest is verified against when the email is unknown so that
	// unknown users and wrong passwords cost the same.
	dummyDigest string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIterations overrides the PBKDF2 work factor for new digests.
func WithIterations(n int) Option {
	return func(m *Manager) { m.iterations = n }
}

// WithMetrics records auth attempts on metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager backed by store.
func NewManager(store storage.DocumentStore, opts ...Option) (*Manager, error) {
	m := &Manager{
		users:      storage.NewCollection[datatypes.User](store, UsersCollection),
		now:        time.Now,
		iterations: DefaultIterations,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	dummy, err := HashPassword("", m.iterations)
	if err != nil {
		return nil, err
	}
	m.dummyDigest = dummy
	return m, nil
}

// Register creates a user.
//
// # Outputs
//
//   - error: ErrInvalidInput if any argument is empty, ErrAlreadyExists if
//     the email is taken, or a storage error.
func (m *Manager) Register(ctx context.Context, email, password, name string) error {
	err := m.register(ctx, email, password, name)
	m.metrics.RecordAuth(observability.AuthRegister, err == nil)
	return err
}

func (m *Manager) register(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" || name == "" {
		return fmt.Errorf("%w: email, password and name are required", datatypes.ErrInvalidInput)
	}
	digest, err := HashPassword(password, m.iterations)
	if err != nil {
		return err
	}
	user := &datatypes.User{
		Email:        email,
		Name:         name,
		PasswordHash: digest,
		CreatedAt:    m.now().UTC(),
	}
	if err := m.users.Insert(ctx, email, user); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return datatypes.ErrAlreadyExists
		}
		return fmt.Errorf("store user: %w", err)
	}
	m.logger.Info("user registered", slog.String("email", email))
	return nil
}

// Authenticate checks credentials and returns the user's identity.
//
// # Outputs
//
//   - *Identity: email and display name ("User" when the name is empty).
//   - error: ErrInvalidCredentials for an unknown email or wrong password.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	id, err := m.authenticate(ctx, email, password)
	m.metrics.RecordAuth(observability.AuthAuthenticate, err == nil)
	return id, err
}

func (m *Manager) authenticate(ctx context.Context, email, password string) (*Identity, error) {
	user, err := m.users.Get(ctx, email)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
		_, _ = VerifyPassword(password, m.dummyDigest)
		return nil, datatypes.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		m.logger.Error("stored password digest unreadable",
			slog.String("email", email), slog.String("error", err.Error()))
		return nil, datatypes.ErrInvalidCredentials
	}
	if !ok {
		return nil, datatypes.ErrInvalidCredentials
	}
	return &Identity{Email: user.Email, Name: user.DisplayName()}, nil
}
