// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package accounts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/observability"
	"github.com/AleutianAI/AleutianNotes/services/notes/storage"
)

const testIterations = 1000

func newTestManager(t *testing.T, opts ...Option) (*Manager, *storage.DB) {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts = append([]Option{WithIterations(testIterations)}, opts...)
	m, err := NewManager(db, opts...)
	require.NoError(t, err)
	return m, db
}

// =============================================================================
// Password Digest Tests
// =============================================================================

func TestHashPassword_Format(t *testing.T) {
	digest, err := HashPassword("hunter2", testIterations)
	require.NoError(t, err)

	parts := strings.Split(digest, "$")
	require.Len(t, parts, 4)
	assert.Equal(t, "pbkdf2-sha256", parts[0])
	assert.Equal(t, "1000", parts[1])
	assert.NotContains(t, digest, "hunter2")
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	a, err := HashPassword("same", testIterations)
	require.NoError(t, err)
	b, err := HashPassword("same", testIterations)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword(t *testing.T) {
	digest, err := HashPassword("correct horse", testIterations)
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong horse", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, digest := range []string{
		"",
		"plaintext",
		"md5$1$abc$def",
		"pbkdf2-sha256$zero$abc$def",
		"pbkdf2-sha256$1000$!!!$def",
		"pbkdf2-sha256$1000$YWJj$",
	} {
		_, err := VerifyPassword("x", digest)
		assert.Error(t, err, digest)
	}
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegister_StoresDigestNotPassword(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m, db := newTestManager(t, WithClock(func() time.Time { return created }))
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "a@x.com", "pw", "Ann"))

	user, err := storage.NewCollection[datatypes.User](db, UsersCollection).Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "Ann", user.Name)
	assert.True(t, created.Equal(user.CreatedAt))
	assert.NotEqual(t, "pw", user.PasswordHash)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "pbkdf2-sha256$"))
}

func TestRegister_EmptyFields(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name                  string
		email, password, user string
	}{
		{"empty email", "", "pw", "Ann"},
		{"empty password", "a@x.com", "", "Ann"},
		{"empty name", "a@x.com", "pw", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Register(ctx, tt.email, tt.password, tt.user)
			assert.ErrorIs(t, err, datatypes.ErrInvalidInput)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "a@x.com", "pw", "Ann"))
	err := m.Register(ctx, "a@x.com", "other", "Imposter")
	assert.ErrorIs(t, err, datatypes.ErrAlreadyExists)

	// The first registration still authenticates.
	id, err := m.Authenticate(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ann", id.Name)
}

func TestRegister_EmailIsCaseSensitive(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "a@x.com", "pw", "Ann"))
	require.NoError(t, m.Register(ctx, "A@x.com", "pw", "Other Ann"))
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Register(ctx, "race@x.com", "pw", "Racer")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, datatypes.ErrAlreadyExists)
	}
	assert.Equal(t, 1, succeeded)
}

// =============================================================================
// Authenticate Tests
// =============================================================================

func TestAuthenticate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Register(ctx, "a@x.com", "pw", "Ann"))

	t.Run("correct password", func(t *testing.T) {
		id, err := m.Authenticate(ctx, "a@x.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, &Identity{Email: "a@x.com", Name: "Ann"}, id)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := m.Authenticate(ctx, "a@x.com", "nope")
		assert.ErrorIs(t, err, datatypes.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := m.Authenticate(ctx, "b@x.com", "pw")
		assert.ErrorIs(t, err, datatypes.ErrInvalidCredentials)
	})

	t.Run("empty email", func(t *testing.T) {
		_, err := m.Authenticate(ctx, "", "pw")
		assert.ErrorIs(t, err, datatypes.ErrInvalidCredentials)
	})
}

func TestAuthenticate_NamelessUserDefaultsToUser(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	digest, err := HashPassword("pw", testIterations)
	require.NoError(t, err)
	users := storage.NewCollection[datatypes.User](db, UsersCollection)
	require.NoError(t, users.Put(ctx, "legacy@x.com", &datatypes.User{
		Email:        "legacy@x.com",
		PasswordHash: digest,
	}))

	id, err := m.Authenticate(ctx, "legacy@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "User", id.Name)
}

func TestAuthenticate_CorruptDigestIsInvalidCredentials(t *testing.T) {
	m, db := newTestManager(t)
	ctx := context.Background()

	users := storage.NewCollection[datatypes.User](db, UsersCollection)
	require.NoError(t, users.Put(ctx, "bad@x.com", &datatypes.User{
		Email:        "bad@x.com",
		Name:         "Bad",
		PasswordHash: "pw",
	}))

	_, err := m.Authenticate(ctx, "bad@x.com", "pw")
	assert.ErrorIs(t, err, datatypes.ErrInvalidCredentials)
}

func TestManager_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	m, _ := newTestManager(t, WithMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "a@x.com", "pw", "Ann"))
	_ = m.Register(ctx, "a@x.com", "pw", "Ann")
	_, _ = m.Authenticate(ctx, "a@x.com", "pw")
	_, _ = m.Authenticate(ctx, "a@x.com", "bad")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("register", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("register", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("authenticate", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("authenticate", "failure")))
}
