// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the notes service.
//
// # Description
//
// Metrics cover the AI oracle (outcome and latency), commit outcomes,
// session validations and authentication attempts. They are registered
// against an explicit Registerer so tests and multiple service instances do
// not collide on the global registry.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// A nil *Metrics is valid and records nothing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const (
	metricsNamespace = "aleutian"
	notesSubsystem   = "notes"
)

// Metrics holds all Prometheus metrics for the notes service.
type Metrics struct {
	// OracleRequestsTotal counts classification attempts.
	// Labels: outcome (success, fallback)
	OracleRequestsTotal *prometheus.CounterVec

	// OracleDurationSeconds measures oracle latency including failures.
	OracleDurationSeconds prometheus.Histogram

	// CommitsTotal counts committed notes.
	// Labels: status (merged, created)
	CommitsTotal *prometheus.CounterVec

	// SessionValidationsTotal counts bearer token checks.
	// Labels: result (valid, unknown, expired)
	SessionValidationsTotal *prometheus.CounterVec

	// AuthAttemptsTotal counts signup and login attempts.
	// Labels: operation (register, authenticate), result (success, failure)
	AuthAttemptsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all notes metrics on reg.
//
// # Limitations
//
//   - Panics if the metrics are already registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OracleRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notesSubsystem,
				Name:      "oracle_requests_total",
				Help:      "Total classification requests by outcome",
			},
			[]string{"outcome"},
		),

		OracleDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: notesSubsystem,
				Name:      "oracle_duration_seconds",
				Help:      "Classification latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		CommitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notesSubsystem,
				Name:      "commits_total",
				Help:      "Total committed notes by status",
			},
			[]string{"status"},
		),

		SessionValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notesSubsystem,
				Name:      "session_validations_total",
				Help:      "Total session token validations by result",
			},
			[]string{"result"},
		),

		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: notesSubsystem,
				Name:      "auth_attempts_total",
				Help:      "Total account operations by operation and result",
			},
			[]string{"operation", "result"},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// OracleOutcome labels a classification attempt.
type OracleOutcome string

const (
	OracleSuccess  OracleOutcome = "success"
	OracleFallback OracleOutcome = "fallback"
)

// SessionResult labels a token validation.
type SessionResult string

const (
	SessionValid   SessionResult = "valid"
	SessionUnknown SessionResult = "unknown"
	SessionExpired SessionResult = "expired"
)

// AuthOperation labels an account operation.
type AuthOperation string

const (
	AuthRegister     AuthOperation = "register"
	AuthAuthenticate AuthOperation = "authenticate"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordOracle records one classification attempt and its latency.
func (m *Metrics) RecordOracle(outcome OracleOutcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OracleRequestsTotal.WithLabelValues(string(outcome)).Inc()
	m.OracleDurationSeconds.Observe(elapsed.Seconds())
}

// RecordCommit records a committed note. status is "merged" or "created".
func (m *Metrics) RecordCommit(status string) {
	if m == nil {
		return
	}
	m.CommitsTotal.WithLabelValues(status).Inc()
}

// RecordSession records a token validation.
func (m *Metrics) RecordSession(result SessionResult) {
	if m == nil {
		return
	}
	m.SessionValidationsTotal.WithLabelValues(string(result)).Inc()
}

// RecordAuth records a signup or login attempt.
func (m *Metrics) RecordAuth(op AuthOperation, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.AuthAttemptsTotal.WithLabelValues(string(op), result).Inc()
}
