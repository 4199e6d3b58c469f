// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianNotes/services/llm"
	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
)

var tracer = otel.Tracer("aleutian.notes.oracle")

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 30 * time.Second

// Config configures an LLMOracle.
type Config struct {
	// Timeout bounds each Classify call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Temperature for generation. Low values keep the JSON stable.
	Temperature float32

	// MaxTokens caps the response length.
	MaxTokens int
}

// DefaultConfig returns the production oracle configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		Temperature: 0.1,
		MaxTokens:   512,
	}
}

// LLMOracle classifies notes by prompting an llm.LLMClient for a JSON
// decision.
//
// Description:
//
//	Each call renders the prompt, asks the backend for JSON output under a
//	timeout, extracts the first JSON object from the reply and validates it.
//	There is no retry and no cache: a failure is returned to the caller
//	immediately.
//
// Thread Safety: This type is safe for concurrent use after initialization.
type LLMOracle struct {
	client llm.LLMClient
	config Config
	tmpl   *template.Template
}

// NewLLMOracle creates an oracle over client.
//
// Outputs:
//
//	*LLMOracle - Ready-to-use oracle.
//	error - If client is nil or the prompt template fails to compile.
func NewLLMOracle(client llm.LLMClient, config Config) (*LLMOracle, error) {
	if client == nil {
		return nil, errors.New("client must not be nil")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	tmpl, err := template.New("classify").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Parse(classificationPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("compile prompt template: %w", err)
	}
	return &LLMOracle{client: client, config: config, tmpl: tmpl}, nil
}

// Classify implements Oracle.
func (o *LLMOracle) Classify(ctx context.Context, noteText string, existing []datatypes.NoteDigest) (*datatypes.Decision, error) {
	ctx, span := tracer.Start(ctx, "oracle.LLMOracle.Classify",
		trace.WithAttributes(
			attribute.Int("note_length", len(noteText)),
			attribute.Int("existing_notes", len(existing)),
		),
	)
	defer span.End()

	decision, err := o.classify(ctx, noteText, existing)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("action", string(decision.Action)),
		attribute.Int("tags", len(decision.Tags)),
	)
	return decision, nil
}

func (o *LLMOracle) classify(ctx context.Context, noteText string, existing []datatypes.NoteDigest) (*datatypes.Decision, error) {
	prompt, err := o.buildPrompt(noteText, existing)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	params := llm.GenerationParams{JSONMode: true}
	if o.config.Temperature > 0 {
		temp := o.config.Temperature
		params.Temperature = &temp
	}
	if o.config.MaxTokens > 0 {
		maxTokens := o.config.MaxTokens
		params.MaxTokens = &maxTokens
	}

	response, err := o.client.Generate(reqCtx, systemPrompt, prompt, params)
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	decision, err := ParseDecision(response)
	if err != nil {
		slog.Debug("oracle response rejected",
			slog.String("error", err.Error()),
			slog.Int("response_length", len(response)),
		)
		return nil, err
	}
	return decision, nil
}

func (o *LLMOracle) buildPrompt(noteText string, existing []datatypes.NoteDigest) (string, error) {
	data := struct {
		NoteText string
		Existing []datatypes.NoteDigest
	}{
		NoteText: noteText,
		Existing: existing,
	}
	var buf bytes.Buffer
	if err := o.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseDecision extracts and validates a decision from raw backend output.
//
// Outputs:
//
//	*datatypes.Decision - The validated decision.
//	error - ErrMalformedResponse, ErrReported or ErrInvalidDecision.
func ParseDecision(raw string) (*datatypes.Decision, error) {
	obj, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(obj), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if reported := reportedError(envelope.Error); reported != "" {
		return nil, fmt.Errorf("%w: %s", ErrReported, reported)
	}

	var decision datatypes.Decision
	if err := json.Unmarshal([]byte(obj), &decision); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	if err := decision.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	return &decision, nil
}

// reportedError returns a readable form of an "error" member, or "" when
// the member is absent, null, false or an empty string.
func reportedError(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", `""`:
		return ""
	}
	var msg string
	if err := json.Unmarshal(trimmed, &msg); err == nil {
		return msg
	}
	return string(trimmed)
}

var _ Oracle = (*LLMOracle)(nil)
