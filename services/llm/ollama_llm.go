// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type OllamaConfig struct {
	BaseURL string
	Model   string
	// Timeout bounds a single HTTP exchange. Default: 5 minutes.
	Timeout time.Duration
}

type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatRequest always asks for a single non-streamed reply.
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("OLLAMA_BASE_URL not set")
	}
	model := cfg.Model
	if model == "" {
		slog.Warn("OLLAMA_MODEL not set, defaulting to gpt-oss")
		model = "gpt-oss"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	slog.Info("Initializing Ollama client", "base_url", baseURL, "default_model", model)
	return &OllamaClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		model:      model,
	}, nil
}

// Generate implements the LLMClient interface using the /api/chat endpoint.
//
// JSONMode maps to Ollama's "format": "json", which constrains the model to
// emit a single JSON value.
func (o *OllamaClient) Generate(ctx context.Context, systemPrompt, prompt string,
	params GenerationParams) (string, error) {

	ctx, span := tracer.Start(ctx, "OllamaClient.Generate",
		trace.WithAttributes(
			attribute.String("llm.model", o.model),
			attribute.Bool("llm.json_mode", params.JSONMode),
		))
	defer span.End()

	payload := ollamaChatRequest{
		Model:    o.model,
		Messages: chatMessages(systemPrompt, prompt),
		Options:  buildOllamaOptions(params),
	}
	if params.JSONMode {
		payload.Format = "json"
	}

	start := time.Now()
	body, status, err := o.post(ctx, "/api/chat", payload)
	span.SetAttributes(attribute.Int64("llm.duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		slog.Error("Ollama API call failed", "error", err)
		return "", failSpan(span, err)
	}
	if status != http.StatusOK {
		slog.Error("Ollama chat returned an error", "status_code", status, "response", string(body))
		return "", failSpan(span, fmt.Errorf("ollama chat failed with status %d: %s", status, string(body)))
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", failSpan(span, fmt.Errorf("failed to parse Ollama response: %w", err))
	}
	if chat.Error != "" {
		return "", failSpan(span, fmt.Errorf("ollama reported an error: %s", chat.Error))
	}
	if chat.Message.Role != "" && chat.Message.Role != "assistant" {
		slog.Warn("Ollama chat response message role was not 'assistant'", "role", chat.Message.Role)
	}
	span.SetAttributes(attribute.Int("llm.response_length", len(chat.Message.Content)))
	return chat.Message.Content, nil
}

// post sends payload as JSON and returns the raw body and status code.
func (o *OllamaClient) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request to Ollama: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request to Ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body from Ollama: %w", err)
	}
	return body, resp.StatusCode, nil
}

func chatMessages(systemPrompt, prompt string) []ollamaMessage {
	messages := make([]ollamaMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: systemPrompt})
	}
	return append(messages, ollamaMessage{Role: "user", Content: prompt})
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func buildOllamaOptions(params GenerationParams) map[string]any {
	options := map[string]any{
		"temperature": float32(0.2),
		"top_p":       float32(0.9),
		"num_predict": 2048,
	}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		options["stop"] = params.Stop
	}
	return options
}

var _ LLMClient = (*OllamaClient)(nil)
