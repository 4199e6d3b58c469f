// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianNotes/pkg/logging"
	"github.com/AleutianAI/AleutianNotes/services/llm"
	"github.com/AleutianAI/AleutianNotes/services/notes"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML layout of the notes server configuration.
//
// Every field is optional. Zero values fall through to the defaults applied
// by notes.New.
type FileConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	GinMode         string        `yaml:"gin_mode"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	DataDir  string `yaml:"data_dir"`
	InMemory bool   `yaml:"in_memory"`
}

type SessionsConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type OracleConfig struct {
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
	OpenAI  struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`
	Ollama struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"ollama"`
}

type AuthConfig struct {
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type TelemetryConfig struct {
	OTelEndpoint   string `yaml:"otel_endpoint"`
	DisableMetrics bool   `yaml:"disable_metrics"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// loadFileConfig reads path as YAML. An empty path yields an empty config.
func loadFileConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overrides file values with any environment variables that are set.
//
// # Environment Variables
//
//   - NOTES_PORT: HTTP server port
//   - NOTES_DATA_DIR: badger data directory
//   - NOTES_SESSION_TTL: session lifetime, Go duration syntax
//   - NOTES_LOG_LEVEL: debug, info, warn, error
//   - LLM_BACKEND_TYPE: none, openai, ollama
//   - OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL
//   - OLLAMA_BASE_URL, OLLAMA_MODEL
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector
func applyEnv(cfg *FileConfig) {
	cfg.Server.Port = getEnvInt("NOTES_PORT", cfg.Server.Port)
	cfg.Storage.DataDir = getEnvString("NOTES_DATA_DIR", cfg.Storage.DataDir)
	cfg.Sessions.TTL = getEnvDuration("NOTES_SESSION_TTL", cfg.Sessions.TTL)
	cfg.Logging.Level = getEnvString("NOTES_LOG_LEVEL", cfg.Logging.Level)

	cfg.Oracle.Backend = getEnvString("LLM_BACKEND_TYPE", cfg.Oracle.Backend)
	cfg.Oracle.OpenAI.APIKey = getEnvString("OPENAI_API_KEY", cfg.Oracle.OpenAI.APIKey)
	cfg.Oracle.OpenAI.Model = getEnvString("OPENAI_MODEL", cfg.Oracle.OpenAI.Model)
	cfg.Oracle.OpenAI.BaseURL = getEnvString("OPENAI_BASE_URL", cfg.Oracle.OpenAI.BaseURL)
	cfg.Oracle.Ollama.BaseURL = getEnvString("OLLAMA_BASE_URL", cfg.Oracle.Ollama.BaseURL)
	cfg.Oracle.Ollama.Model = getEnvString("OLLAMA_MODEL", cfg.Oracle.Ollama.Model)

	cfg.Telemetry.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTelEndpoint)
}

// loggerConfig builds the pkg/logging config for the server process.
func (f FileConfig) loggerConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(f.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:   level,
		LogDir:  f.Logging.Dir,
		Service: "notes",
		JSON:    f.Logging.JSON,
	}, nil
}

// serviceConfig converts the file layout into a notes.Config.
func (f FileConfig) serviceConfig() notes.Config {
	return notes.Config{
		Port:          f.Server.Port,
		DataDir:       f.Storage.DataDir,
		InMemory:      f.Storage.InMemory,
		SessionTTL:    f.Sessions.TTL,
		OracleBackend: f.Oracle.Backend,
		OracleTimeout: f.Oracle.Timeout,
		OpenAI: llm.OpenAIConfig{
			APIKey:  f.Oracle.OpenAI.APIKey,
			Model:   f.Oracle.OpenAI.Model,
			BaseURL: f.Oracle.OpenAI.BaseURL,
		},
		Ollama: llm.OllamaConfig{
			BaseURL: f.Oracle.Ollama.BaseURL,
			Model:   f.Oracle.Ollama.Model,
		},
		OTelEndpoint:    f.Telemetry.OTelEndpoint,
		DisableMetrics:  f.Telemetry.DisableMetrics,
		GinMode:         f.Server.GinMode,
		AuthRateLimit:   f.Auth.RateLimit,
		AuthRateBurst:   f.Auth.RateBurst,
		CORSOrigins:     f.Server.CORSOrigins,
		TrustedProxies:  f.Server.TrustedProxies,
		ShutdownTimeout: f.Server.ShutdownTimeout,
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
