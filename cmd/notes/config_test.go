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
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
  gin_mode: release
  cors_origins: ["https://notes.example.com"]
  trusted_proxies: ["10.0.0.0/8"]
  shutdown_timeout: 5s
storage:
  data_dir: /var/lib/notes
sessions:
  ttl: 48h
oracle:
  backend: ollama
  timeout: 15s
  ollama:
    base_url: http://localhost:11434
    model: llama3
auth:
  rate_limit: 2.5
  rate_burst: 4
telemetry:
  disable_metrics: true
logging:
  level: debug
  json: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileConfig(t *testing.T) {
	cfg, err := loadFileConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, []string{"https://notes.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/var/lib/notes", cfg.Storage.DataDir)
	assert.Equal(t, 48*time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, "ollama", cfg.Oracle.Backend)
	assert.Equal(t, 15*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "http://localhost:11434", cfg.Oracle.Ollama.BaseURL)
	assert.Equal(t, "llama3", cfg.Oracle.Ollama.Model)
	assert.InDelta(t, 2.5, cfg.Auth.RateLimit, 1e-9)
	assert.Equal(t, 4, cfg.Auth.RateBurst)
	assert.True(t, cfg.Telemetry.DisableMetrics)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
}

func TestLoadFileConfig_EmptyPath(t *testing.T) {
	cfg, err := loadFileConfig("")
	require.NoError(t, err)
	assert.Equal(t, FileConfig{}, cfg)
}

func TestLoadFileConfig_Errors(t *testing.T) {
	_, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadFileConfig(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)
}

func TestApplyEnv_OverridesFileValues(t *testing.T) {
	cfg, err := loadFileConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	t.Setenv("NOTES_PORT", "7000")
	t.Setenv("NOTES_DATA_DIR", "/tmp/notes")
	t.Setenv("NOTES_SESSION_TTL", "1h")
	t.Setenv("LLM_BACKEND_TYPE", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	applyEnv(&cfg)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/notes", cfg.Storage.DataDir)
	assert.Equal(t, time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, "openai", cfg.Oracle.Backend)
	assert.Equal(t, "sk-test", cfg.Oracle.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.OpenAI.Model)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTelEndpoint)
	// Unset variables keep the file value.
	assert.Equal(t, "llama3", cfg.Oracle.Ollama.Model)
}

func TestApplyEnv_InvalidNumbersKeepFileValue(t *testing.T) {
	cfg := FileConfig{}
	cfg.Server.Port = 9090
	cfg.Sessions.TTL = 2 * time.Hour

	t.Setenv("NOTES_PORT", "not-a-port")
	t.Setenv("NOTES_SESSION_TTL", "forever")
	applyEnv(&cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.TTL)
}

func TestApplyFlags_OnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().IntP("port", "p", 0, "")
	cmd.Flags().String("data-dir", "", "")
	cmd.Flags().String("log-level", "", "")
	require.NoError(t, cmd.Flags().Set("port", "8081"))

	cfg := FileConfig{}
	cfg.Storage.DataDir = "/from/file"
	cfg.Logging.Level = "warn"
	applyFlags(cmd, &cfg)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "/from/file", cfg.Storage.DataDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestServiceConfig(t *testing.T) {
	cfg, err := loadFileConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	svcCfg := cfg.serviceConfig()
	assert.Equal(t, 9090, svcCfg.Port)
	assert.Equal(t, "/var/lib/notes", svcCfg.DataDir)
	assert.Equal(t, 48*time.Hour, svcCfg.SessionTTL)
	assert.Equal(t, "ollama", svcCfg.OracleBackend)
	assert.Equal(t, 15*time.Second, svcCfg.OracleTimeout)
	assert.Equal(t, "http://localhost:11434", svcCfg.Ollama.BaseURL)
	assert.Equal(t, "llama3", svcCfg.Ollama.Model)
	assert.InDelta(t, 2.5, svcCfg.AuthRateLimit, 1e-9)
	assert.Equal(t, 4, svcCfg.AuthRateBurst)
	assert.True(t, svcCfg.DisableMetrics)
	assert.Equal(t, "release", svcCfg.GinMode)
	assert.Equal(t, []string{"10.0.0.0/8"}, svcCfg.TrustedProxies)
	assert.Nil(t, svcCfg.Logger)
}

func TestLoggerConfig(t *testing.T) {
	cfg := FileConfig{}
	logCfg, err := cfg.loggerConfig()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, logCfg.Level)
	assert.Equal(t, "notes", logCfg.Service)

	cfg.Logging.Level = "loud"
	_, err = cfg.loggerConfig()
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, version+"\n", out.String())
}
