// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command notes runs the AI-classified notes HTTP server.
//
// Configuration is layered: an optional YAML file, then environment
// variables, then command line flags.
//
// # Usage
//
//	# Build
//	go build -o notes ./cmd/notes
//
//	# Run with defaults (port 12210, data in ./data/notes, no oracle)
//	./notes serve
//
//	# Run against a local Ollama
//	LLM_BACKEND_TYPE=ollama OLLAMA_BASE_URL=http://localhost:11434 ./notes serve
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/AleutianNotes/pkg/logging"
	"github.com/AleutianAI/AleutianNotes/services/notes"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "notes",
		Short:         "AI-classified notes server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the notes HTTP server",
		RunE:  runServe,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the notes server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (overrides config and NOTES_PORT)")
	serveCmd.Flags().String("data-dir", "", "badger data directory")
	serveCmd.Flags().String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(configPath)
	if err != nil {
		return err
	}
	applyEnv(&fileCfg)
	applyFlags(cmd, &fileCfg)

	logCfg, err := fileCfg.loggerConfig()
	if err != nil {
		return err
	}
	logger := logging.New(logCfg)
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg := fileCfg.serviceConfig()
	cfg.Logger = logger.Slog()

	logger.Slog().Info("Starting notes service",
		"version", version,
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"oracle_backend", cfg.OracleBackend,
	)

	svc, err := notes.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create notes service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return svc.Run(ctx)
}

// applyFlags copies explicitly set flags over the file and env values.
func applyFlags(cmd *cobra.Command, cfg *FileConfig) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		if port, err := flags.GetInt("port"); err == nil {
			cfg.Server.Port = port
		}
	}
	if flags.Changed("data-dir") {
		if dir, err := flags.GetString("data-dir"); err == nil {
			cfg.Storage.DataDir = dir
		}
	}
	if flags.Changed("log-level") {
		if level, err := flags.GetString("log-level"); err == nil {
			cfg.Logging.Level = level
		}
	}
}
