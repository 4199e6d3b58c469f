// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// loggerKey is the gin context key for the request-scoped logger.
const loggerKey = "aleutian_logger"

// WithLogger stores logger in the gin context of every request so handlers
// and later middleware log through it instead of the process default.
func WithLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(loggerKey, logger)
		c.Next()
	}
}

// Logger returns the logger set by WithLogger, or slog.Default when the
// request did not pass through it.
func Logger(c *gin.Context) *slog.Logger {
	if v, exists := c.Get(loggerKey); exists {
		if logger, ok := v.(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}
