// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers of the notes API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/middleware"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, datatypes.ErrInvalidInput), errors.Is(err, datatypes.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, datatypes.ErrInvalidCredentials),
		errors.Is(err, datatypes.ErrUnauthenticated),
		errors.Is(err, datatypes.ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, datatypes.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, datatypes.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": msg}. Internal errors are logged and
// replaced with a generic message.
func respondError(c *gin.Context, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		middleware.Logger(c).Error("request failed",
			slog.String("op", op),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindJSON decodes and validates the request body. On failure it writes a
// 400 and returns false.
func bindJSON(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.Logger(c).Warn("invalid request body", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
