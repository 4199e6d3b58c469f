// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianNotes/services/notes/accounts"
	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/middleware"
)

// AccountService registers and authenticates users.
type AccountService interface {
	Register(ctx context.Context, email, password, name string) error
	Authenticate(ctx context.Context, email, password string) (*accounts.Identity, error)
}

// SessionIssuer issues bearer tokens.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (*datatypes.SessionToken, error)
}

// Signup handles POST /api/auth/signup.
func Signup(svc AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SignupRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := svc.Register(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
			respondError(c, err, "signup")
			return
		}
		c.JSON(http.StatusOK, datatypes.MessageResponse{Message: "User created successfully"})
	}
}

// Login handles POST /api/auth/login.
func Login(svc AccountService, issuer SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()
		id, err := svc.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, err, "login")
			return
		}
		tok, err := issuer.Issue(ctx, id.Email)
		if err != nil {
			respondError(c, err, "login")
			return
		}
		middleware.Logger(c).Info("user logged in", slog.String("email", id.Email))
		c.JSON(http.StatusOK, datatypes.LoginResponse{
			Token:   tok.Token,
			Email:   id.Email,
			Name:    id.Name,
			Expires: tok.Expires,
		})
	}
}
