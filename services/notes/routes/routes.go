// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianNotes/pkg/extensions"
	"github.com/AleutianAI/AleutianNotes/services/notes/handlers"
	"github.com/AleutianAI/AleutianNotes/services/notes/middleware"
)

// SessionService issues tokens at login and validates them on every
// protected request.
type SessionService interface {
	handlers.SessionIssuer
	extensions.AuthProvider
}

// Dependencies are the components the route table is wired to.
type Dependencies struct {
	Accounts handlers.AccountService
	Sessions SessionService
	Notes    handlers.NoteService

	// AuthLimiter throttles the signup and login routes. Nil disables it.
	AuthLimiter *middleware.RateLimiter

	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Logger receives handler and middleware logs. Nil falls back to
	// slog.Default.
	Logger *slog.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	if deps.Logger != nil {
		router.Use(middleware.WithLogger(deps.Logger))
	}
	router.GET("/health", handlers.Health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		if deps.AuthLimiter != nil {
			auth.Use(deps.AuthLimiter.Middleware())
		}
		{
			auth.POST("/signup", handlers.Signup(deps.Accounts))
			auth.POST("/login", handlers.Login(deps.Accounts, deps.Sessions))
		}

		notes := api.Group("/notes", middleware.AuthMiddleware(deps.Sessions))
		{
			notes.POST("/organize", handlers.OrganizeNote(deps.Notes))
			notes.POST("", handlers.CommitNote(deps.Notes))
			notes.GET("", handlers.ListNotes(deps.Notes))
			notes.GET("/:id", handlers.GetNote(deps.Notes))
			notes.PUT("/:id", handlers.UpdateNote(deps.Notes))
			notes.DELETE("/:id", handlers.DeleteNote(deps.Notes))
		}
	}
}
