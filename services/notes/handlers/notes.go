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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianNotes/services/notes/datatypes"
	"github.com/AleutianAI/AleutianNotes/services/notes/middleware"
)

// NoteService is the ingestion engine as seen by the HTTP layer.
type NoteService interface {
	Organize(ctx context.Context, noteText, userID string) (*datatypes.Decision, error)
	Commit(ctx context.Context, noteText string, decision *datatypes.Decision, userID string) (*datatypes.CommitResult, error)
	List(ctx context.Context, userID string) ([]datatypes.NoteView, error)
	Get(ctx context.Context, id, userID string) (*datatypes.Note, error)
	Update(ctx context.Context, id string, fields *datatypes.UpdateNoteRequest, userID string) (*datatypes.Note, error)
	Delete(ctx context.Context, id, userID string) error
}

// callerID returns the authenticated user, or writes 401 and returns "".
func callerID(c *gin.Context) string {
	info := middleware.GetAuthInfo(c)
	if info == nil || info.UserID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return ""
	}
	return info.UserID
}

// OrganizeNote handles POST /api/notes/organize. It always answers with a
// decision, falling back when the oracle is unavailable.
func OrganizeNote(svc NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			return
		}
		var req datatypes.OrganizeRequest
		if !bindJSON(c, &req) {
			return
		}
		decision, err := svc.Organize(c.Request.Context(), req.NoteText, userID)
		if err != nil {
			respondError(c, err, "organize")
			return
		}
		c.JSON(http.StatusOK, decision)
	}
}

// CommitNote handles POST /api/notes.
func CommitNote(svc NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			return
		}
		var req datatypes.CommitRequest
		if !bindJSON(c, &req) {
			return
		}
		res, err := svc.Commit(c.Request.Context(), req.NoteText, req.AISuggestion, userID)
		if err != nil {
			respondError(c, err, "commit")
			return
		}
		c.JSON(http.StatusOK, datatypes.CommitResponse{Message: res.Status, Note: res.Note.View()})
	}
}

// ListNotes handles GET /api/notes.
func ListNotes(svc NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			return
		}
		views, err := svc.List(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "list")
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

// GetNote handles GET /api/notes/:id.
func GetNote(svc NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			return
		}
		note, err := svc.Get(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			respondError(c, err, "get")
			return
		}
		c.JSON(http.StatusOK, note.View())
	}
}

// UpdateNote handles PUT /api/notes/:id.
func UpdateNote(svc NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			return
		}
		var req datatypes.UpdateNoteRequest
		if !bindJSON(c, &req) {
			return
		}
		note, err := svc.Update(c.Request.Context(), c.Param("id"), &req, userID)
		if err != nil {
			respondError(c, err, "update")
			return
		}
		c.JSON(http.StatusOK, datatypes.UpdateNoteResponse{Note: note.View()})
	}
}

// DeleteNote handles DELETE /api/notes/:id.
func DeleteNote(svc NoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := callerID(c)
		if userID == "" {
			return
		}
		if err := svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
			respondError(c, err, "delete")
			return
		}
		c.JSON(http.StatusOK, datatypes.DeleteNoteResponse{Status: "deleted"})
	}
}
