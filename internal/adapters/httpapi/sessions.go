package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/app"
	"github.com/kodesesh/backend/internal/core"
	"github.com/kodesesh/backend/internal/domain"
)

// SessionHandlers serves the record-level session REST surface. The live
// participant set is the registry's business; these endpoints only manage
// durable records and answer lobby-style queries.
type SessionHandlers struct {
	Store    core.SessionStore
	Registry *app.Registry
	AppURL   string
}

func (h *SessionHandlers) Create(c *gin.Context) {
	var req struct {
		Title    string `json:"title"`
		HostName string `json:"host_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	token := c.GetString("client_token")
	sid := domain.SessionID(uuid.NewString())
	rec := domain.SessionRecord{
		SessionID: sid,
		Title:     req.Title,
		HostID:    domain.ParticipantID(token),
		HostName:  req.HostName,
		Status:    domain.StatusActive,
		Link:      fmt.Sprintf("%s/session/%s", h.AppURL, sid),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.Create(c.Request.Context(), rec); err != nil {
		log.Error().Err(err).Str("module", "httpapi").Msg("create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error creating session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "session created successfully",
		"session_id":   rec.SessionID,
		"session_link": rec.Link,
	})
}

func (h *SessionHandlers) Join(c *gin.Context) {
	var req struct {
		SessionID domain.SessionID `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	rec, err := h.Store.Find(c.Request.Context(), req.SessionID)
	if errors.Is(err, core.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "httpapi").Msg("join session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error joining session"})
		return
	}
	if rec.Status != domain.StatusActive {
		c.JSON(http.StatusForbidden, gin.H{"message": "session is not active"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "joined session successfully",
		"session_id":   rec.SessionID,
		"session_link": rec.Link,
		"participants": len(h.Registry.ParticipantList(rec.SessionID)),
	})
}

func (h *SessionHandlers) Get(c *gin.Context) {
	sid := domain.SessionID(c.Param("session_id"))
	rec, err := h.Store.Find(c.Request.Context(), sid)
	if errors.Is(err, core.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching session details"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   rec.SessionID,
		"title":        rec.Title,
		"status":       rec.Status,
		"host_name":    rec.HostName,
		"created_at":   rec.CreatedAt,
		"participants": h.Registry.ParticipantList(sid),
	})
}

func (h *SessionHandlers) Leave(c *gin.Context) {
	var req struct {
		SessionID domain.SessionID `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	rec, err := h.Store.Find(c.Request.Context(), req.SessionID)
	if errors.Is(err, core.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error leaving session"})
		return
	}

	// A host leaving ends the session for everyone.
	if string(rec.HostID) == c.GetString("client_token") {
		if err := h.Store.SetStatus(c.Request.Context(), rec.SessionID, domain.StatusEnded); err != nil {
			log.Error().Err(err).Str("module", "httpapi").Msg("end session")
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "left session successfully"})
}

func (h *SessionHandlers) Delete(c *gin.Context) {
	sid := domain.SessionID(c.Param("session_id"))
	rec, err := h.Store.Find(c.Request.Context(), sid)
	if errors.Is(err, core.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error deleting session"})
		return
	}
	if string(rec.HostID) != c.GetString("client_token") {
		c.JSON(http.StatusForbidden, gin.H{"message": "only the host can delete the session"})
		return
	}
	if err := h.Store.Delete(c.Request.Context(), sid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error deleting session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted successfully"})
}
