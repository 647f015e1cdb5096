package http

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medassist/internal/agent"
	"medassist/internal/session"
)

type createSessionRequest struct {
	UserID string `json:"user_id"`
}

func (h *handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
			return
		}
	}

	sess, err := h.store.CreateSession(c.Request.Context(), req.UserID)
	if err != nil {
		h.logger.Error("Creating session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID})
}

func (h *handler) sessionHistory(c *gin.Context) {
	id := c.Param("id")

	sess, err := h.store.GetSession(c.Request.Context(), id)
	if err != nil {
		if stderrors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "session not found"})
			return
		}
		h.logger.Error("Loading session %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Listing messages for %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}
	if msgs == nil {
		msgs = []session.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"messages":   msgs,
		"state":      sess.State,
	})
}

func (h *handler) teamMembers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"team_members": agent.TeamMembers()})
}
