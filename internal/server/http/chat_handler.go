package http

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medassist/internal/errors"
	"medassist/internal/events"
	"medassist/internal/metrics"
	"medassist/internal/server/app"
	"medassist/internal/session"
)

// heartbeatInterval is how often a comment line keeps an idle stream open
// through proxies.
const heartbeatInterval = 30 * time.Second

// chatContent accepts either a plain string or the multi-part form
// `[{type:"text",text}, {type:"image",image_url}]`. Only text parts feed the
// conversation.
type chatContent struct {
	Text string
}

func (c *chatContent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.Text = s
		return nil
	}
	var parts []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		ImageURL string `json:"image_url"`
	}
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(p.Text)
		}
	}
	c.Text = sb.String()
	return nil
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content chatContent `json:"content"`
}

type chatStreamRequest struct {
	Messages             []chatMessage `json:"messages"`
	Debug                bool          `json:"debug"`
	DeepThinkingMode     bool          `json:"deep_thinking_mode"`
	SearchBeforePlanning bool          `json:"search_before_planning"`
	TeamMembers          []string      `json:"team_members"`
	SessionID            string        `json:"session_id"`
}

// streamChat starts a workflow run and relays its events as SSE until the
// run terminates or the client disconnects.
func (h *handler) streamChat(c *gin.Context) {
	var req chatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "messages must not be empty"})
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || strings.TrimSpace(last.Content.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "last message must be a non-empty user message"})
		return
	}

	stream, _, err := h.orchestrator.StartTurn(c.Request.Context(), app.RunRequest{
		SessionID:            req.SessionID,
		Input:                last.Content.Text,
		Debug:                req.Debug,
		DeepThinking:         req.DeepThinkingMode,
		SearchBeforePlanning: req.SearchBeforePlanning,
		TeamMembers:          req.TeamMembers,
	})
	if err != nil {
		h.writeStartError(c, err)
		return
	}

	h.relay(c, stream)
}

func (h *handler) writeStartError(c *gin.Context, err error) {
	switch {
	case errors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case stderrors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "session not found"})
	case stderrors.Is(err, app.ErrRunActive):
		c.JSON(http.StatusConflict, gin.H{"detail": "session already has an active run"})
	default:
		h.logger.Error("Starting turn failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}

// relay frames stream events as SSE. A heartbeat comment goes out on idle;
// client disconnect ends the loop and, through the request context, cancels
// the run.
func (h *handler) relay(c *gin.Context, stream *events.Stream) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("Response writer does not support flushing, closing stream")
		return
	}
	rc := http.NewResponseController(w)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, open := <-stream.Events():
			if !open {
				return
			}
			// A stalled client must not pin the run's goroutine.
			_ = rc.SetWriteDeadline(time.Now().Add(heartbeatInterval))
			if err := writeEvent(w, ev); err != nil {
				h.logger.Warn("Writing %s event failed: %v", ev.Type, err)
				return
			}
			metrics.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
			flusher.Flush()
		case <-ticker.C:
			_ = rc.SetWriteDeadline(time.Now().Add(heartbeatInterval))
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

// writeEvent frames one event as `event: <type>` plus a compact JSON data
// line.
func writeEvent(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
