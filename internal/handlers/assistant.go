package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/logger"
	"github.com/digidoc-org/digidoc-backend/internal/services"
	"github.com/digidoc-org/digidoc-backend/internal/stream"
)

// maxUploadBytes caps attachment uploads at 20MB, matching what the
// assistant models accept inline.
const maxUploadBytes = 20 << 20

type AssistantHandler struct {
	log         *logger.Logger
	chatService services.ChatService
	relay       *stream.Relay
}

func NewAssistantHandler(log *logger.Logger, chatService services.ChatService, relay *stream.Relay) *AssistantHandler {
	return &AssistantHandler{
		log:         log.With("handler", "AssistantHandler"),
		chatService: chatService,
		relay:       relay,
	}
}

// Ask answers a chat query. The reply arrives from the model in full and is
// replayed to the client word by word as a plain-text stream.
func (ah *AssistantHandler) Ask(c *gin.Context) {
	var req struct {
		ChatID  string                 `json:"chat_id"`
		Query   string                 `json:"query"`
		History []services.HistoryTurn `json:"history,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	answer, err := ah.chatService.Ask(c.Request.Context(), req.ChatID, req.Query, req.History)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := ah.relay.Write(c.Request.Context(), c.Writer, answer); err != nil {
		ah.log.Warn("stream aborted", "chatID", req.ChatID, "error", err)
	}
}

// ProcessAttachment accepts a multipart upload, stores it under the chat and
// streams back the model's reading of it.
func (ah *AssistantHandler) ProcessAttachment(c *gin.Context) {
	chatID := c.PostForm("chat_id")
	prompt := c.PostForm("prompt")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	answer, err := ah.chatService.ProcessAttachment(c.Request.Context(), chatID, fileHeader.Filename, data, prompt)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := ah.relay.Write(c.Request.Context(), c.Writer, answer); err != nil {
		ah.log.Warn("stream aborted", "chatID", chatID, "error", err)
	}
}
