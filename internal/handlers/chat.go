package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/services"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (ch *ChatHandler) SaveMessage(c *gin.Context) {
	var req struct {
		ChatID    string `json:"chat_id"`
		Sender    string `json:"sender"`
		Text      string `json:"text"`
		Media     string `json:"media,omitempty"`
		Timestamp string `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg := types.Message{
		Sender:    req.Sender,
		Text:      req.Text,
		Media:     req.Media,
		Timestamp: req.Timestamp,
	}
	if err := ch.chatService.SaveMessage(c.Request.Context(), req.ChatID, msg); err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Message saved successfully", "chat_id": req.ChatID})
}

func (ch *ChatHandler) GetChatData(c *gin.Context) {
	chatID := c.Param("chat_id")
	data, err := ch.chatService.GetChatData(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (ch *ChatHandler) ListChats(c *gin.Context) {
	chats, err := ch.chatService.ListChats(c.Request.Context())
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (ch *ChatHandler) GenerateTitle(c *gin.Context) {
	var req struct {
		Response string `json:"response"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	title, err := ch.chatService.GenerateTitle(c.Request.Context(), req.Response)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": title})
}

func (ch *ChatHandler) UpdateChatTitle(c *gin.Context) {
	var req struct {
		ChatID string `json:"chat_id"`
		Title  string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ch.chatService.UpdateChatTitle(c.Request.Context(), req.ChatID, req.Title); err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "chat_id": req.ChatID, "title": req.Title})
}
