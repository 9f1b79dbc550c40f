package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/services"
	"github.com/digidoc-org/digidoc-backend/internal/types"
)

type MediaHandler struct {
	chatService services.ChatService
}

func NewMediaHandler(chatService services.ChatService) *MediaHandler {
	return &MediaHandler{chatService: chatService}
}

// ServeMedia returns the raw file bytes. Files in chats the caller does not
// own come back 404, same as files that do not exist.
func (mh *MediaHandler) ServeMedia(c *gin.Context) {
	chatID := c.Param("chat_id")
	filename := c.Param("filename")
	data, err := mh.chatService.ReadMedia(c.Request.Context(), chatID, filename)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	contentType := "application/octet-stream"
	if mime, err := services.ValidateAttachment(filename); err == nil {
		contentType = mime
	}
	c.Data(http.StatusOK, contentType, data)
}

func (mh *MediaHandler) ListUserMedia(c *gin.Context) {
	refs, err := mh.chatService.ListUserMedia(c.Request.Context())
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	if refs == nil {
		refs = []types.MediaRef{}
	}
	c.JSON(http.StatusOK, gin.H{"media_files": refs})
}
