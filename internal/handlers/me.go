package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digidoc-org/digidoc-backend/internal/apperr"
	"github.com/digidoc-org/digidoc-backend/internal/services"
)

type MeHandler struct {
	meService services.MeService
}

func NewMeHandler(meService services.MeService) *MeHandler {
	return &MeHandler{meService: meService}
}

func (mh *MeHandler) GetMe(c *gin.Context) {
	user, err := mh.meService.GetMe(c.Request.Context())
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            user.ID.String(),
		"name":          user.Name,
		"email":         user.Email,
		"phone_number":  user.PhoneNumber,
		"about":         user.About,
		"date_of_birth": user.DateOfBirth,
		"avatar_path":   user.AvatarPath,
	})
}

func (mh *MeHandler) SummarizeAboutMe(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	about, err := mh.meService.SummarizeAboutMe(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "summary": about.Summary})
}

func (mh *MeHandler) GetAboutMe(c *gin.Context) {
	about, err := mh.meService.GetAboutMe(c.Request.Context())
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, about)
}
