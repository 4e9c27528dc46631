package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"selfserve-api/internal/service"
)

type MFAHandler struct {
	service *service.MFAService
}

func NewMFAHandler(service *service.MFAService) *MFAHandler {
	return &MFAHandler{service: service}
}

func (h *MFAHandler) Enroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	enrollment, err := h.service.Enroll(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrMFAAlreadyEnabled) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

func (h *MFAHandler) Activate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Activate(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMFACode):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid code"})
		case errors.Is(err, service.ErrMFANotEnrolled), errors.Is(err, service.ErrMFAAlreadyEnabled):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "MFA enabled"})
}

func (h *MFAHandler) Disable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Disable(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMFACode):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid code"})
		case errors.Is(err, service.ErrMFANotEnabled):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "MFA disabled"})
}
