package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"selfserve-api/internal/service"
)

type OrganizationHandler struct {
	service *service.OrganizationService
}

func NewOrganizationHandler(service *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

func orgError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrganizationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
	case errors.Is(err, service.ErrNotAMember):
		// 404 rather than 403: don't leak which organizations exist.
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
	case errors.Is(err, service.ErrAdminRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyMember), errors.Is(err, service.ErrAlreadyInvited):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *OrganizationHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	org, err := h.service.Create(ctx, userID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, org)
}

func (h *OrganizationHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	org, err := h.service.Get(ctx, orgID, userID)
	if err != nil {
		orgError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

func (h *OrganizationHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name *string `json:"name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	org, err := h.service.Update(ctx, orgID, userID, req.Name)
	if err != nil {
		orgError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	members, err := h.service.ListMembers(ctx, orgID, userID)
	if err != nil {
		orgError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

func (h *OrganizationHandler) Invite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	invite, err := h.service.Invite(ctx, orgID, userID, req.Email, req.Role)
	if err != nil {
		orgError(c, err)
		return
	}

	if invite == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Existing user added as member"})
		return
	}

	c.JSON(http.StatusCreated, invite)
}

func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	orgID, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.service.RemoveMember(ctx, orgID, userID, memberID); err != nil {
		orgError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
