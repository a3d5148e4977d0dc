package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidora/vidora-api/internal/middleware"
	"github.com/vidora/vidora-api/internal/models"
	"github.com/vidora/vidora-api/internal/service"
	appErrors "github.com/vidora/vidora-api/pkg/errors"
	"github.com/vidora/vidora-api/pkg/response"
	"github.com/vidora/vidora-api/pkg/storage"
)

// UserHandler handles profile and channel endpoints.
type UserHandler struct {
	service        *service.UserService
	spool          *storage.LocalStorage
	maxUploadBytes int64
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService, spool *storage.LocalStorage, maxUploadBytes int64) *UserHandler {
	return &UserHandler{service: svc, spool: spool, maxUploadBytes: maxUploadBytes}
}

// UpdateAccount godoc
// @Summary Update account details
// @Description Patch the current user's full name and email
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.UpdateAccountRequest true "Account payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/update-account [patch]
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid account payload"))
		return
	}

	updated, err := h.service.UpdateAccount(c.Request.Context(), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, updated)
}

// UpdateAvatar godoc
// @Summary Update avatar
// @Description Replace the current user's avatar image
// @Tags Users
// @Accept mpfd
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/avatar [patch]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.service.UpdateAvatar)
}

// UpdateCoverImage godoc
// @Summary Update cover image
// @Description Replace the current user's cover image
// @Tags Users
// @Accept mpfd
// @Produce json
// @Param cover formData file true "Cover image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/cover [patch]
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "cover", h.service.UpdateCoverImage)
}

// ChannelProfile godoc
// @Summary Get channel profile
// @Description Channel profile with subscriber aggregates for a username
// @Tags Users
// @Produce json
// @Param username path string true "Channel username"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/c/{username} [get]
func (h *UserHandler) ChannelProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.service.ChannelProfile(c.Request.Context(), c.Param("username"), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile)
}

func (h *UserHandler) updateImage(c *gin.Context, field string, update func(ctx context.Context, userID, localPath string) (*models.UserInfo, error)) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile(field)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, field+" file is required"))
		return
	}

	localPath, err := spoolUpload(h.spool, h.maxUploadBytes, fileHeader)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer h.spool.Delete(localPath) //nolint:errcheck

	updated, err := update(c.Request.Context(), user.ID, localPath)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, updated)
}
