package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidora/vidora-api/internal/middleware"
	"github.com/vidora/vidora-api/internal/models"
	"github.com/vidora/vidora-api/internal/service"
	appErrors "github.com/vidora/vidora-api/pkg/errors"
	"github.com/vidora/vidora-api/pkg/response"
	"github.com/vidora/vidora-api/pkg/storage"
)

// RefreshTokenCookie is the cookie carrying the refresh token.
const RefreshTokenCookie = "refresh_token"

// AuthHandler wires the session endpoints to the auth service.
type AuthHandler struct {
	service        *service.AuthService
	spool          *storage.LocalStorage
	maxUploadBytes int64
	accessTTL      time.Duration
	refreshTTL     time.Duration
	secureCookies  bool
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, spool *storage.LocalStorage, maxUploadBytes int64, accessTTL, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		service:        svc,
		spool:          spool,
		maxUploadBytes: maxUploadBytes,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
		secureCookies:  secureCookies,
	}
}

// Register godoc
// @Summary Register user
// @Description Register a new user with avatar (required) and cover image (optional)
// @Tags Authentication
// @Accept mpfd
// @Produce json
// @Param full_name formData string true "Full name"
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param avatar formData file true "Avatar image"
// @Param cover formData file false "Cover image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	avatarPath, err := h.spoolFormFile(c, "avatar")
	if err != nil {
		response.Error(c, err)
		return
	}
	if avatarPath == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "avatar is required"))
		return
	}
	defer h.spool.Delete(avatarPath) //nolint:errcheck

	coverPath, err := h.spoolFormFile(c, "cover")
	if err != nil {
		response.Error(c, err)
		return
	}
	if coverPath != "" {
		defer h.spool.Delete(coverPath) //nolint:errcheck
	}

	user, err := h.service.Register(c.Request.Context(), req, avatarPath, coverPath)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by username or email plus password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setAuthCookies(c, res.AccessToken, res.RefreshToken)
	response.JSON(c, http.StatusOK, res)
}

// Refresh godoc
// @Summary Refresh token pair
// @Description Exchange a refresh token (cookie or body) for a new pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest false "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/refresh-token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	presented, _ := c.Cookie(RefreshTokenCookie)
	if presented == "" {
		var req models.RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "refresh token required"))
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), presented)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setAuthCookies(c, res.AccessToken, res.RefreshToken)
	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Logout current session
// @Description Clear the stored refresh token and both cookies
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), user.ID); err != nil {
		response.Error(c, err)
		return
	}

	h.clearAuthCookies(c)
	response.JSON(c, http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for the current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), user.ID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "password changed"})
}

// CurrentUser godoc
// @Summary Get current user
// @Description Returns the authenticated user's profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/current-user [get]
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, user.Info())
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, accessToken, int(h.accessTTL.Seconds()), "/", "", h.secureCookies, true)
	c.SetCookie(RefreshTokenCookie, refreshToken, int(h.refreshTTL.Seconds()), "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", h.secureCookies, true)
}

// spoolFormFile writes the named multipart file into the spool and returns
// its local path. A absent optional file yields "" without error.
func (h *AuthHandler) spoolFormFile(c *gin.Context, field string) (string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, fmt.Sprintf("invalid %s upload", field))
	}
	return spoolUpload(h.spool, h.maxUploadBytes, fileHeader)
}

func spoolUpload(spool *storage.LocalStorage, maxBytes int64, fileHeader *multipart.FileHeader) (string, error) {
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds maximum size of %d bytes", maxBytes))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	defer src.Close() //nolint:errcheck

	name := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	path, err := spool.SaveStream(name, src)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to spool upload")
	}
	return path, nil
}
