package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the user and session endpoints under the API prefix.
// The gate middleware enforces authentication on the protected group.
func RegisterRoutes(r *gin.Engine, prefix string, auth *AuthHandler, users *UserHandler, gate gin.HandlerFunc) {
	api := r.Group(prefix)

	group := api.Group("/users")
	group.POST("/register", auth.Register)
	group.POST("/login", auth.Login)
	group.POST("/refresh-token", auth.Refresh)

	protected := group.Group("")
	protected.Use(gate)
	protected.POST("/logout", auth.Logout)
	protected.POST("/change-password", auth.ChangePassword)
	protected.GET("/current-user", auth.CurrentUser)
	protected.PATCH("/update-account", users.UpdateAccount)
	protected.PATCH("/avatar", users.UpdateAvatar)
	protected.PATCH("/cover", users.UpdateCoverImage)
	protected.GET("/c/:username", users.ChannelProfile)
}
