package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lingomate/middleware"
	"lingomate/presence"
	"lingomate/utils"
)

func (h *Handler) ChatToken(c *gin.Context) {
	token, err := h.Users.ChatToken(middleware.CurrentUser(c).ID)
	if errors.Is(err, presence.ErrDisabled) {
		utils.Fail(c, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"token": token})
}

// ServeWS upgrades an authenticated request to the notification socket.
func (h *Handler) ServeWS(c *gin.Context) {
	h.Hub.ServeUser(c.Writer, c.Request, middleware.CurrentUser(c).ID)
}
