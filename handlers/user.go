package handlers

import (
	"github.com/gin-gonic/gin"

	"lingomate/middleware"
	"lingomate/utils"
)

func (h *Handler) GetRecommendedUsers(c *gin.Context) {
	users, err := h.Users.ListCandidates(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"recommendedUsers": users})
}

func (h *Handler) BlockUser(c *gin.Context) {
	if err := h.Users.Block(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "User blocked"})
}

func (h *Handler) UnblockUser(c *gin.Context) {
	if err := h.Users.Unblock(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "User unblocked"})
}
