package handlers

import (
	"github.com/gin-gonic/gin"

	"lingomate/middleware"
	"lingomate/utils"
)

func (h *Handler) GetFriends(c *gin.Context) {
	friends, err := h.Friends.ListFriends(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"friends": friends})
}

func (h *Handler) RemoveFriend(c *gin.Context) {
	if err := h.Friends.RemoveFriend(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Friend removed successfully"})
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	req, err := h.Friends.SendRequest(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Created(c, gin.H{"message": "Friend request sent successfully", "request": req})
}

func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	req, err := h.Friends.AcceptRequest(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Friend request accepted successfully", "request": req})
}

func (h *Handler) RejectFriendRequest(c *gin.Context) {
	req, err := h.Friends.RejectRequest(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Friend request rejected successfully", "request": req})
}

func (h *Handler) CancelFriendRequest(c *gin.Context) {
	if err := h.Friends.CancelRequest(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id")); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Friend request cancelled and deleted successfully"})
}

// GetFriendRequests returns pending incoming requests and every request the
// user has sent.
func (h *Handler) GetFriendRequests(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.CurrentUser(c).ID

	incoming, err := h.Friends.ListIncoming(ctx, userID)
	if err != nil {
		utils.Error(c, err)
		return
	}
	sent, err := h.Friends.ListOutgoing(ctx, userID, false)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"incomingRequests": incoming, "sentRequests": sent})
}

func (h *Handler) GetOutgoingFriendRequests(c *gin.Context) {
	outgoing, err := h.Friends.ListOutgoing(c.Request.Context(), middleware.CurrentUser(c).ID, true)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"outgoingRequests": outgoing})
}
