package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lingomate/service"
	"lingomate/storage"
	"lingomate/websocket"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the services the HTTP routes call into.
type Handler struct {
	Auth          *service.AuthService
	Profiles      *service.ProfileService
	Friends       *service.FriendsService
	Users         *service.UsersService
	Hub           *websocket.Hub
	Files         *storage.Local
	DB            Pinger
	SecureCookies bool
}

// RouterOptions holds the middleware the router wires around the handlers.
type RouterOptions struct {
	Middleware   []gin.HandlerFunc
	LoginLimiter gin.HandlerFunc
	Metrics      http.Handler
}

func NewRouter(h *Handler, authn gin.HandlerFunc, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(opts.Middleware...)
	r.MaxMultipartMemory = 4 << 20

	r.GET("/health", h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	if h.Files != nil {
		r.GET("/files/:filename", h.ServeFile)
	}
	r.GET("/ws", authn, h.ServeWS)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		if opts.LoginLimiter != nil {
			authGroup.POST("/login", opts.LoginLimiter, h.Login)
		} else {
			authGroup.POST("/login", h.Login)
		}
		authGroup.POST("/logout", h.Logout)

		authGroup.POST("/bio", authn, h.CompleteProfile)
		authGroup.POST("/avatar", authn, h.UploadAvatar)
		authGroup.GET("/me", authn, h.Me)
	}

	users := api.Group("/user")
	users.Use(authn)
	{
		users.GET("", h.GetRecommendedUsers)
		users.GET("/friends", h.GetFriends)
		users.DELETE("/friends/:id", h.RemoveFriend)

		users.POST("/friend-request/:id", h.SendFriendRequest)
		users.PUT("/friend-request/accept/:id", h.AcceptFriendRequest)
		users.PUT("/friend-request/reject/:id", h.RejectFriendRequest)
		users.DELETE("/friend-request/cancel/:id", h.CancelFriendRequest)

		users.GET("/friend-requests", h.GetFriendRequests)
		users.GET("/outgoing-friend-requests", h.GetOutgoingFriendRequests)

		users.POST("/block/:id", h.BlockUser)
		users.DELETE("/block/:id", h.UnblockUser)
	}

	chat := api.Group("/chat")
	chat.Use(authn)
	{
		chat.GET("/token", h.ChatToken)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.DB.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
