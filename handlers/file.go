package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"lingomate/middleware"
	"lingomate/service"
	"lingomate/utils"
)

func (h *Handler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxAvatarSize+(1<<20))

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.BadRequest(c, "Avatar must be 2MB or smaller.")
			return
		}
		utils.BadRequest(c, "No avatar uploaded.")
		return
	}
	defer file.Close()

	if header.Size > service.MaxAvatarSize {
		utils.BadRequest(c, "Avatar must be 2MB or smaller.")
		return
	}

	user, err := h.Profiles.UploadAvatar(c.Request.Context(), middleware.CurrentUser(c).ID, file)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"user": user})
}

// ServeFile serves avatars saved by local storage.
func (h *Handler) ServeFile(c *gin.Context) {
	path, err := h.Files.Path(c.Param("filename"))
	if err != nil {
		utils.BadRequest(c, "invalid file path")
		return
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		utils.NotFound(c, "file not found")
		return
	}
	c.File(path)
}
