package handlers

import (
	"encoding/json"
	"errors"
	"reflect"

	"github.com/gin-gonic/gin"

	"lingomate/auth"
	"lingomate/middleware"
	"lingomate/models"
	"lingomate/service"
	"lingomate/utils"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req service.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body.")
		return
	}

	user, token, err := h.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	auth.SetSessionCookie(c.Writer, token, h.Auth.SessionTTL(), h.SecureCookies)
	utils.Created(c, gin.H{"user": user})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body.")
		return
	}

	user, token, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Error(c, err)
		return
	}

	auth.SetSessionCookie(c.Writer, token, h.Auth.SessionTTL(), h.SecureCookies)
	utils.Success(c, gin.H{"user": user})
}

func (h *Handler) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c.Writer, h.SecureCookies)
	utils.Success(c, gin.H{"message": "Logout successful"})
}

func (h *Handler) CompleteProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		if ferr := profileBindError(err); ferr != nil {
			utils.Error(c, ferr)
			return
		}
		utils.BadRequest(c, "Invalid request body.")
		return
	}

	user, err := h.Profiles.CompleteProfile(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, gin.H{"user": user})
}

func (h *Handler) Me(c *gin.Context) {
	utils.Success(c, gin.H{"user": middleware.CurrentUser(c)})
}

// profileBindError turns decode failures that point at a single field into a
// field-level validation error. It returns nil for malformed bodies.
func profileBindError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return models.NewFieldErrors("Invalid profile fields.", map[string]string{
			typeErr.Field: "must be " + jsonKind(typeErr.Type.Kind()),
		})
	}
	var dateErr *models.DateError
	if errors.As(err, &dateErr) {
		return models.NewFieldErrors("Invalid profile fields.", map[string]string{
			"learningLanguages.learningSince": "must be a date (YYYY-MM-DD)",
		})
	}
	return nil
}

func jsonKind(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Struct, reflect.Map:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	}
	return "a number"
}
