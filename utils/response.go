package utils

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"lingomate/auth"
	"lingomate/models"
)

func Success(c *gin.Context, fields gin.H) {
	respond(c, http.StatusOK, fields)
}

func Created(c *gin.Context, fields gin.H) {
	respond(c, http.StatusCreated, fields)
}

func respond(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

func InternalError(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, "Internal server error")
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmailTaken),
		errors.Is(err, models.ErrAlreadyFriends),
		errors.Is(err, models.ErrRequestExists),
		errors.Is(err, models.ErrRequestResolved):
		return http.StatusConflict
	case errors.Is(err, models.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Error writes the failure envelope for err. Unclassified errors are logged
// and reported as a generic 500.
func Error(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
		InternalError(c)
		return
	}

	body := gin.H{"success": false, "message": err.Error()}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body["message"] = verr.Message
		if len(verr.MissingFields) > 0 {
			body["missingFields"] = verr.MissingFields
		}
		if len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
	}
	var merr *models.Error
	if errors.As(err, &merr) {
		body["message"] = merr.Message
	}
	c.AbortWithStatusJSON(status, body)
}
