package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/edupath/enroll-api/pkg/errors"
)

// JSON sends a success response.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, payload)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusCreated, payload)
}

// Error sends an error response converting the error to the common structure.
// Dependency counts attached via Meta are flattened into the body so cascade
// guards can answer with e.g. {"error": ..., "courseCount": 2}.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if appErr.SuggestedAction != "" {
		body["suggestedAction"] = appErr.SuggestedAction
	}
	for k, v := range appErr.Meta {
		body[k] = v
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
