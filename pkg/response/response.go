// Package response writes the JSON envelope shared by all API endpoints.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response. Code is 0 on success and
// the HTTP status otherwise.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Message: "success", Data: data})
}

// List sends items with their count.
func List[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	Success(c, gin.H{"data": items, "count": len(items)})
}

// Error sends an error response
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Code: status, Message: message})
}

// Abort sends an error response and stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Code: status, Message: message})
}

func BadRequest(c *gin.Context, message string) { Error(c, http.StatusBadRequest, message) }

func NotFound(c *gin.Context, message string) { Error(c, http.StatusNotFound, message) }

func TooLarge(c *gin.Context) { Error(c, http.StatusRequestEntityTooLarge, "Request body too large") }

func InternalError(c *gin.Context, message string) { Error(c, http.StatusInternalServerError, message) }
