package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of API calls that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// Success writes data as-is with the given status code.
func Success(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, data)
}

// Message writes {"message": message}.
func Message(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, MessageResponse{Message: message})
}

// Error writes {"error": message}.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, ErrorResponse{Error: message})
}
