package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created answers 201 with data.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

type statusError interface {
	HTTPStatus() int
	PublicMessage() string
}

// Fail writes err as an error envelope. Errors that know their HTTP status are
// answered with it; anything else is logged and reported as a 500.
func Fail(ctx *gin.Context, err error) {
	var se statusError
	if errors.As(err, &se) {
		status := se.HTTPStatus()
		if status >= http.StatusInternalServerError {
			Sugar.Errorf("%s %s: %v", ctx.Request.Method, ctx.FullPath(), err)
		}
		Error(ctx, status, status, se.PublicMessage())
		return
	}
	Sugar.Errorf("%s %s: %v", ctx.Request.Method, ctx.FullPath(), err)
	Error(ctx, http.StatusInternalServerError, http.StatusInternalServerError, "internal server error")
}
