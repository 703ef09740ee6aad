package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mblog/internal/middleware"
	"github.com/xxxsen/mblog/internal/pkg/errcode"
	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
	"github.com/xxxsen/mblog/internal/pkg/response"
	"github.com/xxxsen/mblog/internal/pkg/validate"
	"github.com/xxxsen/mblog/internal/view"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "Email already registered"
	msgNotFound           = "Page not found"
	msgPostNotFound       = "Post not found"
	msgInternal           = "Something went wrong. Please try again later."
	msgTooMany            = "Too many attempts. Please wait a moment and try again."
)

func getUserEmail(c *gin.Context) string {
	email, _ := middleware.CurrentUser(c)
	return email
}

func logError(c *gin.Context, err error) {
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_email", getUserEmail(c)),
		zap.Error(err),
	)
}

// formError maps errors a user can fix by resubmitting a form to the message
// and status of the re-rendered page.
func formError(err error) (string, int, bool) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		return verr.Message(), http.StatusBadRequest, true
	case errors.Is(err, appErr.ErrConflict):
		return msgEmailTaken, http.StatusConflict, true
	case errors.Is(err, appErr.ErrUnauthorized):
		return msgInvalidCredentials, http.StatusUnauthorized, true
	default:
		return "", 0, false
	}
}

// handleError renders the error page for anything that is not a form error.
func handleError(c *gin.Context, pages *view.Renderer, err error) {
	if appErr.IsNotFound(err) {
		pages.Render(c, http.StatusNotFound, view.PageError, view.Data{
			Title:   "Not found",
			User:    getUserEmail(c),
			Message: msgNotFound,
		})
		return
	}
	logError(c, err)
	pages.Render(c, http.StatusInternalServerError, view.PageError, view.Data{
		Title:   "Error",
		User:    getUserEmail(c),
		Message: msgInternal,
	})
}

func handleAPIError(c *gin.Context, err error) {
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	default:
		logError(c, err)
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
