package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mblog/internal/view"
)

type HomeHandler struct {
	pages *view.Renderer
}

func NewHomeHandler(pages *view.Renderer) *HomeHandler {
	return &HomeHandler{pages: pages}
}

func (h *HomeHandler) Home(c *gin.Context) {
	h.pages.Render(c, http.StatusOK, view.PageHome, view.Data{User: getUserEmail(c)})
}

func (h *HomeHandler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// TooMany is the rejection page of the login and registration throttle.
func (h *HomeHandler) TooMany(c *gin.Context) {
	h.pages.Render(c, http.StatusTooManyRequests, view.PageError, view.Data{
		Title:   "Slow down",
		User:    getUserEmail(c),
		Message: msgTooMany,
	})
}
