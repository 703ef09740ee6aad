package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mblog/internal/middleware"
	"github.com/xxxsen/mblog/internal/pkg/validate"
	"github.com/xxxsen/mblog/internal/service"
	"github.com/xxxsen/mblog/internal/session"
	"github.com/xxxsen/mblog/internal/view"
)

type AuthHandler struct {
	auth     *service.AuthService
	sessions *session.Manager
	pages    *view.Renderer
}

func NewAuthHandler(auth *service.AuthService, sessions *session.Manager, pages *view.Renderer) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, pages: pages}
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	h.pages.Render(c, http.StatusOK, view.PageLogin, view.Data{Title: "Login"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	creds, err := validate.Login(email, c.PostForm("password"))
	if err == nil {
		_, err = h.auth.Verify(c.Request.Context(), creds.Email, creds.Password)
	}
	if err != nil {
		h.rerender(c, view.PageLogin, "Login", email, err)
		return
	}
	if err := h.sessions.Establish(c, creds.Email); err != nil {
		handleError(c, h.pages, err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *AuthHandler) RegisterPage(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	h.pages.Render(c, http.StatusOK, view.PageRegister, view.Data{Title: "Register"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	email := c.PostForm("email")
	creds, err := validate.Registration(email, c.PostForm("password"), c.PostForm("confirmPassword"))
	if err == nil {
		_, err = h.auth.Register(c.Request.Context(), creds.Email, creds.Password)
	}
	if err != nil {
		h.rerender(c, view.PageRegister, "Register", email, err)
		return
	}
	if err := h.sessions.Establish(c, creds.Email); err != nil {
		handleError(c, h.pages, err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout always lands on the home page; a failure to tear the session down
// is only logged.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Terminate(c); err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("logout failed",
			zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
			zap.Error(err),
		)
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Dashboard(c *gin.Context) {
	h.pages.Render(c, http.StatusOK, view.PageDashboard, view.Data{Title: "Dashboard", User: getUserEmail(c)})
}

func (h *AuthHandler) rerender(c *gin.Context, page, title, email string, err error) {
	msg, status, ok := formError(err)
	if !ok {
		handleError(c, h.pages, err)
		return
	}
	h.pages.Render(c, status, page, view.Data{
		Title: title,
		User:  getUserEmail(c),
		Error: msg,
		Form:  view.Form{Email: email},
	})
}
