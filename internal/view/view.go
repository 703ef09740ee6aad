// Package view renders the HTML pages of the site from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mblog/internal/model"
)

const (
	PageHome      = "home"
	PageLogin     = "login"
	PageRegister  = "register"
	PageDashboard = "dashboard"
	PagePosts     = "posts"
	PagePost      = "post"
	PageNewPost   = "new_post"
	PageError     = "error"
)

var pages = []string{
	PageHome, PageLogin, PageRegister, PageDashboard,
	PagePosts, PagePost, PageNewPost, PageError,
}

//go:embed templates/*.html
var templateFS embed.FS

// Form echoes submitted values back into a re-rendered form. Passwords are
// never echoed.
type Form struct {
	Email   string
	Title   string
	Content string
}

type Data struct {
	Title   string
	User    string
	Error   string
	Form    Form
	Posts   []model.Post
	Post    *model.Post
	Body    template.HTML
	Status  int
	Message string
}

type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	base, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

// Render executes page name into a buffer first so a template failure never
// leaves a half-written response.
func (r *Renderer) Render(c *gin.Context, status int, name string, data Data) {
	page, ok := r.pages[name]
	if !ok {
		logutil.GetLogger(c.Request.Context()).Error("unknown page", zap.String("page", name))
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	if data.Status == 0 {
		data.Status = status
	}
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		logutil.GetLogger(c.Request.Context()).Error("render page failed", zap.String("page", name), zap.Error(err))
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
