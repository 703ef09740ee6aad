package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mblog/internal/model"
	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
	"github.com/xxxsen/mblog/internal/pkg/markdown"
	"github.com/xxxsen/mblog/internal/pkg/response"
	"github.com/xxxsen/mblog/internal/service"
	"github.com/xxxsen/mblog/internal/view"
)

type PostHandler struct {
	posts    *service.PostService
	markdown *markdown.Renderer
	pages    *view.Renderer
}

func NewPostHandler(posts *service.PostService, md *markdown.Renderer, pages *view.Renderer) *PostHandler {
	return &PostHandler{posts: posts, markdown: md, pages: pages}
}

func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.posts.ListAll(c.Request.Context())
	if err != nil {
		handleError(c, h.pages, err)
		return
	}
	h.pages.Render(c, http.StatusOK, view.PagePosts, view.Data{Title: "Posts", User: getUserEmail(c), Posts: posts})
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.posts.GetByID(c.Request.Context(), c.Param("id"))
	if appErr.IsNotFound(err) {
		h.pages.Render(c, http.StatusNotFound, view.PageError, view.Data{
			Title:   "Not found",
			User:    getUserEmail(c),
			Message: msgPostNotFound,
		})
		return
	}
	if err != nil {
		handleError(c, h.pages, err)
		return
	}
	body, err := h.markdown.Render(post.Content)
	if err != nil {
		handleError(c, h.pages, err)
		return
	}
	h.pages.Render(c, http.StatusOK, view.PagePost, view.Data{
		Title: post.Title,
		User:  getUserEmail(c),
		Post:  post,
		Body:  body,
	})
}

func (h *PostHandler) NewPage(c *gin.Context) {
	h.pages.Render(c, http.StatusOK, view.PageNewPost, view.Data{Title: "New post", User: getUserEmail(c)})
}

func (h *PostHandler) Create(c *gin.Context) {
	title := c.PostForm("title")
	content := c.PostForm("content")
	_, err := h.posts.Create(c.Request.Context(), title, content, getUserEmail(c))
	if err != nil {
		msg, status, ok := formError(err)
		if !ok {
			handleError(c, h.pages, err)
			return
		}
		h.pages.Render(c, status, view.PageNewPost, view.Data{
			Title: "New post",
			User:  getUserEmail(c),
			Error: msg,
			Form:  view.Form{Title: title, Content: content},
		})
		return
	}
	c.Redirect(http.StatusFound, "/posts")
}

func (h *PostHandler) APIList(c *gin.Context) {
	posts, err := h.posts.ListAll(c.Request.Context())
	if err != nil {
		handleAPIError(c, err)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	response.Success(c, gin.H{"posts": posts})
}

func (h *PostHandler) APIGet(c *gin.Context) {
	post, err := h.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAPIError(c, err)
		return
	}
	response.Success(c, post)
}
