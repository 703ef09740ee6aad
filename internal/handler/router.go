package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mblog/internal/middleware"
)

type RouterDeps struct {
	Home     *HomeHandler
	Auth     *AuthHandler
	Posts    *PostHandler
	Identity middleware.Identity
	// AuthRateWindow throttles login and registration submissions per
	// client. Zero disables throttling.
	AuthRateWindow time.Duration
}

func RegisterRoutes(r *gin.RouterGroup, deps RouterDeps) {
	r.Use(middleware.Session(deps.Identity))

	r.GET("/", deps.Home.Home)
	r.GET("/healthz", deps.Home.Healthz)

	throttle := middleware.RateLimit(deps.AuthRateWindow, deps.Home.TooMany)
	r.GET("/login", deps.Auth.LoginPage)
	r.POST("/login", throttle, deps.Auth.Login)
	r.GET("/register", deps.Auth.RegisterPage)
	r.POST("/register", throttle, deps.Auth.Register)
	r.GET("/logout", deps.Auth.Logout)
	r.POST("/logout", deps.Auth.Logout)

	r.GET("/posts", deps.Posts.List)
	r.GET("/posts/:id", deps.Posts.Get)

	authGroup := r.Group("")
	authGroup.Use(middleware.RequireAuth())
	authGroup.GET("/dashboard", deps.Auth.Dashboard)
	authGroup.GET("/posts/new", deps.Posts.NewPage)
	authGroup.POST("/posts", deps.Posts.Create)

	api := r.Group("/api")
	api.GET("/posts", deps.Posts.APIList)
	api.GET("/posts/:id", deps.Posts.APIGet)
}
