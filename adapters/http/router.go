package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khoahotran/profile-editor/pkg/logger"
	"github.com/khoahotran/profile-editor/pkg/session"
)

type RouterConfig struct {
	Tokens  *session.TokenService
	Cookie  SessionCookie
	Editor  *EditorHandler
	Viewer  *ProfileViewHandler
	Logger  logger.Logger
	Metrics bool
}

// NewRouter builds the gin engine with every route of the editor.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Metrics {
		router.Use(MetricsMiddleware())
	}
	router.Use(ErrorMiddleware(cfg.Logger))
	LoadTemplates(router)

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
	if cfg.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/", cfg.Viewer.Show)

	edit := router.Group("/edit")
	edit.Use(SessionMiddleware(cfg.Tokens, cfg.Cookie, cfg.Logger))
	{
		edit.GET("", cfg.Editor.Show)
		edit.POST("", cfg.Editor.Submit)
		edit.POST("/projects", cfg.Editor.AddProject)
		edit.POST("/projects/:id/remove", cfg.Editor.RemoveProject)
		edit.POST("/fields/:field/blur", cfg.Editor.BlurField)
		edit.POST("/fields/:field/input", cfg.Editor.InputField)
		edit.POST("/reset", cfg.Editor.Reset)
		edit.GET("/export", cfg.Editor.Export)
		edit.POST("/photo", cfg.Editor.UploadPhoto)
	}

	return router
}
