package transport

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nknandakumar/tablet-scheduler/internal/metrics"
	"github.com/nknandakumar/tablet-scheduler/internal/transport/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templates embed.FS

func InitRoutes(formHandler *FormHandler, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(metrics.Middleware())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	page := router.Group("/", formHandler.Session())
	{
		page.GET("/", formHandler.Index)
		page.POST("/file", formHandler.SelectFile)
		page.POST("/submit", formHandler.Submit)
		page.POST("/reset", formHandler.Reset)
	}

	api := router.Group("/api/v1/form", formHandler.Session(), middleware.Timeout(requestTimeout))
	{
		api.GET("", formHandler.GetForm)
		api.POST("/file", formHandler.SelectFileAPI)
		api.POST("/submit", formHandler.SubmitAPI)
		api.POST("/reset", formHandler.ResetAPI)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "tablet-scheduler",
		})
	})
	return router
}
