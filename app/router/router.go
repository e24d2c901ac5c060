package router

import (
	"github.com/gin-gonic/gin"

	"pbsacct/app/handler"
	"pbsacct/app/middleware"
)

// Router Router
type Router struct {
	runHandler *handler.RunHandler
	apiKey     string
}

// NewRouter creates a new Router. A non-empty apiKey protects the trigger endpoints.
func NewRouter(runHandler *handler.RunHandler, apiKey string) *Router {
	return &Router{runHandler: runHandler, apiKey: apiKey}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	engine.GET("/health", r.runHandler.Health)

	v1 := engine.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		runs.GET("/last", r.runHandler.Last)
		runs.POST("/ingest", middleware.Auth(r.apiKey), r.runHandler.Ingest)
		runs.POST("/aggregate", middleware.Auth(r.apiKey), r.runHandler.Aggregate)
	}
}
