package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"projecttracker/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	healthHandler *handler.HealthHandler,
	projectHandler *handler.ProjectHandler,
	taskHandler *handler.TaskHandler,
	progressHandler *handler.ProgressHandler,
	syncHandler *handler.SyncHandler,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware())

	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projects := r.Group("/projects")
	{
		projects.GET("", projectHandler.List)
		projects.POST("", projectHandler.Create)
		projects.GET("/:id", projectHandler.Get)
		projects.PUT("/:id", projectHandler.Update)
		projects.PATCH("/:id/:isActive", projectHandler.ToggleStatus)
		projects.GET("/:id/tasks", taskHandler.ListByProject)
		projects.POST("/:id/schedule", projectHandler.GenerateSchedule)
		projects.GET("/:id/plan-progress", projectHandler.PlanProgress)
		projects.GET("/:id/sync", syncHandler.SyncProject)
	}

	// Lookups keyed by the external project id.
	cu := r.Group("/cuprojects")
	{
		cu.GET("/:cu_project_id", projectHandler.GetByCuProjectID)
		cu.GET("/:cu_project_id/progress", progressHandler.ListByCuProject)
	}

	tasks := r.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.POST("", taskHandler.Create)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.PATCH("/:id/:isActive", taskHandler.ToggleStatus)
	}

	progress := r.Group("/progress")
	{
		progress.POST("", progressHandler.Create)
		progress.PUT("/:id", progressHandler.Update)
		progress.DELETE("/:id", progressHandler.Delete)
		progress.POST("/recompute", syncHandler.RecomputeMetrics)
	}

	sync := r.Group("/sync")
	{
		sync.POST("/run", syncHandler.Run)
		sync.POST("/enqueue", syncHandler.Enqueue)
	}

	// External automation webhook (kept at its original path).
	r.POST("/api/task/insert", taskHandler.RegisterExternal)

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(":" + port)
}
