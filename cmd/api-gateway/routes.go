package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/handler"
	"github.com/noah-isme/asset-desk-api/internal/middleware"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/service"
	"github.com/noah-isme/asset-desk-api/pkg/config"
	"github.com/noah-isme/asset-desk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/asset-desk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/asset-desk-api/pkg/middleware/requestid"
)

type handlers struct {
	users       *handler.UserHandler
	references  *handler.ReferenceHandler
	assets      *handler.AssetHandler
	warranty    *handler.WarrantyHandler
	maintenance *handler.MaintenanceHandler
	requests    *handler.RequestHandler
	issues      *handler.IssueHandler
	alerts      *handler.AlertHandler
	dashboard   *handler.DashboardHandler
	exports     *handler.ExportHandler
	metrics     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, auth middleware.Authenticator, audit middleware.AuditWriter, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(auth), middleware.WithResponseMeta())

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	api.GET("/me", h.users.Me)
	api.PATCH("/me", h.users.UpdateMe)

	users := api.Group("/users")
	users.GET("", adminOnly, h.users.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.users.Get)
	users.PATCH("/:id", adminOnly, h.users.Update)
	users.DELETE("/:id", adminOnly, h.users.Delete)

	categories := api.Group("/categories")
	categories.GET("", h.references.ListCategories)
	categories.GET("/:id", h.references.GetCategory)
	categories.POST("", adminOnly, h.references.CreateCategory)
	categories.PUT("/:id", adminOnly, h.references.RenameCategory)
	categories.DELETE("/:id", adminOnly, h.references.DeleteCategory)

	departments := api.Group("/departments")
	departments.GET("", h.references.ListDepartments)
	departments.GET("/:id", h.references.GetDepartment)
	departments.POST("", adminOnly, h.references.CreateDepartment)
	departments.PUT("/:id", adminOnly, h.references.RenameDepartment)
	departments.DELETE("/:id", adminOnly, h.references.DeleteDepartment)

	// Employees may list, view and create assets; visibility is enforced by the services.
	assets := api.Group("/assets")
	assets.GET("", h.assets.List)
	assets.POST("", h.assets.Create)
	assets.GET("/:id", h.assets.Get)
	assets.PATCH("/:id", adminOnly, h.assets.Update)
	assets.DELETE("/:id", adminOnly, h.assets.Delete)
	assets.GET("/:id/history", h.assets.History)
	assets.POST("/:id/assign", adminOnly, h.assets.Assign)
	assets.POST("/:id/transfer", adminOnly, h.assets.Transfer)
	assets.POST("/:id/return", adminOnly, h.assets.Return)
	assets.POST("/:id/repair", adminOnly, h.assets.SendToRepair)
	assets.POST("/:id/restore", adminOnly, h.assets.RestoreFromRepair)
	assets.POST("/:id/retire", adminOnly, h.assets.Retire)
	assets.POST("/:id/warranty/register", adminOnly, h.warranty.Register)
	assets.GET("/:id/warranty/status", adminOnly, h.warranty.Status)

	maintenance := api.Group("/maintenance", adminOnly)
	maintenance.GET("", h.maintenance.List)
	maintenance.POST("", h.maintenance.Create)
	maintenance.GET("/:id", h.maintenance.Get)
	maintenance.PATCH("/:id", h.maintenance.Update)
	maintenance.DELETE("/:id", h.maintenance.Delete)
	maintenance.POST("/:id/start", h.maintenance.Start)
	maintenance.POST("/:id/complete", h.maintenance.Complete)

	requests := api.Group("/requests")
	requests.GET("", h.requests.List)
	requests.POST("", h.requests.Submit)
	requests.GET("/:id", h.requests.Get)
	requests.POST("/:id/decide", adminOnly, h.requests.Decide)
	requests.POST("/:id/fulfill", adminOnly, h.requests.Fulfill)
	requests.POST("/:id/cancel", h.requests.Cancel)

	issues := api.Group("/issues")
	issues.GET("", h.issues.List)
	issues.POST("", h.issues.Report)
	issues.GET("/:id", h.issues.Get)
	issues.POST("/:id/start", adminOnly, h.issues.StartWork)
	issues.POST("/:id/resolve", adminOnly, h.issues.Resolve)
	issues.POST("/:id/close", adminOnly, h.issues.Close)
	issues.POST("/:id/cancel", adminOnly, h.issues.Cancel)

	alerts := api.Group("/alerts")
	alerts.GET("/warranty", h.alerts.Warranty)
	alerts.GET("/insurance", h.alerts.Insurance)
	alerts.GET("/maintenance", adminOnly, h.alerts.Maintenance)

	api.GET("/dashboard", h.dashboard.Summary)
	api.GET("/exports/assets", adminOnly, middleware.Audit(audit, models.AuditActionAssetExport, "asset"), h.exports.Assets)

	return r
}
