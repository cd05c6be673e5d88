package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/server/handlers"
	"github.com/mamadbah2/farmer/internal/server/middleware"
)

// Handlers groups the route handlers.
type Handlers struct {
	Batches       *handlers.BatchHandler
	Logs          *handlers.LogHandler
	Vaccinations  *handlers.VaccinationHandler
	Finances      *handlers.FinanceHandler
	Notifications *handlers.NotificationHandler
	// Webhook is optional; /webhook is mounted only when it is set.
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
	}

	api := r.Group("/api", middleware.Auth(jwtSecret, logger))

	batches := api.Group("/batches")
	batches.GET("", h.Batches.List)
	batches.POST("", h.Batches.Create)
	batches.GET("/:id", h.Batches.Get)
	batches.PATCH("/:id", h.Batches.Edit)
	batches.DELETE("/:id", h.Batches.Delete)
	batches.POST("/:id/vaccines", h.Batches.AddVaccines)
	batches.POST("/:id/export", h.Batches.Export)

	mortality := api.Group("/mortality")
	mortality.GET("", h.Logs.ListMortality)
	mortality.POST("", h.Logs.RecordMortality)
	mortality.DELETE("/:id", h.Logs.DeleteMortality)

	incubator := api.Group("/incubator")
	incubator.GET("", h.Logs.ListIncubator)
	incubator.POST("", h.Logs.RecordHatch)
	incubator.DELETE("/:id", h.Logs.DeleteIncubator)

	eggs := api.Group("/eggs")
	eggs.GET("", h.Logs.ListEggs)
	eggs.POST("", h.Logs.RecordEggs)
	eggs.GET("/stats", h.Logs.EggStats)
	eggs.DELETE("/:id", h.Logs.DeleteEggs)

	feed := api.Group("/feed")
	feed.GET("", h.Logs.ListFeed)
	feed.POST("", h.Logs.RecordFeed)
	feed.GET("/stats", h.Logs.FeedStats)
	feed.DELETE("/:id", h.Logs.DeleteFeed)

	vaccinations := api.Group("/vaccinations")
	vaccinations.GET("", h.Vaccinations.List)
	vaccinations.POST("", h.Vaccinations.Create)
	vaccinations.PATCH("/:id", h.Vaccinations.Complete)
	vaccinations.DELETE("/:id", h.Vaccinations.Delete)

	templates := api.Group("/vaccine-templates")
	templates.GET("", h.Vaccinations.ListTemplates)
	templates.POST("", h.Vaccinations.CreateTemplate)
	templates.PATCH("/:id", h.Vaccinations.UpdateTemplate)
	templates.DELETE("/:id", h.Vaccinations.DeleteTemplate)

	transactions := api.Group("/transactions")
	transactions.GET("", h.Finances.ListTransactions)
	transactions.POST("", h.Finances.CreateTransaction)
	transactions.GET("/categories", h.Finances.Categories)
	transactions.DELETE("/:id", h.Finances.DeleteTransaction)

	api.GET("/finances/analytics", h.Finances.Analytics)

	api.GET("/notifications", h.Notifications.Inbox)
	api.PATCH("/notifications", h.Notifications.MarkRead)
	api.POST("/reminders/check", h.Notifications.CheckReminders)

	logger.Info("router initialized")
	return r
}
