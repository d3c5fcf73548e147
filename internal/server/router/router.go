package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/server/handlers"
	"github.com/mamadbah2/xchicks/internal/server/middleware"
)

// Dependencies groups what the router mounts. Webhook and Metrics are optional.
type Dependencies struct {
	API     *handlers.APIHandler
	Webhook *handlers.WebhookHandler
	Metrics http.Handler
}

// New wires the Gin engine with required routes and middlewares.
func New(deps Dependencies, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	if deps.Webhook != nil {
		r.GET("/webhook", deps.Webhook.Verify)
		r.POST("/webhook", deps.Webhook.Receive)
	}

	api := r.Group("/api", middleware.Actor())
	h := deps.API
	require := middleware.Require

	farmers := api.Group("/farmers")
	farmers.POST("", require(models.CapRegisterFarmer), h.RegisterFarmer)
	farmers.GET("", require(models.CapViewRequests), h.ListFarmers)
	farmers.GET("/:id", require(models.CapViewRequests), h.GetFarmer)

	stock := api.Group("/stock")
	stock.POST("/chicks", require(models.CapManageStock), h.CreateChickBatch)
	stock.GET("/chicks", require(models.CapViewStock), h.ListChickBatches)
	stock.POST("/chicks/:name/restock", require(models.CapManageStock), h.RestockChickBatch)
	stock.POST("/feed", require(models.CapManageStock), h.CreateFeedBatch)
	stock.GET("/feed", require(models.CapViewStock), h.ListFeedBatches)
	stock.POST("/feed/:name/restock", require(models.CapManageStock), h.RestockFeedBatch)

	chicks := api.Group("/chick-requests")
	chicks.POST("", require(models.CapSubmitRequest), h.SubmitChickRequest)
	chicks.GET("", require(models.CapViewRequests), h.ListChickRequests)
	chicks.POST("/:id/approve", require(models.CapDecideRequest), h.ApproveChickRequest)
	chicks.POST("/:id/reject", require(models.CapDecideRequest), h.RejectChickRequest)
	chicks.POST("/:id/deliver", require(models.CapRecordDelivery), h.DeliverChickRequest)

	feed := api.Group("/feed-allocations")
	feed.POST("", require(models.CapSubmitRequest), h.SubmitFeedAllocation)
	feed.GET("", require(models.CapViewRequests), h.ListFeedAllocations)
	feed.POST("/:id/approve", require(models.CapDecideRequest), h.ApproveFeedAllocation)
	feed.POST("/:id/reject", require(models.CapDecideRequest), h.RejectFeedAllocation)
	feed.POST("/:id/deliver", require(models.CapRecordDelivery), h.DeliverFeedAllocation)
	feed.POST("/:id/pay", require(models.CapRecordPayment), h.PayFeedAllocation)

	reports := api.Group("/reports", require(models.CapViewReports))
	reports.GET("/sales", h.SalesReport)
	reports.GET("/stock", h.StockReport)
	reports.GET("/daily", h.DailyReport)

	if deps.Webhook != nil {
		api.POST("/messages", require(models.CapDecideRequest), deps.Webhook.SendMessage)
	}

	logger.Info("router initialized", zap.Bool("webhook", deps.Webhook != nil), zap.Bool("metrics", deps.Metrics != nil))
	return r
}
