package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/repository"
	"github.com/mamadbah2/xchicks/internal/server/middleware"
	"github.com/mamadbah2/xchicks/internal/service/admission"
	"github.com/mamadbah2/xchicks/internal/service/allocation"
	"github.com/mamadbah2/xchicks/internal/service/registry"
	"github.com/mamadbah2/xchicks/internal/service/reporting"
)

// APIHandler serves the agent and manager JSON API.
type APIHandler struct {
	registry   *registry.Service
	admission  *admission.Service
	allocation *allocation.Service
	reporting  *reporting.Service
	location   *time.Location
	logger     *zap.Logger
}

// NewAPIHandler constructs the JSON API handler. Report dates are read in loc.
func NewAPIHandler(reg *registry.Service, adm *admission.Service, alloc *allocation.Service, rep *reporting.Service, loc *time.Location, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &APIHandler{
		registry:   reg,
		admission:  adm,
		allocation: alloc,
		reporting:  rep,
		location:   loc,
		logger:     logger,
	}
}

func statusesFrom(c *gin.Context) []models.RequestStatus {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	var out []models.RequestStatus
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, models.RequestStatus(strings.ToLower(s)))
		}
	}
	return out
}

// RegisterFarmer handles POST /api/farmers.
func (h *APIHandler) RegisterFarmer(c *gin.Context) {
	var in registry.FarmerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	farmer, err := h.registry.RegisterFarmer(c.Request.Context(), middleware.ActorFrom(c), in)
	respond(c, http.StatusCreated, "farmer registered", farmer, err)
}

// ListFarmers handles GET /api/farmers.
func (h *APIHandler) ListFarmers(c *gin.Context) {
	farmers, err := h.registry.ListFarmers(c.Request.Context(), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "farmers", farmers, err)
}

// GetFarmer handles GET /api/farmers/:id.
func (h *APIHandler) GetFarmer(c *gin.Context) {
	farmer, err := h.registry.GetFarmer(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	respond(c, http.StatusOK, "farmer", farmer, err)
}

// CreateChickBatch handles POST /api/stock/chicks.
func (h *APIHandler) CreateChickBatch(c *gin.Context) {
	var in registry.ChickBatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	batch, err := h.registry.CreateChickBatch(c.Request.Context(), middleware.ActorFrom(c), in)
	respond(c, http.StatusCreated, "chick batch created", batch, err)
}

// ListChickBatches handles GET /api/stock/chicks?chick_type=&chick_breed=&in_stock=.
func (h *APIHandler) ListChickBatches(c *gin.Context) {
	filter := repository.ChickBatchFilter{
		ChickType:  models.ChickType(c.Query("chick_type")),
		ChickBreed: models.ChickBreed(c.Query("chick_breed")),
		InStock:    c.Query("in_stock") == "true",
	}
	batches, err := h.registry.ListChickBatches(c.Request.Context(), middleware.ActorFrom(c), filter)
	respond(c, http.StatusOK, "chick batches", batches, err)
}

// RestockChickBatch handles POST /api/stock/chicks/:name/restock.
func (h *APIHandler) RestockChickBatch(c *gin.Context) {
	var in registry.RestockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	batch, err := h.registry.RestockChickBatch(c.Request.Context(), middleware.ActorFrom(c), c.Param("name"), in)
	respond(c, http.StatusOK, "chick batch restocked", batch, err)
}

// CreateFeedBatch handles POST /api/stock/feed.
func (h *APIHandler) CreateFeedBatch(c *gin.Context) {
	var in registry.FeedBatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	batch, err := h.registry.CreateFeedBatch(c.Request.Context(), middleware.ActorFrom(c), in)
	respond(c, http.StatusCreated, "feed batch created", batch, err)
}

// ListFeedBatches handles GET /api/stock/feed.
func (h *APIHandler) ListFeedBatches(c *gin.Context) {
	batches, err := h.registry.ListFeedBatches(c.Request.Context(), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "feed batches", batches, err)
}

// RestockFeedBatch handles POST /api/stock/feed/:name/restock.
func (h *APIHandler) RestockFeedBatch(c *gin.Context) {
	var in registry.RestockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	batch, err := h.registry.RestockFeedBatch(c.Request.Context(), middleware.ActorFrom(c), c.Param("name"), in)
	respond(c, http.StatusOK, "feed batch restocked", batch, err)
}

// SubmitChickRequest handles POST /api/chick-requests.
func (h *APIHandler) SubmitChickRequest(c *gin.Context) {
	var in admission.ChickRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	req, warnings, err := h.admission.SubmitChickRequest(c.Request.Context(), middleware.ActorFrom(c), in)
	respond(c, http.StatusCreated, "chick request submitted", req, err, warnings...)
}

// ListChickRequests handles GET /api/chick-requests?status=pending,approved.
func (h *APIHandler) ListChickRequests(c *gin.Context) {
	reqs, err := h.registry.ListChickRequests(c.Request.Context(), middleware.ActorFrom(c), statusesFrom(c)...)
	respond(c, http.StatusOK, "chick requests", reqs, err)
}

// ApproveChickRequest handles POST /api/chick-requests/:id/approve.
func (h *APIHandler) ApproveChickRequest(c *gin.Context) {
	approval, err := h.allocation.ApproveChickRequest(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "chick request approved", approval, err)
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// RejectChickRequest handles POST /api/chick-requests/:id/reject. The body is optional.
func (h *APIHandler) RejectChickRequest(c *gin.Context) {
	var body rejectBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	req, err := h.allocation.RejectChickRequest(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c), body.Reason)
	respond(c, http.StatusOK, "chick request rejected", req, err)
}

// DeliverChickRequest handles POST /api/chick-requests/:id/deliver.
func (h *APIHandler) DeliverChickRequest(c *gin.Context) {
	sale, err := h.allocation.MarkChickDelivered(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "chick request delivered", sale, err)
}

// SubmitFeedAllocation handles POST /api/feed-allocations.
func (h *APIHandler) SubmitFeedAllocation(c *gin.Context) {
	var in admission.FeedAllocationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	alloc, warnings, err := h.admission.SubmitFeedAllocation(c.Request.Context(), middleware.ActorFrom(c), in)
	respond(c, http.StatusCreated, "feed allocation submitted", alloc, err, warnings...)
}

// ListFeedAllocations handles GET /api/feed-allocations?chick_request_id=&status=.
func (h *APIHandler) ListFeedAllocations(c *gin.Context) {
	allocs, err := h.registry.ListFeedAllocations(c.Request.Context(), middleware.ActorFrom(c), c.Query("chick_request_id"), statusesFrom(c)...)
	respond(c, http.StatusOK, "feed allocations", allocs, err)
}

// ApproveFeedAllocation handles POST /api/feed-allocations/:id/approve.
func (h *APIHandler) ApproveFeedAllocation(c *gin.Context) {
	alloc, err := h.allocation.ApproveFeedRequest(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "feed allocation approved", alloc, err)
}

// RejectFeedAllocation handles POST /api/feed-allocations/:id/reject.
func (h *APIHandler) RejectFeedAllocation(c *gin.Context) {
	alloc, err := h.allocation.RejectFeedRequest(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "feed allocation rejected", alloc, err)
}

// DeliverFeedAllocation handles POST /api/feed-allocations/:id/deliver.
func (h *APIHandler) DeliverFeedAllocation(c *gin.Context) {
	alloc, err := h.allocation.MarkFeedDelivered(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "feed allocation delivered", alloc, err)
}

// PayFeedAllocation handles POST /api/feed-allocations/:id/pay.
func (h *APIHandler) PayFeedAllocation(c *gin.Context) {
	alloc, err := h.allocation.MarkFeedPaid(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c))
	respond(c, http.StatusOK, "feed allocation paid", alloc, err)
}

// SalesReport handles GET /api/reports/sales.
func (h *APIHandler) SalesReport(c *gin.Context) {
	summary, err := h.reporting.SalesSummary(c.Request.Context())
	respond(c, http.StatusOK, "sales summary", summary, err)
}

// StockReport handles GET /api/reports/stock.
func (h *APIHandler) StockReport(c *gin.Context) {
	summary, err := h.reporting.StockSummary(c.Request.Context())
	respond(c, http.StatusOK, "stock summary", summary, err)
}

// DailyReport handles GET /api/reports/daily?date=YYYY-MM-DD. The date defaults to today.
func (h *APIHandler) DailyReport(c *gin.Context) {
	day := time.Now().In(h.location)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			respond(c, 0, "", nil, models.Invalid("date", "date must be YYYY-MM-DD, got %q", raw))
			return
		}
		day = parsed
	}
	report, err := h.reporting.DailyReport(c.Request.Context(), day)
	respond(c, http.StatusOK, "daily report", report, err)
}
