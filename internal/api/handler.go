package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"verification-service/internal/models"
	"verification-service/internal/redisclient"
	"verification-service/internal/service"
	"verification-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	ledger      *service.LedgerService
	verifier    *service.VerificationService
	fulfillment *service.FulfillmentService
	redis       *redisclient.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(
	ledger *service.LedgerService,
	verifier *service.VerificationService,
	fulfillment *service.FulfillmentService,
	redis *redisclient.Client,
) *Handler {
	return &Handler{
		ledger:      ledger,
		verifier:    verifier,
		fulfillment: fulfillment,
		redis:       redis,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/transactions", h.createTransaction)
		v1.GET("/transactions/:id", h.getTransaction)
		v1.POST("/transactions/:id/instrument", h.submitInstrument)
		v1.POST("/transactions/:id/verify", h.verifyTransaction)
		v1.POST("/transactions/:id/reject", h.rejectTransaction)

		v1.GET("/transactions/:id/orders", h.listTransactionOrders)

		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.GET("/orders/:id", h.getOrder)

		v1.GET("/customers/:id/orders", h.listCustomerOrders)

		v1.GET("/tenants/:id/transactions", h.listTenantTransactions)
		v1.GET("/tenants/:id/sales", h.listTenantSales)
		v1.GET("/tenants/:id/notifications/unviewed", h.unviewedCount)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createTransaction handles checkout handing over a cart
func (h *Handler) createTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, items, err := h.ledger.CreateTransaction(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction": txn,
		"items":       items,
	})
}

// getTransaction handles get transaction by ID
func (h *Handler) getTransaction(c *gin.Context) {
	actorID := c.Query("actor_id")

	txn, items, err := h.ledger.GetTransaction(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": txn,
		"items":       items,
	})
}

type submitInstrumentRequest struct {
	InstrumentID string `json:"instrument_id" binding:"required"`
}

// submitInstrument handles the customer reporting their payment
func (h *Handler) submitInstrument(c *gin.Context) {
	var req submitInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := h.ledger.SubmitPaymentInstrument(c.Request.Context(), c.Param("id"), req.InstrumentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": txn.Status})
}

type actorRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
}

// verifyTransaction handles a tenant operator approving a payment
func (h *Handler) verifyTransaction(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	ordersCreated, err := h.verifier.VerifyTransaction(c.Request.Context(), c.Param("id"), req.ActorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders_created": ordersCreated})
}

type rejectRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

// rejectTransaction handles a tenant operator rejecting a payment
func (h *Handler) rejectTransaction(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	txn, err := h.verifier.RejectTransaction(c.Request.Context(), c.Param("id"), req.ActorID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": txn.Status})
}

type updateOrderStatusRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// updateOrderStatus handles fulfillment transitions
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.fulfillment.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.ActorID,
		models.FulfillmentStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": order.Status})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	actorID := c.Query("actor_id")

	order, sale, err := h.fulfillment.GetOrder(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"sale":  sale,
	})
}

// listTransactionOrders returns the orders fanned out from a transaction
func (h *Handler) listTransactionOrders(c *gin.Context) {
	orders, err := h.fulfillment.ListTransactionOrders(c.Request.Context(), c.Param("id"), c.Query("actor_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// listCustomerOrders returns a customer's orders across tenants
func (h *Handler) listCustomerOrders(c *gin.Context) {
	orders, err := h.fulfillment.ListCustomerOrders(c.Request.Context(), c.Param("id"), c.Query("actor_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// listTenantTransactions returns the tenant's verification queue
func (h *Handler) listTenantTransactions(c *gin.Context) {
	tenantID := c.Param("id")
	actorID := c.Query("actor_id")

	txns, err := h.ledger.ListTenantTransactions(c.Request.Context(), tenantID, actorID)
	if err != nil {
		writeError(c, err)
		return
	}

	// Viewing the queue clears the unviewed counter; best-effort.
	_ = h.redis.ResetUnviewed(c.Request.Context(), tenantID)

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// listTenantSales returns the tenant's sales ledger
func (h *Handler) listTenantSales(c *gin.Context) {
	sales, err := h.fulfillment.ListTenantSales(c.Request.Context(), c.Param("id"), c.Query("actor_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

// unviewedCount returns the tenant's unviewed-notification counter
func (h *Handler) unviewedCount(c *gin.Context) {
	n, err := h.redis.GetUnviewed(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read counter"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unviewed": n})
}

// writeError maps the service error taxonomy onto HTTP. AlreadyProcessed is
// reported under a distinct code so UIs can refresh instead of showing an
// error banner.
func writeError(c *gin.Context, err error) {
	var (
		validationErr  *service.ValidationError
		stateErr       *service.InvalidStateTransitionError
		fulfillmentErr *service.InvalidFulfillmentTransitionError
	)

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrAlreadyProcessed):
		c.JSON(http.StatusConflict, gin.H{
			"error": "already processed",
			"code":  "already_processed",
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": validationErr.Msg,
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          "invalid state transition",
			"code":           "invalid_state_transition",
			"current_status": stateErr.Current,
		})
	case errors.As(err, &fulfillmentErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          "invalid fulfillment transition",
			"code":           "invalid_fulfillment_transition",
			"current_status": fulfillmentErr.Current,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal error",
			"details": err.Error(),
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
