package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/application/types"
	"github.com/Apurer/go-storefront-api/internal/domains/purchasing/ports"
	apierrors "github.com/Apurer/go-storefront-api/internal/shared/errors"
)

// IdempotencyKeyHeader may carry the purchase idempotency key instead of the body.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler exposes the purchase orchestrator over HTTP.
type Handler struct {
	service   ports.Service
	workflows ports.WorkflowOrchestrator
}

// NewHandler wires dependencies. Purchases go through workflows; everything else calls the service.
func NewHandler(service ports.Service, workflows ports.WorkflowOrchestrator) *Handler {
	return &Handler{service: service, workflows: workflows}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/purchases", h.Purchase)
	rg.GET("/orders/:orderId", h.GetOrder)
	rg.POST("/orders/:orderId/returns", h.ProcessReturn)
	rg.POST("/orders/:orderId/cancel", h.CancelOrder)
	rg.POST("/orders/:orderId/ship", h.ShipOrder)
	rg.POST("/orders/:orderId/deliver", h.DeliverOrder)
	rg.POST("/users/:userId/order-stats", h.ScheduleOrderStats)
}

type purchaseResponse struct {
	Success        bool            `json:"success"`
	OrderID        int64           `json:"orderId"`
	OrderNumber    string          `json:"orderNumber"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Currency       string          `json:"currency"`
	PaymentID      string          `json:"paymentId"`
	Status         string          `json:"status"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Replayed       bool            `json:"replayed,omitempty"`
}

type failureResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorKind string `json:"errorKind"`
}

type returnRequest struct {
	ItemID int64  `json:"itemId"`
	Reason string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type shipRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

// Post /v1/purchases
func (h *Handler) Purchase(c *gin.Context) {
	var req types.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	}
	receipt, err := h.workflows.Purchase(c.Request.Context(), req)
	if err != nil {
		respondFailure(c, err)
		return
	}
	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, purchaseResponse{
		Success:        true,
		OrderID:        receipt.OrderID,
		OrderNumber:    receipt.OrderNumber,
		TotalAmount:    receipt.TotalAmount,
		Currency:       receipt.Currency,
		PaymentID:      receipt.PaymentID,
		Status:         string(receipt.Status),
		IdempotencyKey: receipt.IdempotencyKey,
		Replayed:       receipt.Replayed,
	})
}

// Get /v1/orders/:orderId
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	view, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Post /v1/orders/:orderId/returns
func (h *Handler) ProcessReturn(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	if req.ItemID <= 0 {
		apierrors.Respond(c, apierrors.NewValidationProblem(map[string]string{"itemId": "must be greater than zero"}))
		return
	}
	receipt, err := h.service.ProcessReturn(c.Request.Context(), orderID, req.ItemID, req.Reason)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "return": receipt})
}

// Post /v1/orders/:orderId/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	var req cancelRequest
	if !bindOptional(c, &req) {
		return
	}
	view, err := h.service.CancelOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": view})
}

// Post /v1/orders/:orderId/ship
func (h *Handler) ShipOrder(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	var req shipRequest
	if !bindOptional(c, &req) {
		return
	}
	view, err := h.service.ShipOrder(c.Request.Context(), orderID, req.TrackingNumber)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": view})
}

// Post /v1/orders/:orderId/deliver
func (h *Handler) DeliverOrder(c *gin.Context) {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}
	view, err := h.service.DeliverOrder(c.Request.Context(), orderID)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": view})
}

// Post /v1/users/:userId/order-stats
func (h *Handler) ScheduleOrderStats(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	ticket, err := h.service.ScheduleOrderStats(c.Request.Context(), userID)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "taskId": ticket.TaskID, "userId": ticket.UserID})
}

// StatusForKind maps an orchestrator error kind to its HTTP status.
func StatusForKind(kind application.Kind) int {
	switch kind {
	case application.KindNotFound:
		return http.StatusNotFound
	case application.KindInsufficientStock, application.KindAlreadyPaid, application.KindInvalidStateTransition:
		return http.StatusConflict
	case application.KindUnsupportedPaymentMethod:
		return http.StatusUnprocessableEntity
	case application.KindPaymentDeclined:
		return http.StatusPaymentRequired
	case application.KindQueueFull:
		return http.StatusServiceUnavailable
	case application.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondFailure(c *gin.Context, err error) {
	kind := application.KindOf(err)
	msg := err.Error()
	var appErr *application.Error
	if kind == application.KindInternal && !errors.As(err, &appErr) {
		msg = "internal error"
	}
	c.JSON(StatusForKind(kind), failureResponse{Success: false, Error: msg, ErrorKind: string(kind)})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		apierrors.Respond(c, apierrors.ErrBadRequest.WithDetail(name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

// bindOptional accepts an empty body.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		apierrors.Respond(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return false
	}
	return true
}
