package payments

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/models"
	"github.com/eventide/backend/pkg/response"
)

// CreateOrderRequest is the body for POST /payment/create-order.
type CreateOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Handler serves payment endpoints.
type Handler struct {
	gateway Gateway
	logger  *zap.Logger
}

func NewHandler(gateway Gateway, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gateway: gateway, logger: logger}
}

// CreateOrder handles POST /payment/create-order.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		response.BadRequest(c, "amount must be positive")
		return
	}
	order, err := h.gateway.CreateOrder(c.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		h.logger.Warn("payment order failed", zap.Error(err), zap.Float64("amount", req.Amount))
		response.ServiceError(c, h.logger, err, "Payment initiation failed")
		return
	}
	response.OK(c, gin.H{"order": order})
}

// Verify handles POST /payment/verify.
func (h *Handler) Verify(c *gin.Context) {
	var req models.PaymentConfirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		response.BadRequest(c, "orderId, paymentId and signature are required")
		return
	}
	response.OK(c, gin.H{"verified": h.gateway.Verify(req)})
}
