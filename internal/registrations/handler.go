package registrations

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/auth"
	"github.com/eventide/backend/internal/models"
	"github.com/eventide/backend/internal/tickets"
	"github.com/eventide/backend/pkg/response"
)

// PaymentVerifier confirms a checkout before a paid registration is accepted.
type PaymentVerifier interface {
	Verify(p models.PaymentConfirmation) bool
}

// RegisterRequest is the body for POST /events/:id/register.
type RegisterRequest struct {
	UserID           string `json:"userId"`
	UserName         string `json:"userName"`
	EventTitle       string `json:"eventTitle"`
	PaymentOrderID   string `json:"paymentOrderId"`
	PaymentID        string `json:"paymentId"`
	PaymentSignature string `json:"paymentSignature"`
}

// CancelRequest is the body for POST /events/:id/cancel.
type CancelRequest struct {
	UserID string `json:"userId"`
}

// TicketRequest is the body for POST /events/:id/ticket.
type TicketRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// RegisterResponse is returned by POST /events/:id/register. TicketError is set
// when the registration stood but the QR code could not be produced.
type RegisterResponse struct {
	Event       *models.Event `json:"event"`
	QRCodeURL   string        `json:"qrCodeUrl,omitempty"`
	TicketError string        `json:"ticketError,omitempty"`
}

// Handler serves registration endpoints.
type Handler struct {
	svc      *Service
	payments PaymentVerifier
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. payments may be nil, in which
// case paid events register without a payment gate.
func NewHandler(svc *Service, payments PaymentVerifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, payments: payments, logger: logger}
}

var errUserMismatch = errors.New("userId does not match the authenticated user")

// caller resolves the acting user id and name from the body and the optional token.
func caller(c *gin.Context, userID, userName string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	id, ok := auth.CurrentUser(c)
	if !ok {
		return userID, userName, nil
	}
	if userID != "" && userID != id.ID {
		return "", "", errUserMismatch
	}
	if strings.TrimSpace(userName) == "" {
		userName = id.Name
	}
	return id.ID, userName, nil
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, userName, err := caller(c, req.UserID, req.UserName)
	if err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	if userID == "" {
		response.BadRequest(c, "userId required")
		return
	}
	eventID := c.Param("id")

	if h.payments != nil {
		ev, err := h.svc.Event(c.Request.Context(), eventID)
		if err != nil {
			response.ServiceError(c, h.logger, err, "failed to register")
			return
		}
		if ev.IsPaid() && !ev.HasParticipant(userID) {
			if req.PaymentOrderID == "" || req.PaymentID == "" || req.PaymentSignature == "" {
				response.PaymentRequired(c, "payment required")
				return
			}
			if !h.payments.Verify(models.PaymentConfirmation{
				OrderID: req.PaymentOrderID, PaymentID: req.PaymentID, Signature: req.PaymentSignature,
			}) {
				response.PaymentRequired(c, "payment verification failed")
				return
			}
		}
	}

	res, err := h.svc.Register(c.Request.Context(), RegisterInput{
		EventID:    eventID,
		UserID:     userID,
		UserName:   userName,
		EventTitle: req.EventTitle,
	})
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to register")
		return
	}
	out := RegisterResponse{Event: res.Event}
	if res.TicketErr != nil {
		out.TicketError = "ticket could not be generated; request it again from POST /events/" + res.Event.ID + "/ticket"
	} else {
		out.QRCodeURL = res.Ticket.DataURL
	}
	response.OK(c, out)
}

// Cancel handles POST /events/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, _, err := caller(c, req.UserID, "")
	if err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	ev, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to cancel registration")
		return
	}
	response.OK(c, ev)
}

// Ticket handles POST /events/:id/ticket, re-issuing the QR code for a participant.
func (h *Handler) Ticket(c *gin.Context) {
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, userName, err := caller(c, req.UserID, req.UserName)
	if err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	_, t, err := h.svc.ReissueTicket(c.Request.Context(), c.Param("id"), userID, userName)
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to issue ticket")
		return
	}
	response.OK(c, gin.H{"qrCodeUrl": t.DataURL})
}

// TicketPDF handles GET /events/:id/ticket.pdf?userId=&userName=.
func (h *Handler) TicketPDF(c *gin.Context) {
	userID, userName, err := caller(c, c.Query("userId"), c.Query("userName"))
	if err != nil {
		response.Forbidden(c, err.Error())
		return
	}
	ev, t, err := h.svc.ReissueTicket(c.Request.Context(), c.Param("id"), userID, userName)
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to issue ticket")
		return
	}
	pdf, err := tickets.RenderPDF(t, ev)
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to render ticket")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ticket-%s.pdf"`, ev.ID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
