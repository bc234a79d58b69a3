package entry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventide/backend/pkg/response"
)

// ValidateRequest is the body for POST /validate-entry.
type ValidateRequest struct {
	EventID string `json:"eventID"`
	UserID  string `json:"userID"`
}

// CheckInRequest is the body for POST /events/:id/check-in.
type CheckInRequest struct {
	UserID string `json:"userID"`
}

// Handler serves entry validation endpoints.
type Handler struct {
	v      *Validator
	logger *zap.Logger
}

// NewHandler creates an entry handler.
func NewHandler(v *Validator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{v: v, logger: logger}
}

// Mount registers the entry routes. open accepts anonymous callers and organizer
// requires an organizer token. With single-use entry a door check spends the
// attendee's entry, so /validate-entry is mounted on organizer instead of open.
func (h *Handler) Mount(open, organizer gin.IRoutes) {
	door := open
	if h.v.SingleUse() {
		door = organizer
	}
	door.POST("/validate-entry", h.Validate)
	organizer.POST("/events/:id/check-in", h.CheckIn)
	organizer.GET("/events/:id/check-ins", h.CheckIns)
}

// Validate handles POST /validate-entry.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Outcome(c, http.StatusBadRequest, false, MsgInvalidData, nil)
		return
	}
	res, err := h.v.Entry(c.Request.Context(), req.EventID, req.UserID)
	h.write(c, res, err)
}

// CheckIn handles POST /events/:id/check-in (organizer only).
func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Outcome(c, http.StatusBadRequest, false, MsgInvalidData, nil)
		return
	}
	res, err := h.v.CheckIn(c.Request.Context(), c.Param("id"), req.UserID)
	h.write(c, res, err)
}

// CheckIns handles GET /events/:id/check-ins (organizer only).
func (h *Handler) CheckIns(c *gin.Context) {
	list, err := h.v.CheckIns(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to list check-ins")
		return
	}
	response.OK(c, list)
}

// write answers with {success, message} both at envelope level and in data.
func (h *Handler) write(c *gin.Context, res Result, err error) {
	if err != nil {
		status := response.StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("entry validation failed", zap.Error(err), zap.String("event_id", res.EventID))
		}
		response.Outcome(c, status, false, res.Message, res)
		return
	}
	response.Outcome(c, http.StatusOK, res.Success, res.Message, res)
}
