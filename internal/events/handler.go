package events

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/auth"
	"github.com/eventide/backend/pkg/response"
	"github.com/eventide/backend/pkg/storage"
)

// CreateEventRequest is the JSON body for POST /events. Multipart requests use the
// same field names plus an optional "poster" file.
type CreateEventRequest struct {
	Title                string  `json:"title" form:"title"`
	Description          string  `json:"description" form:"description"`
	Location             string  `json:"location" form:"location"`
	Date                 string  `json:"date" form:"date"`
	Time                 string  `json:"time" form:"time"`
	RegistrationDeadline string  `json:"registrationDeadline" form:"registrationDeadline"`
	OrganizerID          string  `json:"organizerId" form:"organizerId"`
	TicketPrice          float64 `json:"ticketPrice" form:"-"`
}

// Handler serves the event CRUD endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /events (organizer only).
func (h *Handler) Create(c *gin.Context) {
	var (
		in  CreateInput
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in, err = h.bindMultipart(c)
	} else {
		in, err = bindJSON(c)
	}
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if in.Poster != nil {
		if closer, ok := in.Poster.Body.(interface{ Close() error }); ok {
			defer closer.Close()
		}
	}

	if id, ok := auth.CurrentUser(c); ok {
		if in.OrganizerID != "" && in.OrganizerID != id.ID {
			response.Forbidden(c, "organizerId must match the authenticated organizer")
			return
		}
		in.OrganizerID = id.ID
	}

	ev, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to create event")
		return
	}
	response.Created(c, ev)
}

func bindJSON(c *gin.Context) (CreateInput, error) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return CreateInput{}, errInvalidRequest(err)
	}
	return req.input(), nil
}

func (h *Handler) bindMultipart(c *gin.Context) (CreateInput, error) {
	var req CreateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		return CreateInput{}, errInvalidRequest(err)
	}
	if raw := strings.TrimSpace(c.PostForm("ticketPrice")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return CreateInput{}, errBadField("ticketPrice")
		}
		req.TicketPrice = price
	}
	in := req.input()

	file, err := c.FormFile("poster")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return CreateInput{}, errBadField("poster")
	}
	if file.Size > storage.MaxPosterFileSize {
		return CreateInput{}, badRequest("poster exceeds 5MB limit")
	}
	if !storage.ValidatePosterFileType(file.Header.Get("Content-Type"), file.Filename) {
		return CreateInput{}, badRequest("invalid poster type: only jpg, png, webp and gif allowed")
	}
	contentType := storage.ContentTypeForFilename(file.Filename)
	if ct := file.Header.Get("Content-Type"); ct != "" {
		if _, ok := storage.AllowedPosterTypes[ct]; ok {
			contentType = ct
		}
	}
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded poster failed", zap.Error(err))
		return CreateInput{}, badRequest("failed to read poster")
	}
	in.Poster = &PosterUpload{Filename: file.Filename, ContentType: contentType, Size: file.Size, Body: rc}
	return in, nil
}

func (r CreateEventRequest) input() CreateInput {
	return CreateInput{
		Title:                r.Title,
		Description:          r.Description,
		Location:             r.Location,
		Date:                 r.Date,
		Time:                 r.Time,
		RegistrationDeadline: r.RegistrationDeadline,
		OrganizerID:          strings.TrimSpace(r.OrganizerID),
		TicketPrice:          r.TicketPrice,
	}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	ev, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to get event")
		return
	}
	response.OK(c, ev)
}

// Delete handles DELETE /events/:id (organizer only).
func (h *Handler) Delete(c *gin.Context) {
	var caller string
	if id, ok := auth.CurrentUser(c); ok {
		caller = id.ID
	}
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), caller); err != nil {
		response.ServiceError(c, h.logger, err, "failed to delete event")
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// Poster handles GET /events/:id/poster by redirecting to a presigned URL.
func (h *Handler) Poster(c *gin.Context) {
	url, err := h.svc.PosterURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to get poster")
		return
	}
	c.Redirect(http.StatusFound, url)
}

type requestError string

func (e requestError) Error() string { return string(e) }

func badRequest(msg string) error       { return requestError(msg) }
func errBadField(field string) error    { return requestError("invalid " + field) }
func errInvalidRequest(err error) error { return requestError("invalid request: " + err.Error()) }
