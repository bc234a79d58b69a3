package events

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/auth"
	"github.com/eventide/backend/internal/models"
)

func setupRouter(svc *Service, identity *auth.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if identity != nil {
			c.Set(auth.ContextIdentity, *identity)
		}
		c.Next()
	})
	r.POST("/events", h.Create)
	r.GET("/events", h.List)
	r.GET("/events/:id", h.Get)
	r.DELETE("/events/:id", h.Delete)
	r.GET("/events/:id/poster", h.Poster)
	return r
}

func decodeEvent(t *testing.T, body []byte) models.Event {
	t.Helper()
	var env struct {
		Success bool         `json:"success"`
		Data    models.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	require.True(t, env.Success)
	return env.Data
}

func TestHandlerCreateJSON(t *testing.T) {
	svc, _ := newTestService(nil)
	r := setupRouter(svc, &auth.Identity{ID: "O1", Name: "Olga", IsOrganizer: true})

	body, _ := json.Marshal(map[string]interface{}{
		"title": "Demo Talk", "description": "Intro", "location": "Hall A",
		"date": "2025-04-01", "time": "3:00 PM", "registrationDeadline": "2025-03-30",
		"ticketPrice": 0,
	})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ev := decodeEvent(t, w.Body.Bytes())
	assert.Equal(t, "O1", ev.OrganizerID)
	assert.Equal(t, []string{}, ev.Participants)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+ev.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerCreateRejectsForeignOrganizer(t *testing.T) {
	svc, _ := newTestService(nil)
	r := setupRouter(svc, &auth.Identity{ID: "O1", IsOrganizer: true})
	body, _ := json.Marshal(map[string]interface{}{"title": "x", "organizerId": "O2"})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerCreateMissingFields(t *testing.T) {
	svc, _ := newTestService(nil)
	r := setupRouter(svc, &auth.Identity{ID: "O1", IsOrganizer: true})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte(`{"title":"Demo"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "description")
}

func TestHandlerCreateMultipartWithPoster(t *testing.T) {
	posters := newFakePosters()
	svc, _ := newTestService(posters)
	r := setupRouter(svc, &auth.Identity{ID: "O1", IsOrganizer: true})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title": "Demo Talk", "description": "Intro", "location": "Hall A",
		"date": "2025-04-01", "time": "3:00 PM", "registrationDeadline": "2025-03-30",
		"ticketPrice": "250",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="poster"; filename="poster.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/events", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ev := decodeEvent(t, w.Body.Bytes())
	assert.Equal(t, 250.0, ev.TicketPrice)
	assert.Equal(t, "posters/poster.png", ev.PosterPath)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+ev.ID+"/poster", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://cdn.example.com/posters/poster.png", w.Header().Get("Location"))
}

func TestHandlerDelete(t *testing.T) {
	svc, store := newTestService(nil)
	store.Put(models.Event{ID: "E1", Title: "Demo Talk", OrganizerID: "O1"})

	w := httptest.NewRecorder()
	setupRouter(svc, &auth.Identity{ID: "O2", IsOrganizer: true}).
		ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/events/E1", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	setupRouter(svc, &auth.Identity{ID: "O1", IsOrganizer: true}).
		ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/events/E1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
