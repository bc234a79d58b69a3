package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eventide/backend/internal/entry"
)

// EntryValidator answers whether a scanned user may enter an event.
type EntryValidator interface {
	Validate(ctx context.Context, eventID, userID string) (entry.Result, error)
}

// APIClient validates entries against the HTTP API.
type APIClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewAPIClient creates a client for baseURL (e.g. http://localhost:8080/api/v1).
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type validateBody struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Data    entry.Result `json:"data"`
}

// Validate posts to /validate-entry. Negative domain outcomes (not registered,
// unknown event) come back as a Result; transport and server failures as errors.
func (c *APIClient) Validate(ctx context.Context, eventID, userID string) (entry.Result, error) {
	body, err := json.Marshal(entry.ValidateRequest{EventID: eventID, UserID: userID})
	if err != nil {
		return entry.Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/validate-entry", bytes.NewReader(body))
	if err != nil {
		return entry.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return entry.Result{}, fmt.Errorf("validate-entry: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return entry.Result{}, fmt.Errorf("validate-entry: status %d", resp.StatusCode)
	}
	var out validateBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return entry.Result{}, fmt.Errorf("validate-entry: decode response: %w", err)
	}
	msg := out.Message
	if msg == "" {
		msg = out.Error
	}
	if msg == "" {
		return entry.Result{}, fmt.Errorf("validate-entry: status %d without message", resp.StatusCode)
	}
	res := out.Data
	res.Success = out.Success
	res.Message = msg
	return res, nil
}
