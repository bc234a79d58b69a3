package tickets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eventide/backend/internal/models"
)

// ErrMalformedPayload is returned when scanned text does not match the ticket schema.
var ErrMalformedPayload = errors.New("malformed ticket payload")

// Encode serializes a payload to its canonical text: JSON with keys
// userId, userName, eventId, eventTitle, registrationDate (UTC, RFC 3339).
func Encode(p models.TicketPayload) ([]byte, error) {
	p.RegistrationDate = p.RegistrationDate.UTC()
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", models.ErrEncoding, err)
	}
	return b, nil
}

// Decode parses canonical ticket text. Unknown keys, trailing data and missing
// fields are rejected with ErrMalformedPayload.
func Decode(text string) (models.TicketPayload, error) {
	var p models.TicketPayload
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(text))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return models.TicketPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return models.TicketPayload{}, fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}
	switch {
	case p.UserID == "":
		return models.TicketPayload{}, fmt.Errorf("%w: userId required", ErrMalformedPayload)
	case p.EventID == "":
		return models.TicketPayload{}, fmt.Errorf("%w: eventId required", ErrMalformedPayload)
	case p.UserName == "":
		return models.TicketPayload{}, fmt.Errorf("%w: userName required", ErrMalformedPayload)
	case p.EventTitle == "":
		return models.TicketPayload{}, fmt.Errorf("%w: eventTitle required", ErrMalformedPayload)
	case p.RegistrationDate.IsZero():
		return models.TicketPayload{}, fmt.Errorf("%w: registrationDate required", ErrMalformedPayload)
	}
	return p, nil
}
