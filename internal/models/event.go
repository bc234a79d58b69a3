package models

import (
	"time"
)

// Event is a hosted occasion with schedule, location and a participant roster.
type Event struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Location             string    `json:"location"`
	Date                 time.Time `json:"date"`
	Time                 string    `json:"time"` // display string, e.g. "3:00 PM - 5:00 PM"
	RegistrationDeadline time.Time `json:"registrationDeadline"`
	OrganizerID          string    `json:"organizerId"`
	Participants         []string  `json:"participants"`
	TicketPrice          float64   `json:"ticketPrice"`
	PosterPath           string    `json:"posterPath,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is on the roster.
func (e *Event) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsPaid reports whether registering requires a confirmed payment.
func (e *Event) IsPaid() bool {
	return e.TicketPrice > 0
}

// RegistrationOpen reports whether now is on or before the deadline's calendar day.
// A zero deadline never closes registration.
func (e *Event) RegistrationOpen(now time.Time) bool {
	if e.RegistrationDeadline.IsZero() {
		return true
	}
	d := e.RegistrationDeadline.UTC()
	endOfDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return now.UTC().Before(endOfDay)
}

// CheckIn records the first accepted scan of a participant at an event.
type CheckIn struct {
	EventID     string    `json:"eventId"`
	UserID      string    `json:"userId"`
	CheckedInAt time.Time `json:"checkedInAt"`
}
