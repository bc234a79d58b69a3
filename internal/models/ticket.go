package models

import "time"

// TicketPayload is the data encoded into a ticket's QR code.
// It carries no signature; entry validation re-derives truth from Event.Participants.
type TicketPayload struct {
	UserID           string    `json:"userId"`
	UserName         string    `json:"userName"`
	EventID          string    `json:"eventId"`
	EventTitle       string    `json:"eventTitle"`
	RegistrationDate time.Time `json:"registrationDate"`
}
