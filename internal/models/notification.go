package models

// Notification is the job payload for registration e-mails.
type Notification struct {
	EventID    string `json:"eventId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	EventTitle string `json:"eventTitle"`
	Email      string `json:"email,omitempty"`
}

// FeedEvent names broadcast on the live entry feed.
const (
	FeedEntryValidated        = "entry_validated"
	FeedParticipantRegistered = "participant_registered"
	FeedParticipantCancelled  = "participant_cancelled"
)

// FeedEntry is one message on an event's live entry feed.
type FeedEntry struct {
	EventID  string `json:"eventId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	At       int64  `json:"at"`
}
