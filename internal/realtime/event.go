package realtime

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags a frame on a consultation stream
type EventKind string

const (
	EventConnected             EventKind = "connected"
	EventNewMessage            EventKind = "new_message"
	EventTyping                EventKind = "typing"
	EventDoctorJoined          EventKind = "doctor_joined"
	EventConsultationCompleted EventKind = "consultation_completed"
	EventConsultationCancelled EventKind = "consultation_cancelled"
	EventConsultationExpired   EventKind = "consultation_expired"
	EventMessagesRead          EventKind = "messages_read"
)

// Event is one frame published on a topic
type Event struct {
	Kind  EventKind `json:"event"`
	Topic string    `json:"topic"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

func NewEvent(kind EventKind, data any) Event {
	return Event{
		Kind: kind,
		Data: data,
		At:   time.Now().UTC(),
	}
}

// ConsultationTopic names the topic carrying a consultation's events
func ConsultationTopic(consultationID uuid.UUID) string {
	return "consultation:" + consultationID.String()
}

// TypingData is the payload of a typing event
type TypingData struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	IsTyping       bool      `json:"is_typing"`
}
