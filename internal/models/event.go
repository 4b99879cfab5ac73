package models

import "time"

// EventType names an outbound session notification.
type EventType string

const (
	EventSessionCreated     EventType = "session.created"
	EventSessionRescheduled EventType = "session.rescheduled"
)

// SessionEvent is the payload published on the notification channel.
type SessionEvent struct {
	ID          string        `json:"id"`
	Type        EventType     `json:"type"`
	SessionID   string        `json:"sessionId"`
	StudentID   string        `json:"studentId"`
	SessionDate time.Time     `json:"sessionDate"`
	StartTime   *string       `json:"startTime,omitempty"`
	EndTime     *string       `json:"endTime,omitempty"`
	Status      SessionStatus `json:"status"`
	Changes     []string      `json:"changes,omitempty"`
	RequestID   string        `json:"requestId,omitempty"`
	OccurredAt  time.Time     `json:"occurredAt"`
}
