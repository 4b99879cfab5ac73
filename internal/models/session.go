package models

import "time"

// SessionStatus is the lifecycle state of a teaching session.
type SessionStatus string

const (
	SessionStatusScheduled          SessionStatus = "SCHEDULED"
	SessionStatusConfirmed          SessionStatus = "CONFIRMED"
	SessionStatusCompleted          SessionStatus = "COMPLETED"
	SessionStatusPendingPayment     SessionStatus = "PENDING_PAYMENT"
	SessionStatusPaid               SessionStatus = "PAID"
	SessionStatusCancelledByTutor   SessionStatus = "CANCELLED_BY_TUTOR"
	SessionStatusCancelledByStudent SessionStatus = "CANCELLED_BY_STUDENT"
)

// AttachmentType identifies the external resource kind linked to a session.
type AttachmentType string

const (
	AttachmentLesson   AttachmentType = "LESSON"
	AttachmentDocument AttachmentType = "DOCUMENT"
)

// Session is one billable unit of tutoring time.
type Session struct {
	ID           string        `db:"id" json:"id"`
	StudentID    string        `db:"student_id" json:"studentId"`
	StudentName  string        `db:"student_name" json:"studentName"`
	BillingMonth string        `db:"billing_month" json:"billingMonth"`
	SessionDate  time.Time     `db:"session_date" json:"sessionDate"`
	StartTime    *string       `db:"start_time" json:"startTime,omitempty"`
	EndTime      *string       `db:"end_time" json:"endTime,omitempty"`
	Sessions     int           `db:"sessions" json:"sessions"`
	Hours        float64       `db:"hours" json:"hours"`
	PricePerHour int64         `db:"price_per_hour" json:"pricePerHour"`
	TotalAmount  int64         `db:"total_amount" json:"totalAmount"`
	Paid         bool          `db:"paid" json:"paid"`
	PaidAt       *time.Time    `db:"paid_at" json:"paidAt,omitempty"`
	Completed    bool          `db:"completed" json:"completed"`
	Status       SessionStatus `db:"status" json:"status"`
	Subject      string        `db:"subject" json:"subject"`
	Notes        string        `db:"notes" json:"notes"`
	Version      int           `db:"version" json:"version"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`

	Attachments []Attachment `db:"-" json:"attachments,omitempty"`
}

// Attachment links a session to an externally owned lesson or document.
type Attachment struct {
	SessionID    string         `db:"session_id" json:"-"`
	ResourceType AttachmentType `db:"resource_type" json:"resourceType"`
	ResourceID   string         `db:"resource_id" json:"resourceId"`
}

// ResolvedAttachment carries display metadata for an attachment.
type ResolvedAttachment struct {
	Attachment
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// SessionDetail is the single-record view with attachments resolved.
type SessionDetail struct {
	Session
	ResolvedAttachments []ResolvedAttachment `json:"resolvedAttachments"`
	AllowedTransitions  []SessionStatus      `json:"allowedTransitions"`
}

// SessionFilter captures list criteria. Empty fields are not applied.
type SessionFilter struct {
	StudentID string
	Month     string
	Page      int
	PageSize  int
}
