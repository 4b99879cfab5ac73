package dto

// CreateSessionRequest is the payload of POST /sessions. Either HoursPerSession
// or both times must yield a positive duration.
type CreateSessionRequest struct {
	StudentID       string   `json:"studentId" validate:"required"`
	Month           string   `json:"month" validate:"omitempty,datetime=2006-01"`
	SessionDate     string   `json:"sessionDate" validate:"required,datetime=2006-01-02"`
	StartTime       string   `json:"startTime"`
	EndTime         string   `json:"endTime"`
	Sessions        int      `json:"sessions" validate:"omitempty,min=1,max=100"`
	HoursPerSession float64  `json:"hoursPerSession" validate:"omitempty,gt=0,lte=24"`
	Subject         string   `json:"subject" validate:"omitempty,max=255"`
	Notes           string   `json:"notes"`
	Status          string   `json:"status"`
	LessonIDs       []string `json:"lessonIds" validate:"omitempty,dive,required"`
	DocumentIDs     []string `json:"documentIds" validate:"omitempty,dive,required"`
}

// UpdateSessionRequest is a partial edit. Nil fields are left untouched; an
// empty StartTime or EndTime clears it. Attachment lists replace the current
// set when present.
type UpdateSessionRequest struct {
	Version         *int      `json:"version"`
	Month           *string   `json:"month" validate:"omitempty,datetime=2006-01"`
	SessionDate     *string   `json:"sessionDate" validate:"omitempty,datetime=2006-01-02"`
	StartTime       *string   `json:"startTime"`
	EndTime         *string   `json:"endTime"`
	Sessions        *int      `json:"sessions" validate:"omitempty,min=1,max=100"`
	HoursPerSession *float64  `json:"hoursPerSession" validate:"omitempty,gt=0,lte=24"`
	Subject         *string   `json:"subject" validate:"omitempty,max=255"`
	Notes           *string   `json:"notes"`
	Status          *string   `json:"status"`
	LessonIDs       *[]string `json:"lessonIds"`
	DocumentIDs     *[]string `json:"documentIds"`
}

// UpdateStatusRequest carries the target status for PUT /sessions/:id/status.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Version *int   `json:"version"`
}

// TogglePaymentRequest optionally pins the version the client last saw.
type TogglePaymentRequest struct {
	Version *int `json:"version"`
}

// SessionQuery mirrors GET /sessions filters.
type SessionQuery struct {
	Month     string `form:"month" validate:"omitempty,datetime=2006-01"`
	StudentID string `form:"studentId"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// DeleteByMonthResponse reports a bulk delete.
type DeleteByMonthResponse struct {
	Month   string `json:"month"`
	Deleted int64  `json:"deleted"`
}
