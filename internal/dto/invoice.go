package dto

// GenerateInvoiceRequest selects the sessions to bill. The first populated
// selector wins: SessionIDs, then AllStudents, then StudentIDs, then StudentID.
type GenerateInvoiceRequest struct {
	StudentID   string   `json:"studentId"`
	Month       string   `json:"month" validate:"omitempty,datetime=2006-01"`
	SessionIDs  []string `json:"sessionIds" validate:"omitempty,dive,required"`
	StudentIDs  []string `json:"studentIds" validate:"omitempty,dive,required"`
	AllStudents bool     `json:"allStudents"`
}

// ReportQuery selects the billing report export.
type ReportQuery struct {
	Month  string `form:"month" validate:"required,datetime=2006-01"`
	Format string `form:"format" validate:"omitempty,oneof=csv xlsx pdf"`
}

// CalendarQuery selects the sessions exported to the iCalendar feed.
type CalendarQuery struct {
	Month string `form:"month" validate:"required,datetime=2006-01"`
}
