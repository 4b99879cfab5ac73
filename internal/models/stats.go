package models

// MonthlyStats aggregates one billing month. Cancelled sessions are excluded.
type MonthlyStats struct {
	Month         string  `db:"billing_month" json:"month"`
	TotalSessions int     `db:"total_sessions" json:"totalSessions"`
	TotalHours    float64 `db:"total_hours" json:"totalHours"`
	TotalPaid     int64   `db:"total_paid" json:"totalPaid"`
	TotalUnpaid   int64   `db:"total_unpaid" json:"totalUnpaid"`
}

// FinanceSummary is the global paid/unpaid overview with current-month figures.
type FinanceSummary struct {
	CurrentMonth       string `db:"-" json:"currentMonth"`
	TotalStudents      int    `db:"total_students" json:"totalStudents"`
	TotalPaid          int64  `db:"total_paid" json:"totalPaid"`
	TotalUnpaid        int64  `db:"total_unpaid" json:"totalUnpaid"`
	CurrentMonthTotal  int64  `db:"current_month_total" json:"currentMonthTotal"`
	CurrentMonthUnpaid int64  `db:"current_month_unpaid" json:"currentMonthUnpaid"`
}
