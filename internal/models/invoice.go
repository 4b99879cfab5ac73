package models

import "time"

// InvoiceMode records which selection strategy resolved the invoice's sessions.
type InvoiceMode string

const (
	InvoiceModeSessionIDs    InvoiceMode = "SESSION_IDS"
	InvoiceModeAllStudents   InvoiceMode = "ALL_STUDENTS"
	InvoiceModeStudentList   InvoiceMode = "STUDENT_LIST"
	InvoiceModeSingleStudent InvoiceMode = "SINGLE_STUDENT"
)

// Invoice is a derived billing document. It is built on demand and never stored.
type Invoice struct {
	InvoiceNumber string            `json:"invoiceNumber"`
	Mode          InvoiceMode       `json:"mode"`
	StudentLabel  string            `json:"studentLabel"`
	PeriodLabel   string            `json:"periodLabel"`
	Months        []string          `json:"months"`
	LineItems     []InvoiceLineItem `json:"lineItems"`
	TotalSessions int               `json:"totalSessions"`
	TotalHours    float64           `json:"totalHours"`
	TotalAmount   int64             `json:"totalAmount"`
	Bank          BankInfo          `json:"bank"`
	QRPayload     string            `json:"qrPayload"`
	GeneratedAt   time.Time         `json:"generatedAt"`
}

// InvoiceLineItem is either one session (single student) or one student summary.
type InvoiceLineItem struct {
	Label        string  `json:"label,omitempty"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Sessions     int     `json:"sessions"`
	Hours        float64 `json:"hours"`
	PricePerHour int64   `json:"pricePerHour"`
	Amount       int64   `json:"amount"`
}

// BankInfo is the transfer destination printed on the invoice.
type BankInfo struct {
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}
