package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/lifecycle"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/config"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/money"
)

const (
	invoiceSequenceName = "invoice"
	allStudentsLabel    = "TẤT CẢ HỌC SINH"
	lineDateLayout      = "02/01/2006"
	vietQRFormat        = "https://img.vietqr.io/image/%s-%s-%s.png?amount=%d&addInfo=%s"
)

type invoiceSessionSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Session, error)
	FindByMonthAndStudents(ctx context.Context, month string, studentIDs []string) ([]models.Session, error)
	FindUnpaidByStudentAndMonth(ctx context.Context, studentID, month string) ([]models.Session, error)
}

type invoiceStudentDirectory interface {
	studentDirectory
	ExistsByID(ctx context.Context, id string) (bool, error)
	FindActive(ctx context.Context) ([]models.Student, error)
}

type sequenceSource interface {
	Next(ctx context.Context, name string) (int64, error)
}

// InvoiceService builds invoices from sessions. It only reads sessions; the
// one write is advancing the invoice number sequence.
type InvoiceService struct {
	sessions  invoiceSessionSource
	students  invoiceStudentDirectory
	sequence  sequenceSource
	billing   config.BillingConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// InvoiceServiceOption configures the service.
type InvoiceServiceOption func(*InvoiceService)

// WithInvoiceMetrics counts generated invoices by mode.
func WithInvoiceMetrics(metrics *MetricsService) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.metrics = metrics
	}
}

// WithInvoiceClock overrides time.Now, for tests.
func WithInvoiceClock(now func() time.Time) InvoiceServiceOption {
	return func(s *InvoiceService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInvoiceService constructs the service.
func NewInvoiceService(sessions invoiceSessionSource, students invoiceStudentDirectory, sequence sequenceSource, billing config.BillingConfig, validate *validator.Validate, logger *zap.Logger, opts ...InvoiceServiceOption) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if billing.InvoicePrefix == "" {
		billing.InvoicePrefix = "INV"
	}
	if billing.LineDescription == "" {
		billing.LineDescription = "Buổi học"
	}
	svc := &InvoiceService{
		sessions:  sessions,
		students:  students,
		sequence:  sequence,
		billing:   billing,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Generate resolves the sessions selected by req and consolidates them into an
// invoice. Selectors are tried in order: session ids, all active students,
// a student list, then a single student's unpaid sessions for the month.
// Cancelled sessions never count.
func (s *InvoiceService) Generate(ctx context.Context, req dto.GenerateInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice request")
	}

	mode, sessions, criteria, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	billable := excludeCancelled(sessions)
	if len(billable) == 0 {
		return nil, noBillableSessions(criteria)
	}

	seq, err := s.sequence.Next(ctx, invoiceSequenceName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate invoice number")
	}

	invoice := s.build(mode, billable, seq)
	s.metrics.RecordInvoice(string(mode))
	s.logger.Info("invoice generated",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("mode", string(mode)),
		zap.Int("sessions", len(billable)),
		zap.Int64("total_amount", invoice.TotalAmount))
	return invoice, nil
}

func (s *InvoiceService) resolve(ctx context.Context, req dto.GenerateInvoiceRequest) (models.InvoiceMode, []models.Session, string, error) {
	var (
		mode     models.InvoiceMode
		sessions []models.Session
		criteria string
		err      error
	)
	switch {
	case len(req.SessionIDs) > 0:
		mode = models.InvoiceModeSessionIDs
		criteria = "sessions " + strings.Join(req.SessionIDs, ", ")
		sessions, err = s.sessions.FindByIDs(ctx, req.SessionIDs)
	case req.AllStudents:
		if req.Month == "" {
			return "", nil, "", validationError("month is required for an all-students invoice")
		}
		mode = models.InvoiceModeAllStudents
		criteria = "all active students in " + req.Month
		active, aerr := s.students.FindActive(ctx)
		if aerr != nil {
			return "", nil, "", appErrors.Wrap(aerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active students")
		}
		ids := make([]string, 0, len(active))
		for _, student := range active {
			ids = append(ids, student.ID)
		}
		sessions, err = s.sessions.FindByMonthAndStudents(ctx, req.Month, ids)
	case len(req.StudentIDs) > 0:
		if req.Month == "" {
			return "", nil, "", validationError("month is required for a multi-student invoice")
		}
		for _, id := range req.StudentIDs {
			exists, eerr := s.students.ExistsByID(ctx, id)
			if eerr != nil {
				return "", nil, "", appErrors.Wrap(eerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
			}
			if !exists {
				return "", nil, "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", id))
			}
		}
		mode = models.InvoiceModeStudentList
		criteria = fmt.Sprintf("students %s in %s", strings.Join(req.StudentIDs, ", "), req.Month)
		sessions, err = s.sessions.FindByMonthAndStudents(ctx, req.Month, req.StudentIDs)
	default:
		if req.StudentID == "" || req.Month == "" {
			return "", nil, "", validationError("studentId and month are required")
		}
		student, serr := s.students.GetByID(ctx, req.StudentID)
		if serr != nil {
			if errors.Is(serr, sql.ErrNoRows) {
				return "", nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return "", nil, "", appErrors.Wrap(serr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		mode = models.InvoiceModeSingleStudent
		criteria = fmt.Sprintf("unpaid sessions of %s in %s", student.Name, req.Month)
		// Only this mode skips paid sessions; explicit selections bill what was picked.
		sessions, err = s.sessions.FindUnpaidByStudentAndMonth(ctx, req.StudentID, req.Month)
	}
	if err != nil {
		return "", nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions for invoice")
	}
	return mode, sessions, criteria, nil
}

func (s *InvoiceService) build(mode models.InvoiceMode, sessions []models.Session, seq int64) *models.Invoice {
	byStudent, order := groupByStudent(sessions)
	months := distinctMonths(sessions)

	invoice := &models.Invoice{
		Mode:        mode,
		Months:      months,
		PeriodLabel: periodLabel(months),
		Bank: models.BankInfo{
			BankCode:      s.billing.BankCode,
			BankName:      s.billing.BankName,
			AccountNumber: s.billing.AccountNumber,
			AccountName:   s.billing.AccountName,
		},
		GeneratedAt: s.now().UTC(),
	}

	hours := make([]float64, 0, len(sessions))
	for _, session := range sessions {
		invoice.TotalSessions += session.Sessions
		invoice.TotalAmount += session.TotalAmount
		hours = append(hours, session.Hours)
	}
	invoice.TotalHours = money.SumHours(hours...)

	if len(order) == 1 {
		invoice.StudentLabel = byStudent[order[0]][0].StudentName
		invoice.LineItems = s.sessionLines(byStudent[order[0]])
	} else {
		invoice.StudentLabel = studentLabel(mode, byStudent, order)
		invoice.LineItems = studentLines(byStudent, order)
	}

	invoice.InvoiceNumber = s.invoiceNumber(months[0], seq, len(months) > 1, len(order) > 1)
	invoice.QRPayload = fmt.Sprintf(vietQRFormat,
		s.billing.BankCode, s.billing.AccountNumber, s.billing.QRTemplate,
		invoice.TotalAmount, strings.ReplaceAll(invoice.InvoiceNumber, "-", ""))
	return invoice
}

func (s *InvoiceService) sessionLines(sessions []models.Session) []models.InvoiceLineItem {
	sorted := append([]models.Session(nil), sessions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.SessionDate.Equal(b.SessionDate) {
			return a.SessionDate.Before(b.SessionDate)
		}
		if as, bs := clockOrEmpty(a.StartTime), clockOrEmpty(b.StartTime); as != bs {
			return as < bs
		}
		return a.ID < b.ID
	})

	lines := make([]models.InvoiceLineItem, 0, len(sorted))
	for _, session := range sorted {
		description := session.Subject
		if description == "" {
			description = s.billing.LineDescription
		}
		lines = append(lines, models.InvoiceLineItem{
			Date:         session.SessionDate.Format(lineDateLayout),
			Description:  description,
			Sessions:     session.Sessions,
			Hours:        money.RoundHours(session.Hours),
			PricePerHour: session.PricePerHour,
			Amount:       session.TotalAmount,
		})
	}
	return lines
}

func studentLines(byStudent map[string][]models.Session, order []string) []models.InvoiceLineItem {
	lines := make([]models.InvoiceLineItem, 0, len(order))
	for _, id := range order {
		sessions := byStudent[id]
		line := models.InvoiceLineItem{
			Label:        sessions[0].StudentName,
			Date:         periodLabel(distinctMonths(sessions)),
			Description:  sessions[0].StudentName + " - Học phí",
			PricePerHour: sessions[0].PricePerHour,
		}
		hours := make([]float64, 0, len(sessions))
		for _, session := range sessions {
			if session.PricePerHour != line.PricePerHour {
				// mixed rate snapshots have no single unit price
				line.PricePerHour = 0
			}
			line.Sessions += session.Sessions
			line.Amount += session.TotalAmount
			hours = append(hours, session.Hours)
		}
		line.Hours = money.SumHours(hours...)
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Label < lines[j].Label })
	return lines
}

func (s *InvoiceService) invoiceNumber(firstMonth string, seq int64, multiMonth, multiStudent bool) string {
	number := fmt.Sprintf("%s-%s-%03d", s.billing.InvoicePrefix, strings.ReplaceAll(firstMonth, "-", ""), seq)
	if multiMonth {
		number += "-M"
	}
	if multiStudent {
		number += "-S"
	}
	return number
}

func excludeCancelled(sessions []models.Session) []models.Session {
	out := make([]models.Session, 0, len(sessions))
	for _, session := range sessions {
		if !lifecycle.IsCancelled(session.Status) {
			out = append(out, session)
		}
	}
	return out
}

// groupByStudent buckets sessions per student, keeping first-seen order.
func groupByStudent(sessions []models.Session) (map[string][]models.Session, []string) {
	byStudent := make(map[string][]models.Session)
	var order []string
	for _, session := range sessions {
		if _, ok := byStudent[session.StudentID]; !ok {
			order = append(order, session.StudentID)
		}
		byStudent[session.StudentID] = append(byStudent[session.StudentID], session)
	}
	return byStudent, order
}

func distinctMonths(sessions []models.Session) []string {
	seen := make(map[string]struct{})
	var months []string
	for _, session := range sessions {
		if _, ok := seen[session.BillingMonth]; ok {
			continue
		}
		seen[session.BillingMonth] = struct{}{}
		months = append(months, session.BillingMonth)
	}
	sort.Strings(months)
	return months
}

// periodLabel renders sorted YYYY-MM keys: "Tháng 01/2025", "Tháng 11, 12/2025",
// or "Tháng 12/2024, 01/2025" when the months cross a year.
func periodLabel(months []string) string {
	if len(months) == 0 {
		return ""
	}
	type ym struct{ year, month string }
	parts := make([]ym, 0, len(months))
	sameYear := true
	for _, m := range months {
		year, month, ok := strings.Cut(m, "-")
		if !ok {
			year, month = m, "??"
		}
		if len(parts) > 0 && parts[0].year != year {
			sameYear = false
		}
		parts = append(parts, ym{year: year, month: month})
	}

	labels := make([]string, len(parts))
	for i, p := range parts {
		if sameYear && i < len(parts)-1 {
			labels[i] = p.month
			continue
		}
		labels[i] = p.month + "/" + p.year
	}
	return "Tháng " + strings.Join(labels, ", ")
}

func studentLabel(mode models.InvoiceMode, byStudent map[string][]models.Session, order []string) string {
	if mode == models.InvoiceModeAllStudents {
		return allStudentsLabel
	}
	names := make([]string, 0, len(order))
	for _, id := range order {
		names = append(names, byStudent[id][0].StudentName)
	}
	sort.Strings(names)
	if len(names) <= 2 {
		return strings.Join(names, " và ")
	}
	return fmt.Sprintf("%s và %d học sinh khác", names[0], len(names)-1)
}

func clockOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
