package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/lifecycle"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/export"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/money"
)

const defaultReportFormat = "csv"

var billingReportHeaders = []string{
	"Ngày học", "Học sinh", "Môn học", "Giờ học", "Số buổi", "Số giờ",
	"Đơn giá", "Thành tiền", "Trạng thái", "Đã thanh toán",
}

type reportSessionSource interface {
	FindByMonth(ctx context.Context, month string) ([]models.Session, error)
}

// ReportFile is a rendered export ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ReportService renders the monthly billing report.
type ReportService struct {
	sessions  reportSessionSource
	exporters map[string]export.Exporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the report service with CSV and XLSX renderers.
func NewReportService(sessions reportSessionSource, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	exporters := map[string]export.Exporter{}
	for _, e := range []export.Exporter{export.NewCSVExporter(), export.NewXLSXExporter(), export.NewPDFExporter()} {
		exporters[e.Extension()] = e
	}
	return &ReportService{sessions: sessions, exporters: exporters, validator: validate, logger: logger}
}

// BillingReport lists every session of the month with a totals row. Cancelled
// sessions are listed but left out of the totals.
func (s *ReportService) BillingReport(ctx context.Context, query dto.ReportQuery) (*ReportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query")
	}
	format := query.Format
	if format == "" {
		format = defaultReportFormat
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, validationError("unsupported report format %q", format)
	}

	sessions, err := s.sessions.FindByMonth(ctx, query.Month)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions for report")
	}

	content, err := exporter.Render(billingDataset(query.Month, sessions))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	s.logger.Info("billing report rendered",
		zap.String("month", query.Month),
		zap.String("format", format),
		zap.Int("sessions", len(sessions)),
	)
	return &ReportFile{
		Filename:    fmt.Sprintf("billing-%s.%s", query.Month, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Content:     content,
	}, nil
}

func billingDataset(month string, sessions []models.Session) export.Dataset {
	rows := make([][]interface{}, 0, len(sessions)+1)
	var (
		count int
		hours []float64
		total int64
	)
	for _, session := range sessions {
		rows = append(rows, []interface{}{
			session.SessionDate.Format(lineDateLayout),
			session.StudentName,
			session.Subject,
			clockRange(session.StartTime, session.EndTime),
			session.Sessions,
			money.RoundHours(session.Hours),
			session.PricePerHour,
			session.TotalAmount,
			string(session.Status),
			session.Paid,
		})
		if lifecycle.IsCancelled(session.Status) {
			continue
		}
		count += session.Sessions
		hours = append(hours, session.Hours)
		total += session.TotalAmount
	}
	rows = append(rows, []interface{}{"Tổng cộng", "", "", "", count, money.SumHours(hours...), "", total, "", ""})

	return export.Dataset{
		Title:   "Học phí " + month,
		Headers: billingReportHeaders,
		Rows:    rows,
	}
}

func clockRange(start, end *string) string {
	switch {
	case start != nil && end != nil:
		return *start + " - " + *end
	case start != nil:
		return *start
	default:
		return ""
	}
}
