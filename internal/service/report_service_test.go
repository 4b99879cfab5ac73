package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

type reportSourceStub struct {
	sessions []models.Session
	err      error
	month    string
}

func (s *reportSourceStub) FindByMonth(ctx context.Context, month string) ([]models.Session, error) {
	s.month = month
	return s.sessions, s.err
}

func reportSessions() []models.Session {
	start, end := "18:00", "20:00"
	return []models.Session{
		{
			ID: "s1", StudentName: "An", Subject: "Toán", SessionDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			StartTime: &start, EndTime: &end, Sessions: 1, Hours: 2, PricePerHour: 200000, TotalAmount: 400000,
			Status: models.SessionStatusPaid, Paid: true,
		},
		{
			ID: "s2", StudentName: "Bình", SessionDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
			Sessions: 1, Hours: 1.5, PricePerHour: 150000, TotalAmount: 225000, Status: models.SessionStatusScheduled,
		},
		{
			ID: "s3", StudentName: "Bình", SessionDate: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
			Sessions: 1, Hours: 1.5, PricePerHour: 150000, TotalAmount: 225000, Status: models.SessionStatusCancelledByStudent,
		},
	}
}

func TestReportServiceCSV(t *testing.T) {
	source := &reportSourceStub{sessions: reportSessions()}
	svc := NewReportService(source, nil, nil)

	file, err := svc.BillingReport(context.Background(), dto.ReportQuery{Month: "2025-01"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01", source.month)
	assert.Equal(t, "billing-2025-01.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(file.Content, []byte("\xef\xbb\xbf")))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, billingReportHeaders, records[0])
	assert.Equal(t, []string{"05/01/2025", "An", "Toán", "18:00 - 20:00", "1", "2", "200000", "400000", "PAID", "true"}, records[1])
	assert.Equal(t, "CANCELLED_BY_STUDENT", records[3][8])
	assert.Equal(t, []string{"Tổng cộng", "", "", "", "2", "3.5", "", "625000", "", ""}, records[4])
}

func TestReportServiceXLSX(t *testing.T) {
	svc := NewReportService(&reportSourceStub{sessions: reportSessions()}, nil, nil)

	file, err := svc.BillingReport(context.Background(), dto.ReportQuery{Month: "2025-01", Format: "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "billing-2025-01.xlsx", file.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck
	rows, err := book.GetRows("Học phí 2025-01")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Ngày học", rows[1][0])
	assert.Equal(t, "Tổng cộng", rows[5][0])
}

func TestReportServicePDF(t *testing.T) {
	svc := NewReportService(&reportSourceStub{sessions: reportSessions()}, nil, nil)

	file, err := svc.BillingReport(context.Background(), dto.ReportQuery{Month: "2025-01", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "billing-2025-01.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF-")))
}

func TestReportServiceRejectsQuery(t *testing.T) {
	svc := NewReportService(&reportSourceStub{}, nil, nil)

	_, err := svc.BillingReport(context.Background(), dto.ReportQuery{Month: "01/2025"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.BillingReport(context.Background(), dto.ReportQuery{Month: "2025-01", Format: "docx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestReportServiceSourceError(t *testing.T) {
	svc := NewReportService(&reportSourceStub{err: errors.New("db down")}, nil, nil)

	_, err := svc.BillingReport(context.Background(), dto.ReportQuery{Month: "2025-01"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
