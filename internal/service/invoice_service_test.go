package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/config"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

type invoiceSourceStub struct {
	sessions []models.Session
	calls    []string
}

func (s *invoiceSourceStub) FindByIDs(ctx context.Context, ids []string) ([]models.Session, error) {
	s.calls = append(s.calls, "ids")
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Session
	for _, session := range s.sessions {
		if want[session.ID] {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *invoiceSourceStub) FindByMonthAndStudents(ctx context.Context, month string, studentIDs []string) ([]models.Session, error) {
	s.calls = append(s.calls, "students")
	want := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		want[id] = true
	}
	var out []models.Session
	for _, session := range s.sessions {
		if session.BillingMonth == month && want[session.StudentID] {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *invoiceSourceStub) FindUnpaidByStudentAndMonth(ctx context.Context, studentID, month string) ([]models.Session, error) {
	s.calls = append(s.calls, "single")
	var out []models.Session
	for _, session := range s.sessions {
		if session.StudentID == studentID && session.BillingMonth == month && !session.Paid {
			out = append(out, session)
		}
	}
	return out, nil
}

type sequenceStub struct {
	value int64
}

func (s *sequenceStub) Next(ctx context.Context, name string) (int64, error) {
	s.value++
	return s.value, nil
}

func billedSession(id, studentID, name, month string, day int, hours float64, rate int64) models.Session {
	year, mon := 2025, time.January
	if parsed, err := time.Parse("2006-01", month); err == nil {
		year, mon = parsed.Year(), parsed.Month()
	}
	return models.Session{
		ID:           id,
		StudentID:    studentID,
		StudentName:  name,
		BillingMonth: month,
		SessionDate:  time.Date(year, mon, day, 0, 0, 0, 0, time.UTC),
		Sessions:     1,
		Hours:        hours,
		PricePerHour: rate,
		TotalAmount:  int64(hours * float64(rate)),
		Status:       models.SessionStatusCompleted,
	}
}

func newInvoiceFixture(sessions ...models.Session) (*InvoiceService, *invoiceSourceStub, *sequenceStub) {
	source := &invoiceSourceStub{sessions: sessions}
	seq := &sequenceStub{}
	students := &studentDirectoryStub{students: map[string]models.Student{
		"stu-a": {ID: "stu-a", Name: "An", PricePerHour: 200000, Active: true},
		"stu-b": {ID: "stu-b", Name: "Bình", PricePerHour: 150000, Active: true},
		"stu-c": {ID: "stu-c", Name: "Chi", PricePerHour: 100000, Active: true},
		"stu-d": {ID: "stu-d", Name: "Dũng", PricePerHour: 180000},
	}}
	billing := config.BillingConfig{
		InvoicePrefix: "INV",
		BankCode:      "970436",
		BankName:      "Vietcombank",
		AccountNumber: "1041819355",
		QRTemplate:    "compact2",
	}
	svc := NewInvoiceService(source, students, seq, billing, nil, nil,
		WithInvoiceClock(func() time.Time { return fixedNow }))
	return svc, source, seq
}

func TestInvoiceSingleStudentMonth(t *testing.T) {
	svc, _, _ := newInvoiceFixture(billedSession("s1", "stu-a", "An", "2025-01", 8, 2, 200000))

	invoice, err := svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentID: "stu-a", Month: "2025-01"})
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceModeSingleStudent, invoice.Mode)
	require.Len(t, invoice.LineItems, 1)
	assert.Equal(t, int64(400000), invoice.TotalAmount)
	assert.Equal(t, 1, invoice.TotalSessions)
	assert.Equal(t, 2.0, invoice.TotalHours)
	assert.Equal(t, "An", invoice.StudentLabel)
	assert.Equal(t, "Tháng 01/2025", invoice.PeriodLabel)
	assert.Equal(t, "INV-202501-001", invoice.InvoiceNumber)
	assert.Equal(t, "08/01/2025", invoice.LineItems[0].Date)
	assert.Equal(t, "Buổi học", invoice.LineItems[0].Description)
	assert.Equal(t, "https://img.vietqr.io/image/970436-1041819355-compact2.png?amount=400000&addInfo=INV202501001", invoice.QRPayload)
	assert.Equal(t, "Vietcombank", invoice.Bank.BankName)
}

func TestInvoiceSingleStudentSkipsPaidAndSortsByDate(t *testing.T) {
	paid := billedSession("s0", "stu-a", "An", "2025-01", 2, 1, 200000)
	paid.Paid = true
	late := billedSession("s2", "stu-a", "An", "2025-01", 20, 1, 200000)
	late.Subject = "Ngữ pháp"
	early := billedSession("s1", "stu-a", "An", "2025-01", 5, 1.5, 200000)
	svc, _, _ := newInvoiceFixture(paid, late, early)

	invoice, err := svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentID: "stu-a", Month: "2025-01"})
	require.NoError(t, err)

	require.Len(t, invoice.LineItems, 2)
	assert.Equal(t, "05/01/2025", invoice.LineItems[0].Date)
	assert.Equal(t, "20/01/2025", invoice.LineItems[1].Date)
	assert.Equal(t, "Ngữ pháp", invoice.LineItems[1].Description)
	assert.Equal(t, int64(500000), invoice.TotalAmount)
	assert.Equal(t, 2.5, invoice.TotalHours)
}

func TestInvoiceAllStudentsIncludesPaid(t *testing.T) {
	bPaid := billedSession("s3", "stu-b", "Bình", "2025-01", 9, 2, 150000)
	bPaid.Paid = true
	svc, source, _ := newInvoiceFixture(
		billedSession("s1", "stu-b", "Bình", "2025-01", 3, 1, 150000),
		billedSession("s2", "stu-a", "An", "2025-01", 4, 2, 200000),
		bPaid,
		billedSession("s4", "stu-d", "Dũng", "2025-01", 5, 1, 180000),
	)

	invoice, err := svc.Generate(context.Background(), dto.GenerateInvoiceRequest{AllStudents: true, Month: "2025-01"})
	require.NoError(t, err)

	assert.Equal(t, []string{"students"}, source.calls)
	require.Len(t, invoice.LineItems, 2)
	assert.Equal(t, "An", invoice.LineItems[0].Label)
	assert.Equal(t, "Bình", invoice.LineItems[1].Label)
	assert.Equal(t, "Bình - Học phí", invoice.LineItems[1].Description)
	assert.Equal(t, 2, invoice.LineItems[1].Sessions)
	assert.Equal(t, int64(450000), invoice.LineItems[1].Amount)
	assert.Equal(t, invoice.LineItems[0].Amount+invoice.LineItems[1].Amount, invoice.TotalAmount)
	assert.Equal(t, int64(850000), invoice.TotalAmount)
	assert.Equal(t, allStudentsLabel, invoice.StudentLabel)
	assert.Equal(t, "INV-202501-001-S", invoice.InvoiceNumber)
}

func TestInvoiceSessionIDsExcludeCancelledAcrossMonths(t *testing.T) {
	cancelled := billedSession("s3", "stu-a", "An", "2025-12", 1, 5, 200000)
	cancelled.Status = models.SessionStatusCancelledByStudent
	paid := billedSession("s2", "stu-a", "An", "2025-12", 10, 1, 200000)
	paid.Paid = true
	svc, _, seq := newInvoiceFixture(
		billedSession("s1", "stu-a", "An", "2025-11", 10, 2, 200000),
		paid,
		cancelled,
	)
	seq.value = 41

	invoice, err := svc.Generate(context.Background(), dto.GenerateInvoiceRequest{
		SessionIDs:  []string{"s1", "s2", "s3"},
		AllStudents: true,
		Month:       "2025-01",
	})
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceModeSessionIDs, invoice.Mode)
	assert.Equal(t, 2, invoice.TotalSessions)
	assert.Equal(t, 3.0, invoice.TotalHours)
	assert.Equal(t, int64(600000), invoice.TotalAmount)
	assert.Len(t, invoice.LineItems, 2)
	assert.Equal(t, []string{"2025-11", "2025-12"}, invoice.Months)
	assert.Equal(t, "Tháng 11, 12/2025", invoice.PeriodLabel)
	assert.Equal(t, "INV-202511-042-M", invoice.InvoiceNumber)
}

func TestInvoiceStudentListLabels(t *testing.T) {
	svc, source, _ := newInvoiceFixture(
		billedSession("s1", "stu-c", "Chi", "2025-01", 3, 1, 100000),
		billedSession("s2", "stu-a", "An", "2025-01", 4, 1, 200000),
		billedSession("s3", "stu-b", "Bình", "2025-01", 5, 1, 150000),
	)

	invoice, err := svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentIDs: []string{"stu-a", "stu-c"}, Month: "2025-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"students"}, source.calls)
	assert.Equal(t, "An và Chi", invoice.StudentLabel)
	assert.Equal(t, int64(300000), invoice.TotalAmount)

	invoice, err = svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentIDs: []string{"stu-a", "stu-b", "stu-c"}, Month: "2025-01"})
	require.NoError(t, err)
	assert.Equal(t, "An và 2 học sinh khác", invoice.StudentLabel)
	assert.Equal(t, "INV-202501-002-S", invoice.InvoiceNumber)
}

func TestInvoiceNoBillableSessions(t *testing.T) {
	cancelled := billedSession("s1", "stu-a", "An", "2025-01", 3, 1, 200000)
	cancelled.Status = models.SessionStatusCancelledByTutor
	svc, _, seq := newInvoiceFixture(cancelled)

	cases := map[string]dto.GenerateInvoiceRequest{
		"only cancelled ids": {SessionIDs: []string{"s1"}},
		"unknown ids":        {SessionIDs: []string{"nope"}},
		"empty month":        {AllStudents: true, Month: "2024-06"},
		"single student":     {StudentID: "stu-a", Month: "2025-01"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrNoBillableSessions))
			var nothing *NoBillableSessionsError
			require.True(t, errors.As(err, &nothing))
			assert.NotEmpty(t, nothing.Criteria)
		})
	}
	assert.Equal(t, int64(0), seq.value)
}

func TestInvoiceRequestValidation(t *testing.T) {
	svc, _, _ := newInvoiceFixture()

	_, err := svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentID: "stu-a"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), dto.GenerateInvoiceRequest{AllStudents: true})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentID: "ghost", Month: "2025-01"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentIDs: []string{"stu-a", "ghost"}, Month: "2025-01"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestInvoiceTotalsAreIdempotent(t *testing.T) {
	svc, _, _ := newInvoiceFixture(
		billedSession("s1", "stu-a", "An", "2025-01", 3, 1.25, 200000),
		billedSession("s2", "stu-b", "Bình", "2025-01", 4, 0.75, 150000),
	)
	req := dto.GenerateInvoiceRequest{AllStudents: true, Month: "2025-01"}

	first, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.Equal(t, first.TotalHours, second.TotalHours)
	assert.Equal(t, first.TotalSessions, second.TotalSessions)
	assert.NotEqual(t, first.InvoiceNumber, second.InvoiceNumber)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "Tháng 01/2025", periodLabel([]string{"2025-01"}))
	assert.Equal(t, "Tháng 11, 12/2025", periodLabel([]string{"2025-11", "2025-12"}))
	assert.Equal(t, "Tháng 12/2024, 01/2025", periodLabel([]string{"2024-12", "2025-01"}))
	assert.Equal(t, "", periodLabel(nil))
}

func TestInvoiceStudentLineRate(t *testing.T) {
	raised := billedSession("s2", "stu-a", "An", "2025-01", 20, 1, 250000)
	svc, _, _ := newInvoiceFixture(
		billedSession("s1", "stu-a", "An", "2025-01", 3, 2, 200000),
		raised,
		billedSession("s3", "stu-b", "Bình", "2025-01", 4, 1, 150000),
		billedSession("s4", "stu-b", "Bình", "2025-01", 11, 2, 150000),
	)

	invoice, err := svc.Generate(context.Background(), dto.GenerateInvoiceRequest{StudentIDs: []string{"stu-a", "stu-b"}, Month: "2025-01"})
	require.NoError(t, err)
	require.Len(t, invoice.LineItems, 2)

	mixed := invoice.LineItems[0]
	assert.Equal(t, "An", mixed.Label)
	assert.Zero(t, mixed.PricePerHour)
	assert.Equal(t, int64(650000), mixed.Amount)
	assert.Equal(t, 3.0, mixed.Hours)

	uniform := invoice.LineItems[1]
	assert.Equal(t, "Bình", uniform.Label)
	assert.Equal(t, int64(150000), uniform.PricePerHour)
	assert.Equal(t, int64(450000), uniform.Amount)
}
