package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/service"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

type fakeInvoiceSrv struct {
	last dto.GenerateInvoiceRequest
	err  error
}

func (f *fakeInvoiceSrv) Generate(_ context.Context, req dto.GenerateInvoiceRequest) (*models.Invoice, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Invoice{InvoiceNumber: "INV-202501-001", TotalAmount: 400000}, nil
}

func TestInvoiceHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeInvoiceSrv{}
	r := gin.New()
	r.POST("/invoices", NewInvoiceHandler(srv).Generate)

	rec := serve(r, http.MethodPost, "/invoices", `{"studentIds":["a","b"],"month":"2025-01"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a", "b"}, srv.last.StudentIDs)
	var invoice models.Invoice
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &invoice))
	assert.Equal(t, "INV-202501-001", invoice.InvoiceNumber)
}

func TestInvoiceHandlerNoBillableSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	noBillable := appErrors.WithDetails(appErrors.ErrNoBillableSessions, nil, "no billable sessions",
		map[string]interface{}{"criteria": "student stu-1, month 2025-01"})
	r := gin.New()
	r.POST("/invoices", NewInvoiceHandler(&fakeInvoiceSrv{err: noBillable}).Generate)

	rec := serve(r, http.MethodPost, "/invoices", `{"studentId":"stu-1","month":"2025-01"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "NO_BILLABLE_SESSIONS", env.Error.Code)
	assert.Equal(t, "student stu-1, month 2025-01", env.Error.Details["criteria"])
}

type fakeStatsSrv struct {
	hit bool
}

func (f *fakeStatsSrv) Monthly(context.Context) ([]models.MonthlyStats, bool, error) {
	return []models.MonthlyStats{{Month: "2025-01", TotalSessions: 2}}, f.hit, nil
}

func (f *fakeStatsSrv) Summary(context.Context) (*models.FinanceSummary, bool, error) {
	return &models.FinanceSummary{CurrentMonth: "2025-01", TotalPaid: 100}, f.hit, nil
}

func TestStatsHandlerReportsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewStatsHandler(&fakeStatsSrv{hit: true})
	r := gin.New()
	r.GET("/stats/monthly", h.Monthly)
	r.GET("/stats/summary", h.Summary)

	rec := serve(r, http.MethodGet, "/stats/monthly", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")

	rec = serve(r, http.MethodGet, "/stats/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary models.FinanceSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &summary))
	assert.Equal(t, int64(100), summary.TotalPaid)
}

type fakeReportSrv struct {
	query dto.ReportQuery
}

func (f *fakeReportSrv) BillingReport(_ context.Context, query dto.ReportQuery) (*service.ReportFile, error) {
	f.query = query
	return &service.ReportFile{Filename: "billing-2025-01.csv", ContentType: "text/csv; charset=utf-8", Content: []byte("a,b\n")}, nil
}

type fakeCalendarSrv struct {
	err error
}

func (f *fakeCalendarSrv) Feed(context.Context, dto.CalendarQuery) (string, error) {
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", f.err
}

func newReportRouter(reports *fakeReportSrv, calendar *fakeCalendarSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(reports, calendar)
	r := gin.New()
	r.GET("/reports/sessions", h.Sessions)
	r.GET("/calendar/sessions.ics", h.Calendar)
	return r
}

func TestReportHandlerSessions(t *testing.T) {
	reports := &fakeReportSrv{}
	r := newReportRouter(reports, &fakeCalendarSrv{})

	rec := serve(r, http.MethodGet, "/reports/sessions?month=2025-01&format=csv", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.ReportQuery{Month: "2025-01", Format: "csv"}, reports.query)
	assert.Equal(t, `attachment; filename="billing-2025-01.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}

func TestReportHandlerCalendar(t *testing.T) {
	r := newReportRouter(&fakeReportSrv{}, &fakeCalendarSrv{})

	rec := serve(r, http.MethodGet, "/calendar/sessions.ics?month=2025-01", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, calendarContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
}

func TestReportHandlerCalendarError(t *testing.T) {
	r := newReportRouter(&fakeReportSrv{}, &fakeCalendarSrv{err: appErrors.Clone(appErrors.ErrValidation, "month is required")})

	rec := serve(r, http.MethodGet, "/calendar/sessions.ics", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingerFunc(func(context.Context) error { return nil }),
	})
	failing := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingerFunc(func(context.Context) error { return nil }),
		"redis":    PingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	r := gin.New()
	r.GET("/ready", healthy.Ready)
	r.GET("/ready-failing", failing.Ready)
	r.GET("/metrics", healthy.Prometheus)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ready", "", nil).Code)

	rec := serve(r, http.MethodGet, "/ready-failing", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])

	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/metrics", "", nil).Code)
}
