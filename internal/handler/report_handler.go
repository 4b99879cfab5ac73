package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/service"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/response"
)

const calendarContentType = "text/calendar; charset=utf-8"

type reportService interface {
	BillingReport(ctx context.Context, query dto.ReportQuery) (*service.ReportFile, error)
}

type calendarService interface {
	Feed(ctx context.Context, query dto.CalendarQuery) (string, error)
}

// ReportHandler serves downloadable exports of a billing month.
type ReportHandler struct {
	reports  reportService
	calendar calendarService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService, calendar calendarService) *ReportHandler {
	return &ReportHandler{reports: reports, calendar: calendar}
}

// Sessions godoc
// @Summary Download the billing report of a month
// @Tags Reports
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce application/pdf
// @Param month query string true "Billing month (YYYY-MM)"
// @Param format query string false "csv (default), xlsx or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/sessions [get]
func (h *ReportHandler) Sessions(c *gin.Context) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	file, err := h.reports.BillingReport(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// Calendar godoc
// @Summary iCalendar feed of a month's sessions
// @Tags Reports
// @Produce text/calendar
// @Param month query string true "Billing month (YYYY-MM)"
// @Success 200 {string} string
// @Failure 400 {object} response.Envelope
// @Router /calendar/sessions.ics [get]
func (h *ReportHandler) Calendar(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	feed, err := h.calendar.Feed(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, calendarContentType, []byte(feed))
}
