package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.SessionDetail, error)
	List(ctx context.Context, query dto.SessionQuery) ([]models.Session, *models.Pagination, error)
	ListUnpaid(ctx context.Context) ([]models.Session, error)
	Months(ctx context.Context) ([]string, error)
	TogglePayment(ctx context.Context, id string, expectedVersion *int) (*models.Session, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.Session, error)
	Edit(ctx context.Context, id string, req dto.UpdateSessionRequest) (*models.Session, error)
	Duplicate(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByMonth(ctx context.Context, month string) (int64, error)
}

// SessionHandler exposes the session lifecycle endpoints.
type SessionHandler struct {
	sessions sessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create godoc
// @Summary Record a teaching session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusCreated, session, session.Version)
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param month query string false "Billing month (YYYY-MM)"
// @Param studentId query string false "Student ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	sessions, pagination, err := h.sessions.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Unpaid godoc
// @Summary List unpaid sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/unpaid [get]
func (h *SessionHandler) Unpaid(c *gin.Context) {
	sessions, err := h.sessions.ListUnpaid(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Months godoc
// @Summary List billing months that have sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/months [get]
func (h *SessionHandler) Months(c *gin.Context) {
	months, err := h.sessions.Months(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, months, nil)
}

// Get godoc
// @Summary Session detail with resolved attachments
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	detail, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusOK, detail, detail.Version)
}

// Edit godoc
// @Summary Edit a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param If-Match header string false "Version the client last read"
// @Param payload body dto.UpdateSessionRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [patch]
func (h *SessionHandler) Edit(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.Version = version
	session, err := h.sessions.Edit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusOK, session, session.Version)
}

// TogglePayment godoc
// @Summary Flip the paid flag of a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param If-Match header string false "Version the client last read"
// @Param payload body dto.TogglePaymentRequest false "Optional version"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/toggle-payment [post]
func (h *SessionHandler) TogglePayment(c *gin.Context) {
	var req dto.TogglePaymentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.sessions.TogglePayment(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusOK, session, session.Version)
}

// UpdateStatus godoc
// @Summary Move a session to another status
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param If-Match header string false "Version the client last read"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/status [put]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	version, err := expectedVersion(c, req.Version)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.Version = version
	session, err := h.sessions.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusOK, session, session.Version)
}

// Duplicate godoc
// @Summary Copy a session one week later
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Router /sessions/{id}/duplicate [post]
func (h *SessionHandler) Duplicate(c *gin.Context) {
	session, err := h.sessions.Duplicate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Versioned(c, http.StatusCreated, session, session.Version)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteByMonth godoc
// @Summary Delete every session of a billing month
// @Tags Sessions
// @Produce json
// @Param month path string true "Billing month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /sessions/months/{month} [delete]
func (h *SessionHandler) DeleteByMonth(c *gin.Context) {
	month := c.Param("month")
	deleted, err := h.sessions.DeleteByMonth(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteByMonthResponse{Month: month, Deleted: deleted}, nil)
}
