package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/response"
)

type invoiceService interface {
	Generate(ctx context.Context, req dto.GenerateInvoiceRequest) (*models.Invoice, error)
}

// InvoiceHandler exposes invoice generation.
type InvoiceHandler struct {
	invoices invoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(invoices invoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Generate godoc
// @Summary Build an invoice from sessions
// @Description Selectors are applied in order: sessionIds, allStudents, studentIds, studentId. The invoice is not stored.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body dto.GenerateInvoiceRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /invoices [post]
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req dto.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	invoice, err := h.invoices.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}
