package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mybankaccount-ledger/internal/api/service"
	"github.com/mybankaccount-ledger/internal/domain/payment"
	"github.com/mybankaccount-ledger/internal/payments"
)

// PaymentHandler handles HTTP requests for bill payment operations
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Create stages a new bill payment for the requesting user
func (h *PaymentHandler) Create(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	p, err := h.paymentService.CreatePayment(c.Request.Context(), payments.CreatePaymentCommand{
		UserID:           userID,
		AccountID:        accountID,
		Type:             payment.Type(req.Type),
		Amount:           amount,
		RecipientName:    req.RecipientName,
		RecipientAccount: req.RecipientAccount,
		Reference:        req.Reference,
		Description:      req.Description,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapPaymentToResponse(p))
}

// Process executes a pending payment
func (h *PaymentHandler) Process(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	paymentID, ok := h.paymentID(c)
	if !ok {
		return
	}

	p, err := h.paymentService.ProcessPayment(c.Request.Context(), paymentID, userID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPaymentToResponse(p))
}

// Cancel cancels a payment that has not started processing
func (h *PaymentHandler) Cancel(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	paymentID, ok := h.paymentID(c)
	if !ok {
		return
	}

	p, err := h.paymentService.CancelPayment(c.Request.Context(), paymentID, userID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPaymentToResponse(p))
}

// GetByID retrieves a payment belonging to the requesting user
func (h *PaymentHandler) GetByID(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	paymentID, ok := h.paymentID(c)
	if !ok {
		return
	}

	p, err := h.paymentService.GetPayment(c.Request.Context(), paymentID, userID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPaymentToResponse(p))
}

// List returns one page of the requesting user's payments
func (h *PaymentHandler) List(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}
	var filterParams PaymentFilterParams
	if err := c.ShouldBindQuery(&filterParams); err != nil {
		RespondBadRequest(c, "Invalid filter parameters")
		return
	}

	from, ok := parseTimeParam(c, "from", filterParams.From)
	if !ok {
		return
	}
	to, ok := parseTimeParam(c, "to", filterParams.To)
	if !ok {
		return
	}

	filter := payment.Filter{
		Status: payment.Status(filterParams.Status),
		Type:   payment.Type(filterParams.Type),
		From:   from,
		To:     to,
	}
	offset := (pagination.Page - 1) * pagination.PerPage

	list, err := h.paymentService.ListPayments(c.Request.Context(), userID, filter, pagination.PerPage, offset)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(list))
	for _, p := range list {
		responses = append(responses, mapPaymentToResponse(p))
	}

	RespondWithData(c, http.StatusOK, responses)
}

// Summary returns the requesting user's payment activity aggregates
func (h *PaymentHandler) Summary(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	summary, err := h.paymentService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, PaymentSummaryResponse{
		PendingCount:   summary.PendingCount,
		CompletedCount: summary.CompletedCount,
		FailedCount:    summary.FailedCount,
		MonthlyTotal:   summary.MonthlyTotal.String(),
	})
}

func (h *PaymentHandler) paymentID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid payment ID")
		return uuid.Nil, false
	}
	return id, true
}
