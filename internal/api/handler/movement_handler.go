package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/mybankaccount-ledger/internal/api/service"
	"github.com/mybankaccount-ledger/internal/engine"
)

// MovementHandler handles HTTP requests for movement operations
type MovementHandler struct {
	movementService service.MovementService
	queryService    service.QueryService
	logger          *slog.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(logger *slog.Logger, movementService service.MovementService, queryService service.QueryService) *MovementHandler {
	return &MovementHandler{
		movementService: movementService,
		queryService:    queryService,
		logger:          logger,
	}
}

// Deposit credits an account
func (h *MovementHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	m, err := h.movementService.Deposit(c.Request.Context(), engine.DepositCommand{
		AccountNumber: req.AccountNumber,
		Amount:        amount,
		Description:   req.Description,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapMovementToResponse(m))
}

// Withdraw debits an account
func (h *MovementHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	m, err := h.movementService.Withdraw(c.Request.Context(), engine.WithdrawCommand{
		AccountNumber: req.AccountNumber,
		Amount:        amount,
		Description:   req.Description,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapMovementToResponse(m))
}

// Transfer moves funds between two accounts
func (h *MovementHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}

	m, err := h.movementService.Transfer(c.Request.Context(), engine.TransferCommand{
		FromAccountNumber: req.FromAccountNumber,
		ToAccountNumber:   req.ToAccountNumber,
		Amount:            amount,
		Description:       req.Description,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapMovementToResponse(m))
}

// Cancel cancels a movement that is still PENDING
func (h *MovementHandler) Cancel(c *gin.Context) {
	m, err := h.movementService.CancelMovement(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapMovementToResponse(m))
}

// GetByReference retrieves a movement from the system of record
func (h *MovementHandler) GetByReference(c *gin.Context) {
	m, err := h.queryService.GetMovementByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapMovementToResponse(m))
}
