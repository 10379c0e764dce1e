package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mybankaccount-ledger/internal/api/service"
	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	queryService   service.QueryService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService, queryService service.QueryService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		queryService:   queryService,
		logger:         logger,
	}
}

// Create opens a new account for a user
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), userID, account.Type(req.Type), req.Currency)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByNumber retrieves an account by its number, returning 404 if not found
func (h *AccountHandler) GetByNumber(c *gin.Context) {
	acc, err := h.accountService.GetAccountByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Summary returns the account's balance and lifetime movement totals
func (h *AccountHandler) Summary(c *gin.Context) {
	summary, err := h.queryService.GetBalanceSummary(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBalanceSummaryToResponse(summary))
}

// Movements returns one page of the account's archived movement history
func (h *AccountHandler) Movements(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}
	var filterParams HistoryFilterParams
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

	filter := movement.Filter{
		From:   from,
		To:     to,
		Status: movement.Status(filterParams.Status),
		Kind:   movement.Kind(filterParams.Kind),
	}

	page, err := h.queryService.GetMovementsForAccount(c.Request.Context(), c.Param("number"), filter, pagination.Page, pagination.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]MovementEventResponse, 0, len(page.Movements))
	for _, event := range page.Movements {
		responses = append(responses, mapEventToResponse(event))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, page.Page, page.PerPage, int(page.Total))
}

// Deactivate marks the account inactive. Only zero-balance accounts may be
// deactivated.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	acc, err := h.accountService.SetAccountActive(c.Request.Context(), c.Param("number"), false)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Activate marks the account active again
func (h *AccountHandler) Activate(c *gin.Context) {
	acc, err := h.accountService.SetAccountActive(c.Request.Context(), c.Param("number"), true)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}
