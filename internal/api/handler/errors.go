package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/payment"
)

// respondDomainError maps a domain error to its HTTP status and stable
// error code. Anything unrecognized is treated as an internal error and
// logged with its cause.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidAmount):
		RespondWithError(c, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, movement.ErrSameAccountTransfer):
		RespondWithError(c, http.StatusBadRequest, "SAME_ACCOUNT_TRANSFER", err.Error())
	case errors.Is(err, movement.ErrCurrencyMismatch):
		RespondWithError(c, http.StatusBadRequest, "CURRENCY_MISMATCH", err.Error())
	case errors.Is(err, payment.ErrInvalidPaymentType):
		RespondWithError(c, http.StatusBadRequest, "INVALID_PAYMENT_TYPE", err.Error())
	case errors.Is(err, payment.ErrRecipientRequired):
		RespondWithError(c, http.StatusBadRequest, "RECIPIENT_REQUIRED", err.Error())
	case errors.Is(err, payment.ErrAmountExceedsLimit{}):
		RespondWithError(c, http.StatusBadRequest, "AMOUNT_EXCEEDS_LIMIT", err.Error())
	case errors.Is(err, account.ErrInvalidAccountType), errors.Is(err, account.ErrInvalidCurrencyFormat):
		RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())

	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondWithError(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND", err.Error())
	case errors.Is(err, movement.ErrMovementNotFound{}):
		RespondWithError(c, http.StatusNotFound, "MOVEMENT_NOT_FOUND", err.Error())
	case errors.Is(err, payment.ErrPaymentNotFound{}):
		RespondWithError(c, http.StatusNotFound, "PAYMENT_NOT_FOUND", err.Error())

	case errors.Is(err, account.ErrInsufficientFunds):
		RespondWithError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, account.ErrAccountInactive{}):
		RespondWithError(c, http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE", err.Error())
	case errors.Is(err, account.ErrNonZeroBalance):
		RespondWithError(c, http.StatusUnprocessableEntity, "NON_ZERO_BALANCE", err.Error())

	case errors.Is(err, movement.ErrInvalidStateTransition{}), errors.Is(err, payment.ErrInvalidStateTransition{}):
		RespondWithError(c, http.StatusConflict, "INVALID_STATE_TRANSITION", err.Error())

	case errors.Is(err, payment.ErrNotPaymentOwner{}), errors.Is(err, payment.ErrNotAccountOwner{}):
		RespondWithError(c, http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource")

	case errors.Is(err, movement.ErrDuplicateReference):
		RespondWithError(c, http.StatusServiceUnavailable, "DUPLICATE_REFERENCE", err.Error())

	default:
		var dupNumber account.ErrDuplicateNumber
		if errors.As(err, &dupNumber) {
			// Generated numbers collide only under a race; retryable.
			RespondWithError(c, http.StatusServiceUnavailable, "DUPLICATE_REFERENCE", err.Error())
			return
		}
		var opFailed movement.OperationFailedError
		if errors.As(err, &opFailed) {
			logger.Error("Movement operation failed", "reference", opFailed.Reference, "error", opFailed.Err)
			RespondWithError(c, http.StatusInternalServerError, "OPERATION_FAILED", "The operation could not be completed")
			return
		}
		logger.Error("Unhandled error", "error", err)
		RespondInternalError(c)
	}
}
