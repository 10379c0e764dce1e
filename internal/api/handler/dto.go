package handler

import (
	"time"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/domain/payment"
	"github.com/mybankaccount-ledger/internal/query"
)

// CreateAccountRequest represents a request to create a new account
type CreateAccountRequest struct {
	UserID   string `json:"user_id" binding:"required,uuid"`
	Type     string `json:"type" binding:"required,oneof=CHECKING SAVINGS BUSINESS"`
	Currency string `json:"currency" binding:"required,len=3"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	UserID    string `json:"user_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	Type      string `json:"type"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// DepositRequest represents a deposit into an account
type DepositRequest struct {
	AccountNumber string `json:"account_number" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description,omitempty" binding:"max=500"`
}

// WithdrawRequest represents a withdrawal from an account
type WithdrawRequest struct {
	AccountNumber string `json:"account_number" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description,omitempty" binding:"max=500"`
}

// TransferRequest represents a transfer between two accounts
type TransferRequest struct {
	FromAccountNumber string `json:"from_account_number" binding:"required"`
	ToAccountNumber   string `json:"to_account_number" binding:"required"`
	Amount            string `json:"amount" binding:"required"`
	Description       string `json:"description,omitempty" binding:"max=500"`
}

// MovementResponse represents a movement in API responses
type MovementResponse struct {
	Reference     string `json:"reference"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Fee           string `json:"fee"`
	Currency      string `json:"currency"`
	Description   string `json:"description,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	ProcessedAt   string `json:"processed_at,omitempty"`
}

// MovementEventResponse represents an archived movement in history responses
type MovementEventResponse struct {
	Reference         string `json:"reference"`
	Kind              string `json:"kind"`
	Status            string `json:"status"`
	FromAccountNumber string `json:"from_account_number,omitempty"`
	ToAccountNumber   string `json:"to_account_number,omitempty"`
	Amount            string `json:"amount"`
	Fee               string `json:"fee"`
	Currency          string `json:"currency"`
	Description       string `json:"description,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
	CreatedAt         string `json:"created_at"`
	ProcessedAt       string `json:"processed_at,omitempty"`
}

// BalanceSummaryResponse represents an account's aggregated position
type BalanceSummaryResponse struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
	TotalIncoming string `json:"total_incoming"`
	TotalOutgoing string `json:"total_outgoing"`
	MovementCount int64  `json:"movement_count"`
}

// CreatePaymentRequest represents a request to create a bill payment
type CreatePaymentRequest struct {
	AccountID        string `json:"account_id" binding:"required,uuid"`
	Type             string `json:"type" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	RecipientName    string `json:"recipient_name" binding:"required"`
	RecipientAccount string `json:"recipient_account,omitempty"`
	Reference        string `json:"reference,omitempty"`
	Description      string `json:"description,omitempty" binding:"max=500"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                string `json:"id"`
	AccountID         string `json:"account_id"`
	Type              string `json:"type"`
	Status            string `json:"status"`
	Amount            string `json:"amount"`
	RecipientName     string `json:"recipient_name"`
	RecipientAccount  string `json:"recipient_account,omitempty"`
	Reference         string `json:"reference,omitempty"`
	CorrelationID     string `json:"correlation_id"`
	MovementReference string `json:"movement_reference,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
	Description       string `json:"description,omitempty"`
	CreatedAt         string `json:"created_at"`
	ProcessedAt       string `json:"processed_at,omitempty"`
}

// PaymentSummaryResponse aggregates a user's payment activity
type PaymentSummaryResponse struct {
	PendingCount   int64  `json:"pending_count"`
	CompletedCount int64  `json:"completed_count"`
	FailedCount    int64  `json:"failed_count"`
	MonthlyTotal   string `json:"monthly_total"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// HistoryFilterParams represents history filter query parameters
type HistoryFilterParams struct {
	Status string `form:"status,omitempty"`
	Kind   string `form:"kind,omitempty"`
	From   string `form:"from,omitempty"` // RFC 3339
	To     string `form:"to,omitempty"`   // RFC 3339
}

// PaymentFilterParams represents payment list filter query parameters
type PaymentFilterParams struct {
	Status string `form:"status,omitempty"`
	Type   string `form:"type,omitempty"`
	From   string `form:"from,omitempty"` // RFC 3339
	To     string `form:"to,omitempty"`   // RFC 3339
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Number:    acc.Number,
		UserID:    acc.UserID.String(),
		Balance:   acc.Balance.String(),
		Currency:  acc.Currency,
		Type:      string(acc.Type),
		Active:    acc.Active,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapMovementToResponse(m *movement.Movement) MovementResponse {
	response := MovementResponse{
		Reference:     m.Reference,
		Kind:          string(m.Kind),
		Status:        string(m.Status),
		Amount:        m.Amount.String(),
		Fee:           m.Fee.String(),
		Currency:      m.Currency,
		Description:   m.Description,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
	if m.ProcessedAt != nil {
		response.ProcessedAt = m.ProcessedAt.Format(time.RFC3339)
	}
	return response
}

func mapEventToResponse(e *movement.Event) MovementEventResponse {
	response := MovementEventResponse{
		Reference:         e.Reference,
		Kind:              string(e.Kind),
		Status:            string(e.Status),
		FromAccountNumber: e.FromAccountNumber,
		ToAccountNumber:   e.ToAccountNumber,
		Amount:            e.Amount.String(),
		Fee:               e.Fee.String(),
		Currency:          e.Currency,
		Description:       e.Description,
		FailureReason:     e.FailureReason,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
	}
	if e.ProcessedAt != nil {
		response.ProcessedAt = e.ProcessedAt.Format(time.RFC3339)
	}
	return response
}

func mapBalanceSummaryToResponse(s *query.BalanceSummary) BalanceSummaryResponse {
	return BalanceSummaryResponse{
		AccountNumber: s.AccountNumber,
		Balance:       s.Balance.String(),
		Currency:      s.Currency,
		TotalIncoming: s.TotalIncoming.String(),
		TotalOutgoing: s.TotalOutgoing.String(),
		MovementCount: s.MovementCount,
	}
}

func mapPaymentToResponse(p *payment.Payment) PaymentResponse {
	response := PaymentResponse{
		ID:                p.ID.String(),
		AccountID:         p.AccountID.String(),
		Type:              string(p.Type),
		Status:            string(p.Status),
		Amount:            p.Amount.String(),
		RecipientName:     p.RecipientName,
		RecipientAccount:  p.RecipientAccount,
		Reference:         p.Reference,
		CorrelationID:     p.CorrelationID,
		MovementReference: p.MovementReference,
		FailureReason:     p.FailureReason,
		Description:       p.Description,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
	}
	if p.ProcessedAt != nil {
		response.ProcessedAt = p.ProcessedAt.Format(time.RFC3339)
	}
	return response
}
