package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mybankaccount-ledger/internal/domain/account"
	"github.com/mybankaccount-ledger/internal/domain/movement"
	"github.com/mybankaccount-ledger/internal/query"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, userID uuid.UUID, accountType account.Type, currency string) (*account.Account, error) {
	args := m.Called(ctx, userID, accountType, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccountByNumber(ctx context.Context, number string) (*account.Account, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountService) SetAccountActive(ctx context.Context, number string, active bool) (*account.Account, error) {
	args := m.Called(ctx, number, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func accountRouter(h *AccountHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/accounts", h.Create)
	r.GET("/accounts/:number", h.GetByNumber)
	r.GET("/accounts/:number/summary", h.Summary)
	r.GET("/accounts/:number/movements", h.Movements)
	r.POST("/accounts/:number/deactivate", h.Deactivate)
	r.POST("/accounts/:number/activate", h.Activate)
	return r
}

func TestAccountHandler_Create(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		router := accountRouter(NewAccountHandler(testLogger(), mockService, new(MockQueryService)))

		acc, err := account.NewAccount("100200300400", userID, account.TypeChecking, "USD")
		require.NoError(t, err)

		mockService.On("CreateAccount", mock.Anything, userID, account.TypeChecking, "USD").
			Return(acc, nil)

		rr := postJSON(t, router, "/accounts", CreateAccountRequest{
			UserID:   userID.String(),
			Type:     "CHECKING",
			Currency: "USD",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		response := decodeResponse(t, rr)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "100200300400", data["number"])
		assert.Equal(t, "0", data["balance"])
		assert.Equal(t, true, data["active"])
	})

	t.Run("UnknownType", func(t *testing.T) {
		mockService := new(MockAccountService)
		router := accountRouter(NewAccountHandler(testLogger(), mockService, new(MockQueryService)))

		rr := postJSON(t, router, "/accounts", CreateAccountRequest{
			UserID:   userID.String(),
			Type:     "CRYPTO",
			Currency: "USD",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAccountHandler_GetByNumber(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockAccountService)
		router := accountRouter(NewAccountHandler(testLogger(), mockService, new(MockQueryService)))

		mockService.On("GetAccountByNumber", mock.Anything, "999999999999").
			Return(nil, account.ErrAccountNotFound{Ref: "999999999999"})

		req, _ := http.NewRequest(http.MethodGet, "/accounts/999999999999", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		response := decodeResponse(t, rr)
		errorField := response["error"].(map[string]interface{})
		assert.Equal(t, "ACCOUNT_NOT_FOUND", errorField["code"])
	})
}

func TestAccountHandler_Summary(t *testing.T) {
	mockQuery := new(MockQueryService)
	router := accountRouter(NewAccountHandler(testLogger(), new(MockAccountService), mockQuery))

	mockQuery.On("GetBalanceSummary", mock.Anything, "100200300400").Return(&query.BalanceSummary{
		AccountNumber: "100200300400",
		Balance:       decimal.NewFromInt(350),
		Currency:      "USD",
		TotalIncoming: decimal.NewFromInt(500),
		TotalOutgoing: decimal.NewFromInt(150),
		MovementCount: 9,
	}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/accounts/100200300400/summary", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	response := decodeResponse(t, rr)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "350", data["balance"])
	assert.Equal(t, "500", data["total_incoming"])
	assert.Equal(t, float64(9), data["movement_count"])
}

func TestAccountHandler_Movements(t *testing.T) {
	t.Run("PaginatedHistory", func(t *testing.T) {
		mockQuery := new(MockQueryService)
		router := accountRouter(NewAccountHandler(testLogger(), new(MockAccountService), mockQuery))

		mockQuery.On("GetMovementsForAccount", mock.Anything, "100200300400",
			mock.MatchedBy(func(f movement.Filter) bool { return f.Status == movement.StatusCompleted }),
			2, 10).
			Return(&query.HistoryPage{
				Movements: []*movement.Event{
					{Reference: "TXNHISTORYAAAAA", Status: movement.StatusCompleted},
				},
				Total:   21,
				Page:    2,
				PerPage: 10,
			}, nil)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/100200300400/movements?page=2&per_page=10&status=COMPLETED", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		response := decodeResponse(t, rr)
		meta := response["meta"].(map[string]interface{})
		assert.Equal(t, float64(2), meta["page"])
		assert.Equal(t, float64(3), meta["total_pages"])
		assert.Equal(t, float64(21), meta["total_items"])
	})

	t.Run("BadFromParameter", func(t *testing.T) {
		mockQuery := new(MockQueryService)
		router := accountRouter(NewAccountHandler(testLogger(), new(MockAccountService), mockQuery))

		req, _ := http.NewRequest(http.MethodGet, "/accounts/100200300400/movements?from=yesterday", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockQuery.AssertNotCalled(t, "GetMovementsForAccount",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAccountHandler_Deactivate(t *testing.T) {
	t.Run("NonZeroBalance", func(t *testing.T) {
		mockService := new(MockAccountService)
		router := accountRouter(NewAccountHandler(testLogger(), mockService, new(MockQueryService)))

		mockService.On("SetAccountActive", mock.Anything, "100200300400", false).
			Return(nil, account.ErrNonZeroBalance)

		req, _ := http.NewRequest(http.MethodPost, "/accounts/100200300400/deactivate", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		response := decodeResponse(t, rr)
		errorField := response["error"].(map[string]interface{})
		assert.Equal(t, "NON_ZERO_BALANCE", errorField["code"])
	})
}
