package account

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		number := "482915736208"
		userID := uuid.New()

		beforeCreation := time.Now()
		acc, err := NewAccount(number, userID, TypeChecking, "USD")
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, acc)

		assert.NotEqual(t, uuid.Nil, acc.ID, "Account ID should not be nil")
		assert.Equal(t, number, acc.Number)
		assert.Equal(t, userID, acc.UserID)
		assert.True(t, acc.Balance.IsZero(), "New accounts open with a zero balance")
		assert.Equal(t, "USD", acc.Currency)
		assert.Equal(t, TypeChecking, acc.Type)
		assert.True(t, acc.Active, "New accounts should be active")

		assert.WithinDuration(t, beforeCreation, acc.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)
		assert.WithinDuration(t, acc.CreatedAt, acc.UpdatedAt, time.Millisecond)
	})

	t.Run("InvalidType", func(t *testing.T) {
		acc, err := NewAccount("482915736208", uuid.New(), Type("JOINT"), "USD")

		assert.ErrorIs(t, err, ErrInvalidAccountType)
		assert.Nil(t, acc)
	})

	t.Run("InvalidCurrency", func(t *testing.T) {
		acc, err := NewAccount("482915736208", uuid.New(), TypeSavings, "DOLLARS")

		assert.ErrorIs(t, err, ErrInvalidCurrencyFormat)
		assert.Nil(t, acc)
	})
}

func TestValidType(t *testing.T) {
	assert.True(t, ValidType(TypeChecking))
	assert.True(t, ValidType(TypeSavings))
	assert.True(t, ValidType(TypeBusiness))
	assert.False(t, ValidType(Type("JOINT")))
	assert.False(t, ValidType(Type("")))
}

func TestAccount_CanWithdraw(t *testing.T) {
	acc := &Account{Balance: decimal.NewFromInt(100)}

	assert.True(t, acc.CanWithdraw(decimal.NewFromInt(100)))
	assert.True(t, acc.CanWithdraw(decimal.NewFromInt(50)))
	assert.False(t, acc.CanWithdraw(decimal.NewFromFloat(100.01)))
}

func TestAccount_Deactivate(t *testing.T) {
	t.Run("SuccessfulDeactivation", func(t *testing.T) {
		acc := &Account{
			ID:        uuid.New(),
			Balance:   decimal.Zero,
			Active:    true,
			UpdatedAt: time.Now().Add(-time.Hour),
		}

		err := acc.Deactivate()

		require.NoError(t, err)
		assert.False(t, acc.Active)
		assert.WithinDuration(t, time.Now(), acc.UpdatedAt, time.Second)
	})

	t.Run("RejectedWithNonZeroBalance", func(t *testing.T) {
		acc := &Account{
			ID:      uuid.New(),
			Balance: decimal.NewFromFloat(0.01),
			Active:  true,
		}

		err := acc.Deactivate()

		assert.ErrorIs(t, err, ErrNonZeroBalance)
		assert.True(t, acc.Active, "Account should remain active when deactivation is rejected")
	})
}

func TestAccount_Activate(t *testing.T) {
	acc := &Account{
		ID:        uuid.New(),
		Balance:   decimal.Zero,
		Active:    false,
		UpdatedAt: time.Now().Add(-time.Hour),
	}

	acc.Activate()

	assert.True(t, acc.Active)
	assert.WithinDuration(t, time.Now(), acc.UpdatedAt, time.Second)
}
