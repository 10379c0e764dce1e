// Package refgen produces collision-free external identifiers: movement
// references, payment correlation ids, account numbers, and customer
// numbers. Candidates come from a cryptographically strong source and are
// checked against their namespace before acceptance.
package refgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// referenceAlphabet omits ambiguous symbols (0/O, 1/I). 32 symbols over
// 12 positions gives a keyspace of 32^12, about 1.2e18 combinations.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	movementReferenceLength = 12
	correlationIDLength     = 8
	accountNumberLength     = 12
	customerNumberLength    = 11
)

// ErrExhausted indicates the generator could not find an unused identifier
// within its attempt budget. Collisions at realistic store sizes are
// vanishingly rare, so this signals a broken uniqueness check or a
// pathological store and surfaces to callers as service unavailability.
var ErrExhausted = errors.New("reference generation exhausted retries")

// ExistsFunc reports whether a candidate identifier is already taken in
// its namespace
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Generator creates unique external identifiers
type Generator struct {
	maxAttempts int
}

// NewGenerator creates a generator with the given retry budget per identifier
func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Generator{maxAttempts: maxAttempts}
}

// MovementReference generates a unique "TXN"-prefixed movement reference
func (g *Generator) MovementReference(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.generate(ctx, exists, func() (string, error) {
		s, err := randomString(referenceAlphabet, movementReferenceLength)
		return "TXN" + s, err
	})
}

// PaymentCorrelationID generates a unique "PAY-"-prefixed payment identifier
func (g *Generator) PaymentCorrelationID(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.generate(ctx, exists, func() (string, error) {
		s, err := randomString(referenceAlphabet, correlationIDLength)
		return "PAY-" + s, err
	})
}

// AccountNumber generates a unique 12-digit account number
func (g *Generator) AccountNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.generate(ctx, exists, func() (string, error) {
		return randomDigits(accountNumberLength)
	})
}

// CustomerNumber generates a unique 11-digit customer number. The identity
// system that owns customers lives outside this core; the namespace check
// is injected like all the others.
func (g *Generator) CustomerNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.generate(ctx, exists, func() (string, error) {
		return randomDigits(customerNumberLength)
	})
}

func (g *Generator) generate(ctx context.Context, exists ExistsFunc, candidate func() (string, error)) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		ref, err := candidate()
		if err != nil {
			return "", fmt.Errorf("failed to draw random identifier: %w", err)
		}

		taken, err := exists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("failed to check identifier uniqueness: %w", err)
		}
		if !taken {
			return ref, nil
		}
	}

	return "", ErrExhausted
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// randomDigits draws a fixed-length digit string with a non-zero first
// digit, so numbers keep their printed length.
func randomDigits(length int) (string, error) {
	buf := make([]byte, length)
	first, err := rand.Int(rand.Reader, big.NewInt(9))
	if err != nil {
		return "", err
	}
	buf[0] = byte('1' + first.Int64())

	ten := big.NewInt(10)
	for i := 1; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
