package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserIDHeader carries the authenticated user's id. Authentication itself
// happens upstream; the id arrives here as trusted data.
const UserIDHeader = "X-User-ID"

// requestUserID extracts the requesting user's id from the header. On
// failure it writes the error response and reports false.
func requestUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(UserIDHeader)
	if raw == "" {
		RespondUnauthorized(c, "Missing "+UserIDHeader+" header")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		RespondUnauthorized(c, "Invalid "+UserIDHeader+" header")
		return uuid.Nil, false
	}
	return userID, true
}

// parseAmount parses a decimal amount from its request string. On failure
// it writes the error response and reports false.
func parseAmount(c *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+raw)
		return decimal.Decimal{}, false
	}
	return amount, true
}

// parseTimeParam parses an optional RFC 3339 query parameter. The zero
// time means the parameter was absent.
func parseTimeParam(c *gin.Context, name, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		RespondBadRequest(c, "Invalid "+name+" parameter, expected RFC 3339")
		return time.Time{}, false
	}
	return t, true
}
