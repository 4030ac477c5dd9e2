package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NumberPrefix starts every generated order number.
const NumberPrefix = "ORD-"

// NewNumber generates an order number like ORD-202602231551-04FD: a
// minute-resolution timestamp plus four random uppercase hex characters.
// Uniqueness is enforced by the store; the ledger retries on collision.
func NewNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return NumberPrefix + now.Format("200601021504") + "-" + suffix
}

// LooksLikeNumber reports whether free text resembles an order number and
// should be routed to a direct lookup.
func LooksLikeNumber(text string) bool {
	return strings.HasPrefix(text, NumberPrefix) && len(text) > len(NumberPrefix)
}
