// Package idgen generates identifiers for confirmations, tickets and audit rows.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const (
	ConfirmPrefix = "CONFIRM_"
	HaltPrefix    = "HALT_"
	ResumePrefix  = "RESUME_"
)

// New returns a random UUIDv4 string.
func New() string {
	return uuid.NewString()
}

// WithPrefix returns prefix followed by n upper-case hex characters taken from
// a fresh random UUID. n is capped at 32.
func WithPrefix(prefix string, n int) string {
	h := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(h) || n <= 0 {
		n = len(h)
	}
	return prefix + h[:n]
}

// Confirmation returns an unguessable pending-confirmation id: CONFIRM_ + 12 hex.
func Confirmation() string {
	return WithPrefix(ConfirmPrefix, 12)
}

// HaltTicket returns an OMS halt ticket id: HALT_ + 8 hex.
func HaltTicket() string {
	return WithPrefix(HaltPrefix, 8)
}

// ResumeTicket returns an OMS resume ticket id.
func ResumeTicket() string {
	return WithPrefix(ResumePrefix, 8)
}
