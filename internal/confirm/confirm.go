// Package confirm implements the two-phase protocol guarding privileged
// actions: a proposal creates a short-lived pending confirmation owned by
// the proposing user, and only that user can redeem it, at most once,
// before it expires.
package confirm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("confirmation not found")
	ErrForbidden       = errors.New("confirmation belongs to another user")
	ErrExpired         = errors.New("confirmation expired")
	ErrExecutionFailed = errors.New("action execution failed")
	ErrUnauthorized    = errors.New("role not permitted for action")
	ErrInvalidAnswer   = errors.New("answer must be yes or no")
	ErrDuplicate       = errors.New("confirmation id already exists")
)

// ValidationError carries the guardrail's reason for rejecting arguments.
type ValidationError struct {
	Action string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s request: %s", e.Action, e.Reason)
}

// DefaultTTL is how long a pending confirmation stays redeemable.
const DefaultTTL = 300 * time.Second

// Pending is a proposed privileged action awaiting its owner's answer.
type Pending struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	Args      map[string]any `json:"args"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Expired reports whether now is past the expiry deadline.
func (p *Pending) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Answer is the owner's decision.
type Answer string

const (
	Approve Answer = "yes"
	Deny    Answer = "no"
)

// ParseAnswer accepts yes/no and a few synonyms, case-insensitively.
func ParseAnswer(s string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "approve", "confirm":
		return Approve, nil
	case "no", "n", "deny", "cancel":
		return Deny, nil
	default:
		return "", ErrInvalidAnswer
	}
}

// Status is a terminal redemption result.
type Status string

const (
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
	StatusDenied    Status = "denied"
)

// Result is what the downstream executor reports.
type Result struct {
	TicketID string `json:"ticket_id,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// Outcome is the terminal state a redemption reached.
type Outcome struct {
	Status  Status  `json:"status"`
	Action  string  `json:"action"`
	Result  *Result `json:"result,omitempty"`
	Message string  `json:"message"`
}
