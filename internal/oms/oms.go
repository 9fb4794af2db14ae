// Package oms halts and resumes trading through the order management system.
package oms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoTarget      = errors.New("oms: at least one of desk, book, or symbol must be specified")
	ErrUnknownTicket = errors.New("oms: unknown halt ticket")
	ErrNotHalted     = errors.New("oms: ticket is not halted")
	// ErrUnconfirmed means the OMS answered 2xx without confirming the
	// state change.
	ErrUnconfirmed = errors.New("oms: response did not confirm the change")
)

// Halt statuses.
const (
	StatusHalted  = "halted"
	StatusResumed = "resumed"
)

// Targets names what a halt applies to.
type Targets struct {
	Desk   string `json:"desk,omitempty"`
	Book   string `json:"book,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// Empty reports whether no target is set.
func (t Targets) Empty() bool {
	return strings.TrimSpace(t.Desk) == "" && strings.TrimSpace(t.Book) == "" && strings.TrimSpace(t.Symbol) == ""
}

// HaltRequest asks the OMS to stop trading. IdempotencyKey makes retries of
// the same request return the original ticket.
type HaltRequest struct {
	Targets
	Reason         string `json:"reason"`
	RequestedBy    string `json:"requested_by"`
	IdempotencyKey string `json:"-"`
}

// Halt is a halt ticket.
type Halt struct {
	TicketID    string     `json:"ticket_id"`
	Status      string     `json:"status"`
	Targets     Targets    `json:"targets"`
	Reason      string     `json:"reason"`
	RequestedBy string     `json:"requested_by"`
	HaltedAt    time.Time  `json:"halted_at"`
	ResumedAt   *time.Time `json:"resumed_at,omitempty"`
	ResumedBy   string     `json:"resumed_by,omitempty"`
	ResumeNote  string     `json:"resume_reason,omitempty"`
	Message     string     `json:"message"`
}

// Status lists active and recently lifted halts.
type Status struct {
	ActiveHalts []Halt    `json:"active_halts"`
	RecentHalts []Halt    `json:"recent_halts"`
	Timestamp   time.Time `json:"timestamp"`
}

// Client is the OMS surface.
type Client interface {
	Halt(ctx context.Context, req HaltRequest) (*Halt, error)
	Resume(ctx context.Context, ticketID, userID, reason string) (*Halt, error)
	Status(ctx context.Context) (*Status, error)
}

func haltedMessage(ticket string) string {
	return fmt.Sprintf("Trading halted successfully. Ticket: %s", ticket)
}

func resumedMessage(ticket string) string {
	return fmt.Sprintf("Trading resumed. Ticket: %s", ticket)
}
