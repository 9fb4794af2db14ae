package oms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mbd888/riskops/internal/upstream"
)

// HTTP talks to a live OMS.
type HTTP struct {
	c *upstream.Client
}

// NewHTTP wraps an upstream client pointed at the OMS.
func NewHTTP(c *upstream.Client) *HTTP {
	return &HTTP{c: c}
}

func (h *HTTP) Halt(ctx context.Context, req HaltRequest) (*Halt, error) {
	if req.Targets.Empty() {
		return nil, ErrNoTarget
	}
	body := struct {
		Desk        string `json:"desk,omitempty"`
		Book        string `json:"book,omitempty"`
		Symbol      string `json:"symbol,omitempty"`
		Reason      string `json:"reason"`
		RequestedBy string `json:"requested_by"`
	}{req.Desk, req.Book, req.Symbol, req.Reason, req.RequestedBy}

	r := upstream.Request{Method: http.MethodPost, Path: "/halt", Body: body}
	if req.IdempotencyKey != "" {
		r.Header = http.Header{"Idempotency-Key": {req.IdempotencyKey}}
	}

	var out Halt
	if err := h.c.Do(ctx, r, &out); err != nil {
		return nil, err
	}
	if out.TicketID == "" || !strings.EqualFold(out.Status, StatusHalted) {
		return nil, fmt.Errorf("%w: halt returned ticket %q status %q", ErrUnconfirmed, out.TicketID, out.Status)
	}
	out.Status = StatusHalted
	if out.Message == "" {
		out.Message = haltedMessage(out.TicketID)
	}
	return &out, nil
}

func (h *HTTP) Resume(ctx context.Context, ticketID, userID, reason string) (*Halt, error) {
	body := map[string]string{"ticket_id": ticketID, "reason": reason, "requested_by": userID}
	var out Halt
	if err := h.c.Do(ctx, upstream.Request{Method: http.MethodPost, Path: "/resume", Body: body}, &out); err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusNotFound:
				return nil, errors.Join(ErrUnknownTicket, err)
			case http.StatusConflict:
				return nil, errors.Join(ErrNotHalted, err)
			}
		}
		return nil, err
	}
	if !strings.EqualFold(out.Status, StatusResumed) {
		return nil, fmt.Errorf("%w: resume of %s returned status %q", ErrUnconfirmed, ticketID, out.Status)
	}
	out.Status = StatusResumed
	if out.TicketID == "" {
		out.TicketID = ticketID
	}
	if out.Message == "" {
		out.Message = resumedMessage(ticketID)
	}
	return &out, nil
}

func (h *HTTP) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := h.c.Do(ctx, upstream.Request{Path: "/halt/status"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
