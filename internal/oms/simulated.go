package oms

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mbd888/riskops/internal/idgen"
)

// maxRecent bounds how many lifted halts Status reports.
const maxRecent = 20

// Simulated keeps halts in memory.
type Simulated struct {
	mu      sync.Mutex
	halts   map[string]*Halt
	byKey   map[string]string
	order   []string
	now     func() time.Time
	newTick func() string
}

// NewSimulated creates an empty simulated OMS.
func NewSimulated() *Simulated {
	return &Simulated{
		halts:   make(map[string]*Halt),
		byKey:   make(map[string]string),
		now:     time.Now,
		newTick: idgen.HaltTicket,
	}
}

// WithClock replaces the time source (tests).
func (s *Simulated) WithClock(now func() time.Time) *Simulated {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Simulated) Halt(ctx context.Context, req HaltRequest) (*Halt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Targets.Empty() {
		return nil, ErrNoTarget
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.IdempotencyKey != "" {
		if id, ok := s.byKey[req.IdempotencyKey]; ok {
			h := *s.halts[id]
			return &h, nil
		}
	}

	ticket := s.newTick()
	h := &Halt{
		TicketID:    ticket,
		Status:      StatusHalted,
		Targets:     req.Targets,
		Reason:      strings.TrimSpace(req.Reason),
		RequestedBy: req.RequestedBy,
		HaltedAt:    s.now().UTC(),
		Message:     haltedMessage(ticket),
	}
	s.halts[ticket] = h
	s.order = append(s.order, ticket)
	if req.IdempotencyKey != "" {
		s.byKey[req.IdempotencyKey] = ticket
	}

	out := *h
	return &out, nil
}

func (s *Simulated) Resume(ctx context.Context, ticketID, userID, reason string) (*Halt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.halts[ticketID]
	if !ok {
		return nil, ErrUnknownTicket
	}
	if h.Status != StatusHalted {
		return nil, ErrNotHalted
	}
	now := s.now().UTC()
	h.Status = StatusResumed
	h.ResumedAt = &now
	h.ResumedBy = userID
	h.Message = resumedMessage(ticketID)
	h.ResumeNote = strings.TrimSpace(reason)

	out := *h
	return &out, nil
}

func (s *Simulated) Status(ctx context.Context) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := &Status{ActiveHalts: []Halt{}, RecentHalts: []Halt{}, Timestamp: s.now().UTC()}
	for _, id := range slices.Backward(s.order) {
		h := *s.halts[id]
		if h.Status == StatusHalted {
			st.ActiveHalts = append(st.ActiveHalts, h)
		} else if len(st.RecentHalts) < maxRecent {
			st.RecentHalts = append(st.RecentHalts, h)
		}
	}
	return st, nil
}
