package confirm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/mbd888/riskops/internal/audit"
	"github.com/mbd888/riskops/internal/idgen"
	"github.com/mbd888/riskops/internal/metrics"
	"github.com/mbd888/riskops/internal/traces"
)

// maxIDAttempts bounds retries when a generated id is already taken.
const maxIDAttempts = 3

// Authorizer answers whether a user's current role may run an action.
type Authorizer interface {
	CanExecute(userID, action string) bool
}

// Validator checks action arguments; see guardrail.Validate.
type Validator func(action string, args map[string]any) (bool, string)

// Executor performs a confirmed action. It is called at most once per
// confirmation; p.ID is suitable as a downstream idempotency key.
type Executor interface {
	Execute(ctx context.Context, p *Pending) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, p *Pending) (*Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, p *Pending) (*Result, error) {
	return f(ctx, p)
}

// Broker issues and redeems pending confirmations. It is the only writer of
// its Store.
type Broker struct {
	store    Store
	authz    Authorizer
	validate Validator
	exec     Executor
	audit    *audit.Recorder
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time
	newID    func() string
}

// NewBroker wires a broker. The audit recorder may be nil.
func NewBroker(store Store, authz Authorizer, validate Validator, exec Executor, rec *audit.Recorder, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		store:    store,
		authz:    authz,
		validate: validate,
		exec:     exec,
		audit:    rec,
		logger:   logger,
		ttl:      DefaultTTL,
		now:      time.Now,
		newID:    idgen.Confirmation,
	}
}

// WithTTL overrides the confirmation lifetime.
func (b *Broker) WithTTL(ttl time.Duration) *Broker {
	if ttl > 0 {
		b.ttl = ttl
	}
	return b
}

// WithClock replaces the time source (tests).
func (b *Broker) WithClock(now func() time.Time) *Broker {
	b.now = now
	return b
}

// TTL returns the configured confirmation lifetime.
func (b *Broker) TTL() time.Duration {
	return b.ttl
}

// Create checks the user's role and the arguments, then stores a new pending
// confirmation. Role failures return ErrUnauthorized and argument failures a
// *ValidationError; in both cases nothing is stored.
func (b *Broker) Create(ctx context.Context, userID, action string, args map[string]any) (*Pending, error) {
	if !b.authz.CanExecute(userID, action) {
		b.record(ctx, userID, action, args, audit.ResultFailed, "unauthorized", "")
		return nil, ErrUnauthorized
	}
	if b.validate != nil {
		if ok, reason := b.validate(action, args); !ok {
			b.record(ctx, userID, action, args, audit.ResultFailed, "invalid", reason)
			return nil, &ValidationError{Action: action, Reason: reason}
		}
	}

	now := b.now()
	p := &Pending{
		UserID:    userID,
		Action:    action,
		Args:      maps.Clone(args),
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	}
	var err error
	for range maxIDAttempts {
		p.ID = b.newID()
		if err = b.store.Put(ctx, p); !errors.Is(err, ErrDuplicate) {
			break
		}
		b.logger.Warn("confirmation id collision", "confirm_id", p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create confirmation: %w", err)
	}
	metrics.ConfirmationsCreated.WithLabelValues(action).Inc()
	return p, nil
}

// Redeem applies the owner's answer to confirmation id. The entry is gone
// after every call except one that fails with ErrForbidden (or a store
// error). Errors: ErrNotFound, ErrForbidden, ErrExpired, or a wrapped
// ErrExecutionFailed when the executor fails.
func (b *Broker) Redeem(ctx context.Context, id, userID string, answer Answer) (out *Outcome, err error) {
	ctx, span := traces.StartSpan(ctx, "confirm.redeem", traces.ConfirmationID(id), traces.UserID(userID))
	defer func() { traces.End(span, err) }()

	p, err := b.store.Take(ctx, id, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.ConfirmationOutcomes.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	case errors.Is(err, ErrForbidden):
		metrics.ConfirmationOutcomes.WithLabelValues("forbidden").Inc()
		b.record(ctx, userID, "confirm", map[string]any{"confirm_id": id}, audit.ResultFailed, "forbidden", "")
		return nil, ErrForbidden
	case err != nil:
		return nil, err
	}

	span.SetAttributes(traces.Action(p.Action))

	if p.Expired(b.now()) {
		metrics.ConfirmationOutcomes.WithLabelValues("expired").Inc()
		b.record(ctx, userID, p.Action, p.Args, audit.ResultFailed, "expired", "")
		return nil, ErrExpired
	}

	if answer != Approve {
		metrics.ConfirmationOutcomes.WithLabelValues("cancelled").Inc()
		b.record(ctx, userID, p.Action, p.Args, audit.ResultFailed, "cancelled", "")
		return &Outcome{Status: StatusCancelled, Action: p.Action, Message: "Action cancelled by user."}, nil
	}

	// Roles and arguments are checked again: privileges may have changed
	// since the proposal.
	if !b.authz.CanExecute(userID, p.Action) {
		metrics.ConfirmationOutcomes.WithLabelValues("denied").Inc()
		b.record(ctx, userID, p.Action, p.Args, audit.ResultFailed, "denied", "role no longer permitted")
		return &Outcome{Status: StatusDenied, Action: p.Action, Message: "You do not have permission to execute this action."}, nil
	}
	if b.validate != nil {
		if ok, reason := b.validate(p.Action, p.Args); !ok {
			metrics.ConfirmationOutcomes.WithLabelValues("denied").Inc()
			b.record(ctx, userID, p.Action, p.Args, audit.ResultFailed, "denied", reason)
			return &Outcome{Status: StatusDenied, Action: p.Action, Message: "Invalid request: " + reason}, nil
		}
	}

	res, err := b.exec.Execute(ctx, p)
	if err != nil {
		metrics.ConfirmationOutcomes.WithLabelValues("failed").Inc()
		b.record(ctx, userID, p.Action, p.Args, audit.ResultFailed, "execution_failed", err.Error())
		b.logger.Error("confirmed action failed", "confirm_id", id, "action", p.Action, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	if res == nil {
		res = &Result{Status: "ok"}
	}

	metrics.ConfirmationOutcomes.WithLabelValues("executed").Inc()
	details := maps.Clone(p.Args)
	if details == nil {
		details = map[string]any{}
	}
	details["confirm_id"] = id
	details["ticket_id"] = res.TicketID
	if b.audit != nil {
		b.audit.Record(ctx, userID, p.Action, details, audit.ResultSuccess)
	}

	msg := "Action executed successfully."
	if res.Message != "" {
		msg += " " + res.Message
	}
	return &Outcome{Status: StatusExecuted, Action: p.Action, Result: res, Message: msg}, nil
}

// Sweep removes expired entries. Correctness never depends on it running.
func (b *Broker) Sweep(ctx context.Context) (int, error) {
	n, err := b.store.DeleteExpired(ctx, b.now())
	if n > 0 {
		metrics.PendingConfirmationsSwept.Add(float64(n))
	}
	return n, err
}

func (b *Broker) record(ctx context.Context, userID, action string, args map[string]any, result audit.Result, outcome, reason string) {
	if b.audit == nil {
		return
	}
	details := maps.Clone(args)
	if details == nil {
		details = map[string]any{}
	}
	details["outcome"] = outcome
	if reason != "" {
		details["reason_detail"] = reason
	}
	b.audit.Record(ctx, userID, action, details, result)
}
