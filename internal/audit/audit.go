// Package audit records every privileged action attempt in an append-only log.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbd888/riskops/internal/guardrail"
	"github.com/mbd888/riskops/internal/idgen"
	"github.com/mbd888/riskops/internal/metrics"
)

// Result is the outcome recorded for an attempt.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
)

// Entry is one audit record.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Result    Result         `json:"result"`
}

// Sink is an append-only audit store.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder stamps, redacts and appends entries. Append failures are logged
// and counted, never returned, so an audit outage cannot mask the outcome
// of the action being audited.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder wraps sink.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, logger: logger, now: time.Now}
}

// WithClock replaces the time source (tests).
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record appends an entry with redacted details.
func (r *Recorder) Record(ctx context.Context, userID, action string, details map[string]any, result Result) {
	e := Entry{
		ID:        idgen.New(),
		Timestamp: r.now().UTC(),
		UserID:    userID,
		Action:    action,
		Details:   guardrail.Redact(details),
		Result:    result,
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	if err := r.sink.Append(ctx, e); err != nil {
		metrics.AuditWritesFailed.Inc()
		r.logger.Error("audit append failed", "action", action, "user_id", userID, "result", result, "error", err)
	}
}

// Recent proxies to the sink.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return r.sink.Recent(ctx, limit)
}
