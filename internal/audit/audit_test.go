package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskops/internal/guardrail"
	"github.com/mbd888/riskops/internal/metrics"
	pgtest "github.com/mbd888/riskops/internal/testutil"
)

var fixed = time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC)

func TestRecorder_RedactsAndStamps(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink, nil).WithClock(func() time.Time { return fixed })

	rec.Record(context.Background(), "user2", "halt_trading",
		map[string]any{"book": "PM_BOOK1", "api_key": "sk-123"}, ResultSuccess)

	entries := sink.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, fixed, e.Timestamp)
	assert.Equal(t, "user2", e.UserID)
	assert.Equal(t, ResultSuccess, e.Result)
	assert.Equal(t, "PM_BOOK1", e.Details["book"])
	assert.Equal(t, guardrail.Redacted, e.Details["api_key"])
	assert.NotEmpty(t, e.ID)
}

type failingSink struct{}

func (failingSink) Append(context.Context, Entry) error         { return errors.New("disk full") }
func (failingSink) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func TestRecorder_SwallowsSinkErrors(t *testing.T) {
	before := testutil.ToFloat64(metrics.AuditWritesFailed)
	NewRecorder(failingSink{}, nil).Record(context.Background(), "u", "halt_trading", nil, ResultFailed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AuditWritesFailed))
}

func TestMemorySink_RecentNewestFirst(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()
	for _, a := range []string{"a", "b", "c"} {
		require.NoError(t, sink.Append(ctx, Entry{Action: a}))
	}

	got, err := sink.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Action)
	assert.Equal(t, "b", got[1].Action)

	all, _ := sink.Recent(ctx, 0)
	assert.Len(t, all, 3)
}

func TestFileSink_AppendAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := OpenFileSink(path)
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, Entry{ID: "1", UserID: "user2", Action: "halt_trading", Result: ResultSuccess, Timestamp: fixed}))
	require.NoError(t, sink.Append(ctx, Entry{ID: "2", UserID: "user1", Action: "halt_trading", Result: ResultFailed, Timestamp: fixed}))

	got, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, ResultFailed, got[0].Result)

	// reopening appends rather than truncating
	again, err := OpenFileSink(path)
	require.NoError(t, err)
	require.NoError(t, again.Append(ctx, Entry{ID: "3", Action: "resume_trading", Result: ResultSuccess}))
	_ = again.Close()

	got, err = sink.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "3", got[0].ID)
}

func TestPostgresSink_AppendAndRecent(t *testing.T) {
	db, cleanup := pgtest.PGTest(t)
	defer cleanup()

	sink := NewPostgresSink(db)
	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, Entry{
		ID: "0b6c8a2e-8f5d-4a8e-9d6c-1e2f3a4b5c6d", Timestamp: fixed, UserID: "user2",
		Action: "halt_trading", Details: map[string]any{"book": "PM_BOOK1"}, Result: ResultSuccess,
	}))

	got, err := sink.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PM_BOOK1", got[0].Details["book"])
	assert.Equal(t, ResultSuccess, got[0].Result)
}
