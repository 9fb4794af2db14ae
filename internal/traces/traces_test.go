package traces

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoEndpointIsNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	shutdown, err := Init(context.Background(), "", "test", logger)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpan_EndWithError(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "confirm.redeem", Action("halt_trading"), UserID("user2"))
	require.NotNil(t, ctx)
	End(span, errors.New("boom"))
	End(span, nil)
}
