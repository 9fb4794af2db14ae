package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_UnknownTool(t *testing.T) {
	_, err := Parse("drop_tables", map[string]any{"table": "audit_log"})
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestParse_GetMetricDefaultsWindow(t *testing.T) {
	inv, err := Parse(NameGetMetric, map[string]any{"book": "PM_BOOK1", "metric": "VaR"})
	require.NoError(t, err)

	m, ok := inv.(GetMetric)
	require.True(t, ok)
	assert.Equal(t, "PM_BOOK1", m.Book)
	assert.Equal(t, DefaultWindow, m.Window)
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := Parse(NameGetExplain, map[string]any{})
	assert.ErrorIs(t, err, ErrMissingArgument)

	_, err = Parse(NameGetMetric, map[string]any{"book": "PM_BOOK1", "metric": 7})
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestParse_HaltKeepsRawArgs(t *testing.T) {
	args := map[string]any{"book": "PM_BOOK1", "symbol": "aapl", "reason": "fat finger on open", "extra": true}
	inv, err := Parse(NameHaltTrading, args)
	require.NoError(t, err)

	h := inv.(HaltTrading)
	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, []string{"book 'PM_BOOK1'", "symbol 'AAPL'"}, h.Targets())
	assert.Equal(t, args, inv.Args())

	// callers cannot mutate the invocation through Args
	inv.Args()["book"] = "HF_BOOK1"
	assert.Equal(t, "PM_BOOK1", inv.Args()["book"])
}

func TestParse_StressShock(t *testing.T) {
	inv, err := Parse(NameRunStress, map[string]any{"book": "PM_BOOK1", "shock_pct": -0.25})
	require.NoError(t, err)
	s := inv.(RunStress)
	require.NotNil(t, s.ShockPct)
	assert.InDelta(t, -0.25, *s.ShockPct, 1e-9)

	inv, err = Parse(NameRunStress, map[string]any{"book": "PM_BOOK1", "shock_pct": "-0.25"})
	require.NoError(t, err)
	assert.Nil(t, inv.(RunStress).ShockPct)
	assert.Equal(t, "-0.25", inv.Args()["shock_pct"])
}

func TestSpecs_OnlyHaltRequiresConfirmation(t *testing.T) {
	var flagged []string
	for _, s := range Specs() {
		if s.RequiresConfirmation {
			flagged = append(flagged, s.Tool.Name)
		}
	}
	assert.Equal(t, []string{NameHaltTrading}, flagged)
	assert.True(t, RequiresConfirmation(NameHaltTrading))
	assert.False(t, RequiresConfirmation(NameRunStress))
	assert.False(t, RequiresConfirmation("nope"))
}

func TestSpecs_EveryNameParses(t *testing.T) {
	for _, s := range Specs() {
		_, err := Parse(s.Tool.Name, nil)
		assert.NotErrorIs(t, err, ErrUnknownTool, s.Tool.Name)
	}
}

func TestSpecs_SchemaRequiredFields(t *testing.T) {
	spec, ok := Lookup(NameHaltTrading)
	require.True(t, ok)
	assert.Equal(t, []string{"reason"}, spec.Tool.InputSchema.Required)

	b, err := json.Marshal(spec.Tool.InputSchema)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"symbol"`)
}
