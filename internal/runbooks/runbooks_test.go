package runbooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_CaseAndWhitespaceInsensitive(t *testing.T) {
	rb := Get("  VaR Breach ")
	require.True(t, rb.Known())
	assert.Equal(t, "VaR Breach Response Protocol", rb.Title)
	assert.Equal(t, SeverityCritical, rb.Severity)
	assert.Len(t, rb.Steps, 8)
}

func TestGet_Alias(t *testing.T) {
	assert.Equal(t, Get("data latency").Title, Get("Data Latency Alert").Title)
}

func TestGet_Unknown(t *testing.T) {
	rb := Get("alien invasion")
	assert.False(t, rb.Known())
	assert.Equal(t, "Unknown Scenario", rb.Title)
	assert.Equal(t, "alien invasion", rb.Scenario)
	assert.Len(t, rb.Steps, 1)
}

func TestGet_ReturnsCopy(t *testing.T) {
	rb := Get("var breach")
	rb.Steps[0] = "mutated"
	rb.Thresholds["red"] = "mutated"

	again := Get("var breach")
	assert.NotEqual(t, "mutated", again.Steps[0])
	assert.NotEqual(t, "mutated", again.Thresholds["red"])
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{
		"concentration risk",
		"data latency",
		"market dislocation",
		"order-flow anomaly",
		"var breach",
	}, List())
}
