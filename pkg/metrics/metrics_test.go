package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDispatch(t *testing.T) {
	m := New()

	m.ObserveDispatch("propertyPublishing", "direct-fallback", OutcomeSucceeded, 120*time.Millisecond)
	m.ObserveDispatch("propertyPublishing", "direct-fallback", OutcomeSucceeded, 80*time.Millisecond)
	m.ObserveDispatch("propertyPublishing", "temporal", OutcomeStarted, 5*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.dispatch.WithLabelValues("propertyPublishing", "direct-fallback", OutcomeSucceeded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dispatch.WithLabelValues("propertyPublishing", "temporal", OutcomeStarted)), 0)

	expected := `
# HELP partnerflow_workflow_fallback_total Dispatches that fell back to direct execution because the engine was unreachable.
# TYPE partnerflow_workflow_fallback_total counter
partnerflow_workflow_fallback_total{workflow="partnerOnboarding"} 1
`

	m.ObserveFallback("partnerOnboarding")
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "partnerflow_workflow_fallback_total"))
}
