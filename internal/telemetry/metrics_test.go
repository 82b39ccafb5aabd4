package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMetrics(t *testing.T) {
	m := GetMetrics()
	require.Same(t, m, GetMetrics())

	require.NotNil(t, m.BuildsTotal)
	require.NotNil(t, m.BuildErrorsTotal)
	require.NotNil(t, m.BuildDuration)
	require.NotNil(t, m.OutputBytes)
	require.NotNil(t, m.ReloadClients)
	require.NotNil(t, m.ReloadEventsTotal)
	require.NotNil(t, Tracer())
}
