package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })
	require.Panics(t, func() { RegisterCollectors(reg) }, "double registration")
}

func TestObserveRepository(t *testing.T) {
	before := testutil.ToFloat64(RepositoryOperations.WithLabelValues("houses", "create", "ok"))
	ObserveRepository("houses", "create", "ok", 3*time.Millisecond)
	ObserveRepository("houses", "create", "ok", 5*time.Millisecond)
	require.Equal(t, before+2, testutil.ToFloat64(RepositoryOperations.WithLabelValues("houses", "create", "ok")))
}
