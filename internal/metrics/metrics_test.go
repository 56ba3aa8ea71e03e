package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IsASingleton(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	a := NewCollector("archiplane")
	b := NewCollector("archiplane")
	assert.Same(t, a, b)
}

func TestCollector_RecordsApplyChunkDuration(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	c := NewCollector("archiplane")
	c.ApplyChunkDuration.WithLabelValues("ok").Observe(0.05)

	count := testutil.CollectAndCount(c.ApplyChunkDuration)
	require.Equal(t, 1, count)
}

func TestCollector_TracksQueueDepthGauge(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	c := NewCollector("archiplane")
	c.QueueDepth.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(c.QueueDepth))

	c.QueueDepth.Dec()
	assert.Equal(t, float64(2), testutil.ToFloat64(c.QueueDepth))
}
