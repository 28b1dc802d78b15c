package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest(200)
	m.ObserveRequest(200)
	m.ObserveRequest(401)
	m.ObserveRefresh(true)
	m.ObserveRefresh(false)
	m.ObserveChunk(5)
	m.ObserveChunk(7)
	m.ObserveExchange("completed")
	m.ObserveHistory("snapshot")
	m.ObserveStaleThreads()
	m.ObservePoll(nil)
	m.ObservePoll(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StreamChunks))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.StreamBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exchanges.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryLoads.WithLabelValues("snapshot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ThreadListStale))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StatusPolls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusPollErrors))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(500)
		m.ObserveRefresh(false)
		m.ObserveChunk(1)
		m.ObserveExchange("failed")
		m.ObserveHistory("greeting")
		m.ObserveStaleThreads()
		m.ObservePoll(nil)
	})
}

func TestNew_NilRegisterer(t *testing.T) {
	m := New(nil)
	m.ObserveRequest(200)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("200")))
}
