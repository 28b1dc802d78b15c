package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chatdesk_client"

// Metrics счетчики клиентского слоя. Все методы безопасны для nil-получателя,
// так что компоненты можно собирать без метрик.
type Metrics struct {
	Requests         *prometheus.CounterVec
	Refreshes        *prometheus.CounterVec
	Exchanges        *prometheus.CounterVec
	HistoryLoads     *prometheus.CounterVec
	StreamChunks     prometheus.Counter
	StreamBytes      prometheus.Counter
	ThreadListStale  prometheus.Counter
	StatusPolls      prometheus.Counter
	StatusPollErrors prometheus.Counter
}

// New creates the collectors and registers them in reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Authenticated requests by final HTTP status (0 = transport failure)",
		}, []string{"status"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh exchanges by result",
		}, []string{"result"}),
		Exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_exchanges_total",
			Help:      "Chat exchanges by outcome",
		}, []string{"outcome"}),
		HistoryLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_loads_total",
			Help:      "History loads by source (server, snapshot, greeting)",
		}, []string{"source"}),
		StreamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Chunks applied to streaming bot messages",
		}),
		StreamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_bytes_total",
			Help:      "Bytes received from chat streams",
		}),
		ThreadListStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_list_stale_total",
			Help:      "Thread list refreshes that kept the previous list",
		}),
		StatusPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_status_polls_total",
			Help:      "Job status fetches",
		}),
		StatusPollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_status_poll_errors_total",
			Help:      "Job status fetches that failed",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Requests,
			m.Refreshes,
			m.Exchanges,
			m.HistoryLoads,
			m.StreamChunks,
			m.StreamBytes,
			m.ThreadListStale,
			m.StatusPolls,
			m.StatusPollErrors,
		)
	}
	return m
}

// ObserveRequest records the final status of one logical request.
func (m *Metrics) ObserveRequest(status int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveRefresh records a refresh exchange.
func (m *Metrics) ObserveRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

// ObserveChunk records one applied stream chunk.
func (m *Metrics) ObserveChunk(n int) {
	if m == nil {
		return
	}
	m.StreamChunks.Inc()
	m.StreamBytes.Add(float64(n))
}

// ObserveExchange records how an exchange ended: completed, partial or failed.
func (m *Metrics) ObserveExchange(outcome string) {
	if m == nil {
		return
	}
	m.Exchanges.WithLabelValues(outcome).Inc()
}

// ObserveHistory records where the shown history came from.
func (m *Metrics) ObserveHistory(source string) {
	if m == nil {
		return
	}
	m.HistoryLoads.WithLabelValues(source).Inc()
}

// ObserveStaleThreads records a thread list refresh that fell back.
func (m *Metrics) ObserveStaleThreads() {
	if m == nil {
		return
	}
	m.ThreadListStale.Inc()
}

// ObservePoll records a status fetch.
func (m *Metrics) ObservePoll(err error) {
	if m == nil {
		return
	}
	m.StatusPolls.Inc()
	if err != nil {
		m.StatusPollErrors.Inc()
	}
}
