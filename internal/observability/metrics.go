package observability

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/zwavectl/internal/transaction"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zwavectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zwavectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	serialFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zwavectl",
			Subsystem: "serial",
			Name:      "frames_total",
			Help:      "Serial API frames by direction and kind.",
		},
		[]string{"direction", "kind"},
	)
	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zwavectl",
			Subsystem: "transaction",
			Name:      "settled_total",
			Help:      "Settled transactions by function and outcome.",
		},
		[]string{"function", "outcome"},
	)
	transactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zwavectl",
			Subsystem: "transaction",
			Name:      "duration_seconds",
			Help:      "Time from submit to settle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 65},
		},
		[]string{"function"},
	)
	transactionAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zwavectl",
			Subsystem: "transaction",
			Name:      "attempts",
			Help:      "Send attempts used per settled transaction.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"function"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "zwavectl",
			Subsystem: "queue",
			Name:      "transactions",
			Help:      "Live transactions by stage.",
		},
		[]string{"stage"},
	)
	callbackIDsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "zwavectl",
			Subsystem: "queue",
			Name:      "callback_ids_in_use",
			Help:      "Callback ids held by live transactions.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			serialFrames,
			transactions, transactionDuration, transactionAttempts,
			queueDepth, callbackIDsInUse,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordQueueStats(s transaction.Stats) {
	RegisterMetrics()
	queueDepth.WithLabelValues("queued").Set(float64(s.Queued))
	queueDepth.WithLabelValues("in_flight").Set(float64(s.InFlight))
	queueDepth.WithLabelValues("awaiting_callback").Set(float64(s.AwaitingCallback))
	callbackIDsInUse.Set(float64(s.CallbackIDsInUse))
}

// LinkMetrics records the controller link. It satisfies
// transaction.Observer and driver.FrameObserver.
type LinkMetrics struct {
	stats atomic.Pointer[func() transaction.Stats]
}

func NewLinkMetrics(stats func() transaction.Stats) *LinkMetrics {
	RegisterMetrics()
	m := &LinkMetrics{}
	m.Bind(stats)
	return m
}

// Bind sets the source that refreshes the queue gauges after every settle.
// It may be called while outcomes are being recorded.
func (m *LinkMetrics) Bind(stats func() transaction.Stats) {
	if stats == nil {
		m.stats.Store(nil)
		return
	}
	m.stats.Store(&stats)
}

func (m *LinkMetrics) ObserveFrame(direction, kind string) {
	serialFrames.WithLabelValues(direction, kind).Inc()
}

func (m *LinkMetrics) Settled(o transaction.Outcome) {
	fn := o.Function.String()
	transactions.WithLabelValues(fn, o.Kind.String()).Inc()
	transactionDuration.WithLabelValues(fn).Observe(o.Duration.Seconds())
	if o.Attempts > 0 {
		transactionAttempts.WithLabelValues(fn).Observe(float64(o.Attempts))
	}
	if stats := m.stats.Load(); stats != nil {
		RecordQueueStats((*stats)())
	}
}
