// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OpenRounds       prometheus.Gauge
	RoundsPosted     prometheus.Counter
	MessagesReceived prometheus.Counter
	CorrectGuesses   prometheus.Counter
	GuessLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		OpenRounds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_rounds",
			Help:      "Number of rounds still waiting for a correct guess",
		}),
		RoundsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_posted_total",
			Help:      "Total number of quote rounds posted",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of channel messages seen",
		}),
		CorrectGuesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correct_guesses_total",
			Help:      "Total number of round-winning guesses",
		}),
		GuessLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "guess_latency_seconds",
			Help:      "Guess handling latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.OpenRounds,
		m.RoundsPosted,
		m.MessagesReceived,
		m.CorrectGuesses,
		m.GuessLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("requests", expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.requestCount
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) IncRoundsPosted() {
	m.metrics.RoundsPosted.Inc()
	m.metrics.OpenRounds.Inc()
}

func (m *Monitor) IncCorrectGuesses() {
	m.metrics.CorrectGuesses.Inc()
}

func (m *Monitor) DecOpenRounds() {
	m.metrics.OpenRounds.Dec()
}

// SetOpenRounds seeds the gauge from durable state, so rounds that
// were open before a restart stay counted.
func (m *Monitor) SetOpenRounds(n int) {
	m.metrics.OpenRounds.Set(float64(n))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveGuessLatency(duration time.Duration) {
	m.metrics.GuessLatency.Observe(duration.Seconds())
}
