package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the service, backed by its own
// registry so tests can construct it repeatedly.
type Collector struct {
	registry *prometheus.Registry

	// Delivery metrics
	MessagesRouted prometheus.Counter
	Deliveries     prometheus.Counter
	DeliveryDrops  prometheus.Counter

	// Session metrics
	OpenSessions prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewCollector creates the metrics collector. Singleton: repeated calls
// return the same instance to avoid duplicate registration in tests.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	messagesRouted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_routed_total",
		Help:      "Total number of messages durably persisted by the delivery router",
	})

	deliveries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Total number of live session pushes",
	})

	deliveryDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_drops_total",
		Help:      "Total number of pushes dropped because a session was unreachable",
	})

	openSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_sessions",
		Help:      "Number of currently open real-time sessions",
	})

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	registry.MustRegister(messagesRouted, deliveries, deliveryDrops, openSessions, httpRequests)

	globalCollector = &Collector{
		registry:       registry,
		MessagesRouted: messagesRouted,
		Deliveries:     deliveries,
		DeliveryDrops:  deliveryDrops,
		OpenSessions:   openSessions,
		HTTPRequests:   httpRequests,
	}
	return globalCollector
}

// Handler returns the exposition handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
