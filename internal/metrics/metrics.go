package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})

	SlowConsumers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_slow_consumers_dropped_total",
		Help: "Connections dropped because their send buffer was full",
	})

	Hires = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_hires_total",
		Help: "Hire attempts by outcome",
	}, []string{"outcome"})

	ChatEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_chat_events_total",
		Help: "Inbound chat events by type and result",
	}, []string{"type", "result"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_events_published_total",
		Help: "Domain events handed to the broker by result",
	}, []string{"result"})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(Connections, SlowConsumers, Hires, ChatEvents, EventsPublished)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
