package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the process-local counters. Each role process has its
// own registry, served on that role's /metrics endpoint.
type Registry struct {
	reg *prometheus.Registry

	StoreReads      prometheus.Counter
	StoreWrites     prometheus.Counter
	StoreCorrupt    prometheus.Counter
	PollTicks       *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	OrdersCreated   prometheus.Counter
	OrdersActivated prometheus.Counter
	OrdersServed    prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	reads := prometheus.NewCounter(prometheus.CounterOpts{Name: "menuquick_store_reads_total"})
	writes := prometheus.NewCounter(prometheus.CounterOpts{Name: "menuquick_store_writes_total"})
	corrupt := prometheus.NewCounter(prometheus.CounterOpts{Name: "menuquick_store_corrupt_reads_total"})
	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "menuquick_poll_ticks_total"}, []string{"role"})
	notifs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "menuquick_notifications_total"}, []string{"kind"})
	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "menuquick_orders_created_total"})
	activated := prometheus.NewCounter(prometheus.CounterOpts{Name: "menuquick_orders_activated_total"})
	served := prometheus.NewCounter(prometheus.CounterOpts{Name: "menuquick_orders_served_total"})

	r.MustRegister(reads, writes, corrupt, ticks, notifs, created, activated, served)
	return &Registry{
		reg:             r,
		StoreReads:      reads,
		StoreWrites:     writes,
		StoreCorrupt:    corrupt,
		PollTicks:       ticks,
		Notifications:   notifs,
		OrdersCreated:   created,
		OrdersActivated: activated,
		OrdersServed:    served,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
