package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	OrdersCompleted prometheus.Counter
	CartConflicts   prometheus.Counter
	Recommendations *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	orders := prometheus.NewCounter(prometheus.CounterOpts{Name: "hunger_orders_completed_total"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{Name: "hunger_cart_conflicts_total"})
	recs := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hunger_recommendations_total"},
		[]string{"strategy"},
	)

	r.MustRegister(orders, conflicts, recs)
	return &Registry{
		reg:             r,
		OrdersCompleted: orders,
		CartConflicts:   conflicts,
		Recommendations: recs,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
