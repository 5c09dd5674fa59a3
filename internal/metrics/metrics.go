// Package metrics exposes wheel counters on the default Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metric names: wheel_<name>

var (
	spins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wheel_spins_total",
		Help: "Accepted spins.",
	})
	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wheel_spin_rejections_total",
		Help: "Rejected spin requests by reason.",
	}, []string{"reason"})
	rewards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wheel_rewards_total",
		Help: "Completed spins by payload.",
	}, []string{"payload"})
	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wheel_config_reloads_total",
		Help: "Config reload attempts by result.",
	}, []string{"result"})
	spinning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wheel_spinning",
		Help: "1 while a spin is in flight.",
	})
)

func SpinAccepted() {
	spins.Inc()
	spinning.Set(1)
}

func SpinRejected(reason string) {
	rejections.WithLabelValues(reason).Inc()
}

func RewardGranted(payload string) {
	rewards.WithLabelValues(payload).Inc()
	spinning.Set(0)
}

// SpinSettled marks the engine idle without a reward, e.g. a completion
// whose index no longer resolves after a reload.
func SpinSettled() {
	spinning.Set(0)
}

func ConfigReloaded(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	reloads.WithLabelValues(result).Inc()
}
