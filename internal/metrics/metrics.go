// Package metrics exposes prometheus instrumentation for the simulator.
// Everything is a no-op until Init is called with metrics enabled in the
// configuration.
package metrics

import (
	"log"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/serverledge-faas/mabsim/internal/config"
)

var Enabled = false

var registry *prometheus.Registry

var (
	PullsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mabsim_pulls_total",
		Help: "Number of arm selections, per policy and arm.",
	}, []string{"policy", "arm"})

	RewardsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mabsim_rewards_total",
		Help: "Sum of observed rewards, per policy and arm.",
	}, []string{"policy", "arm"})

	CurrentRMSE = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mabsim_rmse",
		Help: "Latest RMSE between estimated means and true probabilities.",
	}, []string{"policy"})
)

// Init registers the collectors if metrics are enabled in the configuration.
func Init() {
	if !config.GetBool(config.METRICS_ENABLED, false) {
		log.Println("Metrics are disabled")
		return
	}
	Enabled = true
	registry = prometheus.NewRegistry()
	registry.MustRegister(PullsTotal, RewardsTotal, CurrentRMSE)
	log.Println("Metrics enabled")
}

// Registry returns the registry backing the /metrics handler. Nil while
// metrics are disabled.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveStep records one completed pull/reward/update cycle.
func ObserveStep(policy string, arm int, reward int, rmse float64) {
	if !Enabled {
		return
	}
	armLabel := strconv.Itoa(arm)
	PullsTotal.WithLabelValues(policy, armLabel).Inc()
	RewardsTotal.WithLabelValues(policy, armLabel).Add(float64(reward))
	CurrentRMSE.WithLabelValues(policy).Set(rmse)
}
