package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ThrottleChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_checks_total",
			Help: "Total number of rate limit checks",
		},
		[]string{"category"},
	)

	ThrottleBlockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_blocked_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"category"},
	)

	ResolveErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_resolve_errors_total",
			Help: "Total number of failed rate limit resolutions (plan lookup failures)",
		},
	)

	RegistrySyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_registry_syncs_total",
			Help: "Total number of administrative instance rate limit syncs",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		ThrottleChecksTotal,
		ThrottleBlockedTotal,
		ResolveErrorsTotal,
		RegistrySyncsTotal,
	)
}
