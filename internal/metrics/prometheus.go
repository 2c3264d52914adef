package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Collectors exist from package init so instrumented code can use them in
// tests without registration. Register exposes them on a registry.
var (
	TokenOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewdesk_oauth_token_operations_total",
		Help: "OAuth token lifecycle operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	ExternalCallRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewdesk_external_call_retries_total",
		Help: "Retries of outbound provider calls by operation.",
	}, []string{"operation"})

	GenerationFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewdesk_generation_fallbacks_total",
		Help: "Reply generations answered with the fallback text.",
	})

	ReviewsIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewdesk_reviews_ingested_total",
		Help: "Reviews inserted by ingestion.",
	})

	ReviewsApprovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewdesk_reviews_approved_total",
		Help: "Reviews whose final response was approved.",
	})
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Register registers the custom collectors on reg.
// It should be called once at application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	collectors := map[string]prometheus.Collector{
		"TokenOperationsTotal":     TokenOperationsTotal,
		"ExternalCallRetriesTotal": ExternalCallRetriesTotal,
		"GenerationFallbacksTotal": GenerationFallbacksTotal,
		"ReviewsIngestedTotal":     ReviewsIngestedTotal,
		"ReviewsApprovedTotal":     ReviewsApprovedTotal,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}

// ObserveTokenOperation counts one lifecycle operation.
func ObserveTokenOperation(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	TokenOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
