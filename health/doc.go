// Package health reports the health of the query cache daemon.
//
// Checkers report one component each: the shared tier, the memory budget
// of the local tier, and anything else registered by the composition
// root. An Aggregator runs them together; a failing critical checker makes
// the process unready while a failing optional one only degrades it.
//
//	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
//	agg.Register(memChecker, health.Optional)
//	agg.Register(tierChecker, health.Critical)
//
//	r := mux.NewRouter()
//	health.RegisterHandlers(r, agg)
//
// The handlers serve /healthz (liveness), /readyz (readiness) and /health
// (JSON details).
package health
