// Package health implements the gateway's liveness and readiness probes.
//
// Liveness only proves the process answers HTTP. Readiness runs the
// registered checks (the chat backend's version endpoint, and the history
// store when it holds a database connection) concurrently, each bounded by
// the configured check timeout, and answers 503 when any of them fails.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("backend", health.BackendCheck(client, collector.SetBackendHealthy))
//	checker.RegisterCheck("history", health.StoreCheck(store))
//	mux.Handle("/health", checker.LivenessHandler())
//	mux.Handle("/ready", checker.ReadinessHandler())
package health
