/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log lines.

	metrics := observability.NewMetrics()
	eng := autopilot.New(..., autopilot.WithLifecycleHooks(metrics.Hooks()))
	http.Handle("/metrics", metrics.Handler())
*/
package observability
