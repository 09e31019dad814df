package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// HealthzPath answers load balancer health checks.
	HealthzPath = RootPath + "healthz"

	// MetricsPath exposes the prometheus metrics.
	MetricsPath = RootPath + "metrics"

	// APIPath is the root of the authenticated API.
	APIPath = RootPath + "api/v1"
)
