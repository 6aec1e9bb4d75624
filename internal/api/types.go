package api

import (
	"time"

	"github.com/ehving/noticesystem-sub000/internal/versions"
)

// Probe states reported by /health and /readiness.
const (
	StatusHealthy  = "healthy"
	StatusReady    = "ready"
	StatusNotReady = "not ready"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse is the body of GET /readiness. Error carries the first
// store that failed its ping.
type ReadinessResponse struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// VersionResponse is the body of GET /version.
type VersionResponse = versions.VersionInfo
