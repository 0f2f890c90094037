// Package health aggregates component availability checks for the engine's
// readiness endpoint.
package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; retrieval may still return
	// best-effort results.
	Degraded Status = "degraded"
	// Unhealthy indicates no index backend is reachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks across index backends and the embedding
// provider.
type Service struct {
	indexes   map[string]IndexPinger
	embedding EmbeddingChecker
}

// New creates a Service. indexes maps a component name (usually the backend
// or collection group name) to its pinger. embedding can be nil.
func New(indexes map[string]IndexPinger, embedding EmbeddingChecker) *Service {
	return &Service{indexes: indexes, embedding: embedding}
}

// Check runs health checks against all components. All index backends down
// means retrieval cannot work at all, so the report is Unhealthy; any other
// failure combination degrades.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	indexesDown := 0
	for _, name := range s.indexNames() {
		if err := s.indexes[name].Ping(ctx); err != nil {
			checks[name] = CheckError
			indexesDown++
		} else {
			checks[name] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if len(s.indexes) > 0 && indexesDown == len(s.indexes) {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) indexNames() []string {
	names := make([]string, 0, len(s.indexes))
	for name := range s.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
