package health

import "context"

// Status is the aggregated service health.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the embedding provider is unreachable. Question
	// CRUD still works, but new embeddings degrade to zero vectors.
	Degraded Status = "degraded"
	// Unhealthy indicates Redis is unreachable and no operation can
	// succeed.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of a single component check.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates per-component check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the components the catalog depends on.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil when no provider is configured.
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// Check probes Redis and the embedding provider. Redis failure makes the
// whole service unhealthy; an embedding failure alone only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks["redis"] = CheckError
		status = Unhealthy
	} else {
		checks["redis"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["embedding"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
