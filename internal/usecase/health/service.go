package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
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

// Service coordinates health checks.
type Service struct {
	engine EnginePinger
	lock   LockPinger
}

// New creates a Service. lock can be nil when leases live in-process or on disk.
func New(engine EnginePinger, lock LockPinger) *Service {
	return &Service{engine: engine, lock: lock}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.engine.Ping(ctx); err != nil {
		checks["engine"] = CheckError
	} else {
		checks["engine"] = CheckOK
	}

	if s.lock != nil {
		if err := s.lock.Ping(ctx); err != nil {
			checks["lock"] = CheckError
		} else {
			checks["lock"] = CheckOK
		}
	}

	// Without the engine nothing works; a lost lease store only blocks remaps.
	status := Healthy
	switch {
	case checks["engine"] == CheckError:
		status = Unhealthy
	case checks["lock"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
