// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Intake outcomes.
const (
	IntakeSent     = "sent"
	IntakeHoneypot = "honeypot"
	IntakeInvalid  = "invalid"
	IntakeFailed   = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// CRM metrics
	IncUserRegistered()
	IncLeadCreated(origin string) // origin: "manual", "test", "webhook"
	IncEventCreated()
	IncAPIKeyCreated()
	IncAPIKeyRevoked()
	IncAPIKeyAuthFailed()

	// Public intake metrics
	IncIntake(outcome string)
	IncRateLimited()

	// Engine metrics; status 0 means the request never got a response.
	ObserveEngineRequest(status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
