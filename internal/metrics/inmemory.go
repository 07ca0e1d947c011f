package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered uint64

	LeadsCreatedManual  uint64
	LeadsCreatedTest    uint64
	LeadsCreatedWebhook uint64
	EventsCreated       uint64

	APIKeysCreated   uint64
	APIKeysRevoked   uint64
	APIKeyAuthFailed uint64

	IntakeSent     uint64
	IntakeHoneypot uint64
	IntakeInvalid  uint64
	IntakeFailed   uint64
	RateLimited    uint64

	EngineRequests2xx     uint64
	EngineRequests4xx     uint64
	EngineRequests5xx     uint64
	EngineRequestsNetwork uint64
	EngineDurationCount   uint64
	EngineDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory and serves the /metrics endpoint.
type InMemoryRecorder struct {
	usersRegistered atomic.Uint64

	leadsManual   atomic.Uint64
	leadsTest     atomic.Uint64
	leadsWebhook  atomic.Uint64
	eventsCreated atomic.Uint64

	apiKeysCreated   atomic.Uint64
	apiKeysRevoked   atomic.Uint64
	apiKeyAuthFailed atomic.Uint64

	intakeSent     atomic.Uint64
	intakeHoneypot atomic.Uint64
	intakeInvalid  atomic.Uint64
	intakeFailed   atomic.Uint64
	rateLimited    atomic.Uint64

	engine2xx        atomic.Uint64
	engine4xx        atomic.Uint64
	engine5xx        atomic.Uint64
	engineNetwork    atomic.Uint64
	engineCount      atomic.Uint64
	engineDurationNs atomic.Int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered:       m.usersRegistered.Load(),
		LeadsCreatedManual:    m.leadsManual.Load(),
		LeadsCreatedTest:      m.leadsTest.Load(),
		LeadsCreatedWebhook:   m.leadsWebhook.Load(),
		EventsCreated:         m.eventsCreated.Load(),
		APIKeysCreated:        m.apiKeysCreated.Load(),
		APIKeysRevoked:        m.apiKeysRevoked.Load(),
		APIKeyAuthFailed:      m.apiKeyAuthFailed.Load(),
		IntakeSent:            m.intakeSent.Load(),
		IntakeHoneypot:        m.intakeHoneypot.Load(),
		IntakeInvalid:         m.intakeInvalid.Load(),
		IntakeFailed:          m.intakeFailed.Load(),
		RateLimited:           m.rateLimited.Load(),
		EngineRequests2xx:     m.engine2xx.Load(),
		EngineRequests4xx:     m.engine4xx.Load(),
		EngineRequests5xx:     m.engine5xx.Load(),
		EngineRequestsNetwork: m.engineNetwork.Load(),
		EngineDurationCount:   m.engineCount.Load(),
		EngineDurationTotalNs: m.engineDurationNs.Load(),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() { m.usersRegistered.Add(1) }

// IncLeadCreated increments the lead counter for origin.
func (m *InMemoryRecorder) IncLeadCreated(origin string) {
	switch origin {
	case "test":
		m.leadsTest.Add(1)
	case "webhook":
		m.leadsWebhook.Add(1)
	default:
		m.leadsManual.Add(1)
	}
}

// IncEventCreated increments the timeline event counter.
func (m *InMemoryRecorder) IncEventCreated() { m.eventsCreated.Add(1) }

// IncAPIKeyCreated increments the API key created counter.
func (m *InMemoryRecorder) IncAPIKeyCreated() { m.apiKeysCreated.Add(1) }

// IncAPIKeyRevoked increments the API key revoked counter.
func (m *InMemoryRecorder) IncAPIKeyRevoked() { m.apiKeysRevoked.Add(1) }

// IncAPIKeyAuthFailed increments the failed API key authentication counter.
func (m *InMemoryRecorder) IncAPIKeyAuthFailed() { m.apiKeyAuthFailed.Add(1) }

// IncIntake increments the counter for an intake outcome.
func (m *InMemoryRecorder) IncIntake(outcome string) {
	switch outcome {
	case IntakeSent:
		m.intakeSent.Add(1)
	case IntakeHoneypot:
		m.intakeHoneypot.Add(1)
	case IntakeInvalid:
		m.intakeInvalid.Add(1)
	case IntakeFailed:
		m.intakeFailed.Add(1)
	}
}

// IncRateLimited increments the rejected-by-rate-limit counter.
func (m *InMemoryRecorder) IncRateLimited() { m.rateLimited.Add(1) }

// ObserveEngineRequest records one Engine round trip.
func (m *InMemoryRecorder) ObserveEngineRequest(status int, duration time.Duration) {
	switch {
	case status == 0:
		m.engineNetwork.Add(1)
	case status >= 500:
		m.engine5xx.Add(1)
	case status >= 400:
		m.engine4xx.Add(1)
	default:
		m.engine2xx.Add(1)
	}
	m.engineCount.Add(1)
	m.engineDurationNs.Add(duration.Nanoseconds())
}
