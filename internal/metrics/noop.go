package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncUserRegistered()                      {}
func (n *NoopRecorder) IncLeadCreated(string)                   {}
func (n *NoopRecorder) IncEventCreated()                        {}
func (n *NoopRecorder) IncAPIKeyCreated()                       {}
func (n *NoopRecorder) IncAPIKeyRevoked()                       {}
func (n *NoopRecorder) IncAPIKeyAuthFailed()                    {}
func (n *NoopRecorder) IncIntake(string)                        {}
func (n *NoopRecorder) IncRateLimited()                         {}
func (n *NoopRecorder) ObserveEngineRequest(int, time.Duration) {}
