package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	m := NewInMemory()

	m.IncUserRegistered()
	m.IncLeadCreated("manual")
	m.IncLeadCreated("test")
	m.IncLeadCreated("webhook")
	m.IncLeadCreated("")
	m.IncEventCreated()
	m.IncAPIKeyCreated()
	m.IncAPIKeyRevoked()
	m.IncAPIKeyAuthFailed()
	m.IncIntake(IntakeSent)
	m.IncIntake(IntakeHoneypot)
	m.IncIntake(IntakeInvalid)
	m.IncIntake(IntakeFailed)
	m.IncIntake("unknown")
	m.IncRateLimited()

	snap := m.Snapshot()
	if snap.UsersRegistered != 1 {
		t.Errorf("UsersRegistered = %d", snap.UsersRegistered)
	}
	if snap.LeadsCreatedManual != 2 || snap.LeadsCreatedTest != 1 || snap.LeadsCreatedWebhook != 1 {
		t.Errorf("lead counters = %d/%d/%d", snap.LeadsCreatedManual, snap.LeadsCreatedTest, snap.LeadsCreatedWebhook)
	}
	if snap.EventsCreated != 1 || snap.APIKeysCreated != 1 || snap.APIKeysRevoked != 1 || snap.APIKeyAuthFailed != 1 {
		t.Errorf("unexpected CRM counters: %+v", snap)
	}
	if snap.IntakeSent != 1 || snap.IntakeHoneypot != 1 || snap.IntakeInvalid != 1 || snap.IntakeFailed != 1 {
		t.Errorf("unexpected intake counters: %+v", snap)
	}
	if snap.RateLimited != 1 {
		t.Errorf("RateLimited = %d", snap.RateLimited)
	}
}

func TestInMemoryRecorder_EngineRequests(t *testing.T) {
	m := NewInMemory()

	tests := []struct {
		status int
	}{
		{200}, {204}, {401}, {429}, {500}, {502}, {0},
	}
	for _, tt := range tests {
		m.ObserveEngineRequest(tt.status, 10*time.Millisecond)
	}

	snap := m.Snapshot()
	if snap.EngineRequests2xx != 2 || snap.EngineRequests4xx != 2 || snap.EngineRequests5xx != 2 || snap.EngineRequestsNetwork != 1 {
		t.Errorf("engine buckets = %d/%d/%d/%d", snap.EngineRequests2xx, snap.EngineRequests4xx, snap.EngineRequests5xx, snap.EngineRequestsNetwork)
	}
	if snap.EngineDurationCount != 7 {
		t.Errorf("EngineDurationCount = %d, want 7", snap.EngineDurationCount)
	}
	if snap.EngineDurationTotalNs != (70 * time.Millisecond).Nanoseconds() {
		t.Errorf("EngineDurationTotalNs = %d", snap.EngineDurationTotalNs)
	}
}

func TestInMemoryRecorder_Concurrent(t *testing.T) {
	m := NewInMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncEventCreated()
			m.IncRateLimited()
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.EventsCreated != 50 || snap.RateLimited != 50 {
		t.Errorf("concurrent counters = %d/%d, want 50/50", snap.EventsCreated, snap.RateLimited)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoop()
	r.IncLeadCreated("manual")
	r.ObserveEngineRequest(200, time.Second)
}
