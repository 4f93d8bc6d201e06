package notify

import (
	"context"
	"sync"
)

// CapturedSend records one Send call made against the mock sender.
type CapturedSend struct {
	Channel    string
	Payload    Payload
	Recipients []string
}

// MockSender captures sends for assertions in tests. It can be configured to
// fail to exercise the never-propagate contract.
type MockSender struct {
	mu         sync.Mutex
	sends      []CapturedSend
	shouldFail bool
	failError  string
}

// NewMockSender creates a mock sender that succeeds by default.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// FailWith makes every subsequent Send report a failure.
func (m *MockSender) FailWith(errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = true
	m.failError = errMsg
}

// Send implements Sender.
func (m *MockSender) Send(_ context.Context, channel string, payload Payload, recipients []string) DeliveryResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sends = append(m.sends, CapturedSend{
		Channel:    channel,
		Payload:    payload,
		Recipients: recipients,
	})

	if m.shouldFail {
		return DeliveryResult{Success: false, Error: m.failError}
	}
	return DeliveryResult{Success: true}
}

// Sends returns a copy of all captured sends.
func (m *MockSender) Sends() []CapturedSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CapturedSend, len(m.sends))
	copy(out, m.sends)
	return out
}

// SendCount returns the number of captured sends.
func (m *MockSender) SendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

// Reset clears captured sends and failure configuration.
func (m *MockSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = nil
	m.shouldFail = false
	m.failError = ""
}
