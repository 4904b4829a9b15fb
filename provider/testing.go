package provider

import (
	"encoding/json"
	"sync"
	"time"
)

// MockCallbacks implements CoreInPageCallbacks for tests and dev tooling.
// Every approval prompt gets the configured answer and everything the
// bridge sends out is recorded for assertions.
type MockCallbacks struct {
	// Approve is the answer to every approval prompt.
	Approve bool

	mu            sync.Mutex
	approvals     []DappApprovalParams
	notifications []Notification
}

// Notification is a decoded ProviderMessage received by MockCallbacks.
type Notification struct {
	Event ProviderEvent   `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewMockCallbacks returns callbacks that answer approve to every prompt.
func NewMockCallbacks(approve bool) *MockCallbacks {
	return &MockCallbacks{Approve: approve}
}

// ApproveDapp records the prompt and answers with the configured decision
// after a short pause that stands in for the user deciding.
func (m *MockCallbacks) ApproveDapp(params DappApprovalParams) bool {
	time.Sleep(time.Millisecond)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals = append(m.approvals, params)
	return m.Approve
}

// Notify decodes and records the notification. Panics on malformed
// messages since those are bridge defects.
func (m *MockCallbacks) Notify(messageHex string) {
	data, err := DecodeHex(messageHex)
	if err != nil {
		panic("notification is not valid hex: " + err.Error())
	}
	var notification Notification
	if err := json.Unmarshal(data, &notification); err != nil {
		panic("notification is not a provider message: " + err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notification)
}

// Approvals returns the prompts shown so far.
func (m *MockCallbacks) Approvals() []DappApprovalParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DappApprovalParams(nil), m.approvals...)
}

// Notifications returns the decoded notifications received so far.
func (m *MockCallbacks) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.notifications...)
}

// MockPageContext builds a request context for a test page. An empty URL
// defaults to https://example.com.
func MockPageContext(pageURL string, callbacks CoreInPageCallbacks) InPageRequestContext {
	if pageURL == "" {
		pageURL = "https://example.com"
	}
	return InPageRequestContext{PageURL: pageURL, Callbacks: callbacks}
}
