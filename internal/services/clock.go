package services

import (
	"sync"
	"time"
)

// Clock provides the current time; tests substitute a MockClock
type Clock interface {
	Now() time.Time
}

// RealClock uses the system time
type RealClock struct{}

// Now returns the current system time
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a controllable time
type MockClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewMockClock creates a mock clock fixed at t
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{t: t}
}

// Now returns the fixed time
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Set moves the clock to t
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.t = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}

var (
	_ Clock = RealClock{}
	_ Clock = (*MockClock)(nil)
)
