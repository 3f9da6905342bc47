package conversation

import (
	"context"
	"sync"
	"time"
)

type slot struct {
	step Step
	at   time.Time
}

// Memory keeps steps in process memory. Steps older than TTL read as absent.
type Memory struct {
	mu    sync.Mutex
	slots map[int64]slot
	ttl   time.Duration

	// Now is the clock used for TTL checks. Defaults to time.Now.
	Now func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store; ttl <= 0 disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{slots: make(map[int64]slot), ttl: ttl, Now: time.Now}
}

func (m *Memory) Set(ctx context.Context, userID int64, s Step) error {
	if s == nil {
		return m.Cancel(ctx, userID)
	}
	m.mu.Lock()
	m.slots[userID] = slot{step: s, at: m.Now()}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Peek(_ context.Context, userID int64) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(userID), nil
}

func (m *Memory) Consume(_ context.Context, userID int64) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.live(userID)
	delete(m.slots, userID)
	return s, nil
}

func (m *Memory) ConsumeKind(_ context.Context, userID int64, kind Kind) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.live(userID)
	if s == nil || s.Kind() != kind {
		return nil, nil
	}
	delete(m.slots, userID)
	return s, nil
}

func (m *Memory) Cancel(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.slots, userID)
	m.mu.Unlock()
	return nil
}

// live returns the user's step, dropping it when expired. Callers hold mu.
func (m *Memory) live(userID int64) Step {
	sl, ok := m.slots[userID]
	if !ok {
		return nil
	}
	if m.ttl > 0 && m.Now().Sub(sl.at) >= m.ttl {
		delete(m.slots, userID)
		return nil
	}
	return sl.step
}
