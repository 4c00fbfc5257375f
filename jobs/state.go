package jobs

import "sync"

// EscalationState tracks how far a user's reminder escalation has progressed
// within the current local day.
type EscalationState int

const (
	StateIdle EscalationState = iota
	StateFriendlySent
	StateUrgentSent
)

func (s EscalationState) String() string {
	switch s {
	case StateFriendlySent:
		return "friendly_sent"
	case StateUrgentSent:
		return "urgent_sent"
	default:
		return "idle"
	}
}

// EscalationStore holds per-user escalation state and the email dedup set
// for the current day. The scheduler is the only writer. Process restart
// loses the day's progress, which at worst duplicates a friendly reminder;
// a durable implementation can be swapped in behind this interface.
type EscalationStore interface {
	Get(userID string) EscalationState
	Set(userID string, state EscalationState)
	MarkEmailSent(userID string)
	EmailSentToday(userID string) bool
	// Reset returns every user to idle and clears the email dedup set.
	// Called once per day after the boundary sync.
	Reset()
}

// MemoryEscalationStore is the in-process EscalationStore.
type MemoryEscalationStore struct {
	mu      sync.RWMutex
	states  map[string]EscalationState
	emailed map[string]struct{}
}

// NewMemoryEscalationStore creates an empty store with all users idle.
func NewMemoryEscalationStore() *MemoryEscalationStore {
	return &MemoryEscalationStore{
		states:  map[string]EscalationState{},
		emailed: map[string]struct{}{},
	}
}

func (m *MemoryEscalationStore) Get(userID string) EscalationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[userID]
}

func (m *MemoryEscalationStore) Set(userID string, state EscalationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = state
}

func (m *MemoryEscalationStore) MarkEmailSent(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailed[userID] = struct{}{}
}

func (m *MemoryEscalationStore) EmailSentToday(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.emailed[userID]
	return ok
}

func (m *MemoryEscalationStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = map[string]EscalationState{}
	m.emailed = map[string]struct{}{}
}
