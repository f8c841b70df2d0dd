// Package conversation keeps the per-user dialogue state of multi-step flows.
package conversation

import "sync"

// Stage is what the bot expects next from a user.
type Stage int

const (
	Idle Stage = iota
	AwaitingTaskContent
	AwaitingCategorySelection
	AwaitingCategoryName
)

func (s Stage) String() string {
	switch s {
	case AwaitingTaskContent:
		return "awaiting_task_content"
	case AwaitingCategorySelection:
		return "awaiting_category_selection"
	case AwaitingCategoryName:
		return "awaiting_category_name"
	default:
		return "idle"
	}
}

// PendingTask is validated task text waiting for a category.
type PendingTask struct {
	Content string
}

// State is one user's position in a flow. The zero value is Idle.
type State struct {
	Awaiting Stage
	Pending  *PendingTask
}

// IsIdle reports whether no flow is in progress.
func (s State) IsIdle() bool {
	return s.Awaiting == Idle
}

// ExpectsText reports whether the next plain message continues the flow.
func (s State) ExpectsText() bool {
	return s.Awaiting == AwaitingTaskContent || s.Awaiting == AwaitingCategoryName
}

// WithPending moves to category selection holding content.
func (s State) WithPending(content string) State {
	return State{Awaiting: AwaitingCategorySelection, Pending: &PendingTask{Content: content}}
}

// Store holds conversation states keyed by user id.
type Store interface {
	Get(userID int64) State
	Set(userID int64, st State)
	Clear(userID int64)
}

// MemoryStore is a process-local Store. Last write wins per user.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (m *MemoryStore) Get(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID]
}

// Set stores st. Storing an idle state removes the entry.
func (m *MemoryStore) Set(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st.IsIdle() {
		delete(m.states, userID)
		return
	}
	m.states[userID] = st
}

func (m *MemoryStore) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
}

// Active counts users inside a flow.
func (m *MemoryStore) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
