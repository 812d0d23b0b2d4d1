package platform

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spendnote/nudge/pkg/model"
)

// Memory is an in-memory Platform fake for tests. Permission responses are
// scripted through the exported fields; Err* fields inject failures into
// the corresponding operations. Counters record how often each operation
// ran so tests can assert on cancel sweeps and schedule calls.
type Memory struct {
	mu sync.Mutex

	Permission    model.PermissionStatus
	AskAgain      bool
	RequestResult model.PermissionStatus // returned by RequestPermissions

	ErrSchedule error
	ErrCancel   error
	ErrList     error
	ErrChannel  error

	ScheduleCalls int
	CancelCalls   int
	ChannelCalls  int

	pending map[string]model.ScheduledSlot
	nextID  int
}

// NewMemory returns a fake with permission undetermined and an empty
// pending set.
func NewMemory() *Memory {
	return &Memory{
		Permission:    model.PermissionUndetermined,
		RequestResult: model.PermissionUndetermined,
		AskAgain:      true,
		pending:       make(map[string]model.ScheduledSlot),
	}
}

// Permissions returns the scripted permission state.
func (m *Memory) Permissions() (model.PermissionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Permission, nil
}

// CanAskAgain returns the scripted value.
func (m *Memory) CanAskAgain() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AskAgain, nil
}

// RequestPermissions returns RequestResult and makes it the new permission
// state, mimicking a user answering the prompt.
func (m *Memory) RequestPermissions() (model.PermissionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Permission = m.RequestResult
	return m.RequestResult, nil
}

// EnsureChannel counts the call and returns the injected error, if any.
func (m *Memory) EnsureChannel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChannelCalls++
	return m.ErrChannel
}

// ScheduleAt stores the notification under a sequential ID.
func (m *Memory) ScheduleAt(payload model.Payload, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScheduleCalls++
	if m.ErrSchedule != nil {
		return "", m.ErrSchedule
	}
	m.nextID++
	id := fmt.Sprintf("n-%d", m.nextID)
	m.pending[id] = model.ScheduledSlot{ID: id, FireAt: at, Payload: payload}
	return id, nil
}

// Cancel removes a pending notification.
func (m *Memory) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls++
	if m.ErrCancel != nil {
		return m.ErrCancel
	}
	delete(m.pending, id)
	return nil
}

// ListPending returns the pending set ordered by fire instant.
func (m *Memory) ListPending() ([]model.ScheduledSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrList != nil {
		return nil, m.ErrList
	}
	slots := make([]model.ScheduledSlot, 0, len(m.pending))
	for _, s := range m.pending {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].FireAt.Equal(slots[j].FireAt) {
			return slots[i].FireAt.Before(slots[j].FireAt)
		}
		return slots[i].ID < slots[j].ID
	})
	return slots, nil
}

// Pending returns a snapshot for test assertions.
func (m *Memory) Pending() []model.ScheduledSlot {
	slots, _ := m.ListPending()
	return slots
}

// Compile-time check that *Memory implements Platform.
var _ Platform = (*Memory)(nil)
