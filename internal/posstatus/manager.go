package posstatus

import (
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
	"github.com/sejinpark/posportal-backend/pkg/logger"
	"github.com/sejinpark/posportal-backend/pkg/metrics"
)

// ManagerParams configure a scheduler manager shared by all stores.
type ManagerParams struct {
	Transitions TransitionApplier
	OnChange    ChangeCallback
	Logger      *logger.Logger
	Metrics     *metrics.SchedulerMetrics
	Now         func() time.Time
	AfterFunc   func(d time.Duration, fn func()) *time.Timer
	MinWait     time.Duration
}

// Manager owns one scheduler handle per store. Reconfiguring a store always
// stops the previous handle before a new one is started, so a store never has
// two pending timers.
type Manager struct {
	params ManagerParams

	mu       sync.Mutex
	handles  map[uuid.UUID]*Scheduler
	shutdown bool
}

func NewManager(params ManagerParams) (*Manager, error) {
	if params.Transitions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transition applier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Manager{
		params:  params,
		handles: make(map[uuid.UUID]*Scheduler),
	}, nil
}

// Configure replaces the store's scheduler with one built from the given
// settings. Disabled settings leave the store with no pending timer.
func (m *Manager) Configure(storeID uuid.UUID, settings AutoScheduleSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return pkgerrors.New(pkgerrors.CodeInternal, "scheduler manager is shut down")
	}
	if prev, ok := m.handles[storeID]; ok {
		prev.Stop()
		delete(m.handles, storeID)
	}
	if !settings.Enabled() {
		return nil
	}

	handle, err := StartAutoScheduler(SchedulerParams{
		StoreID:     storeID,
		Settings:    settings,
		Transitions: m.params.Transitions,
		OnChange:    m.params.OnChange,
		Logger:      m.params.Logger,
		Metrics:     m.params.Metrics,
		Now:         m.params.Now,
		AfterFunc:   m.params.AfterFunc,
		MinWait:     m.params.MinWait,
	})
	if err != nil {
		return err
	}
	m.handles[storeID] = handle
	return nil
}

// Remove stops and forgets the store's scheduler, if any.
func (m *Manager) Remove(storeID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if handle, ok := m.handles[storeID]; ok {
		handle.Stop()
		delete(m.handles, storeID)
	}
}

// Active reports how many stores currently hold a scheduler handle.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Shutdown stops every handle. The manager rejects further Configure calls.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = true
	for id, handle := range m.handles {
		handle.Stop()
		delete(m.handles, id)
	}
}
