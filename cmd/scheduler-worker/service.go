package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/internal/posstatus"
	"github.com/sejinpark/posportal-backend/pkg/db/models"
	"github.com/sejinpark/posportal-backend/pkg/logger"
)

const (
	defaultReloadInterval = time.Minute
	lockRetryInterval     = 15 * time.Second
)

type recordLister interface {
	ListAutomationEnabled(ctx context.Context) ([]models.PosRecord, error)
}

type schedulerManager interface {
	Configure(storeID uuid.UUID, settings posstatus.AutoScheduleSettings) error
	Remove(storeID uuid.UUID)
	Shutdown()
}

type workerLock interface {
	Acquire(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type ServiceParams struct {
	Logger         *logger.Logger
	Records        recordLister
	Manager        schedulerManager
	Lock           workerLock
	ReloadInterval time.Duration
}

// Service keeps the in-process schedulers in sync with the persisted auto
// schedule settings. Exactly one worker instance holds the Redis lock; the
// rest idle until it is released.
type Service struct {
	logg           *logger.Logger
	records        recordLister
	manager        schedulerManager
	lock           workerLock
	reloadInterval time.Duration

	active map[uuid.UUID]posstatus.AutoScheduleSettings
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Records == nil {
		return nil, errors.New("record lister is required")
	}
	if params.Manager == nil {
		return nil, errors.New("scheduler manager is required")
	}
	if params.Lock == nil {
		return nil, errors.New("worker lock is required")
	}
	interval := params.ReloadInterval
	if interval <= 0 {
		interval = defaultReloadInterval
	}
	return &Service{
		logg:           params.Logger,
		records:        params.Records,
		manager:        params.Manager,
		lock:           params.Lock,
		reloadInterval: interval,
		active:         make(map[uuid.UUID]posstatus.AutoScheduleSettings),
	}, nil
}

// Run blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(releaseCtx); err != nil {
			s.logg.Error(releaseCtx, "failed to release scheduler lock", err)
		}
		s.manager.Shutdown()
	}()

	if err := s.reload(ctx); err != nil {
		s.logg.Error(ctx, "initial scheduler reload failed", err)
	}

	ticker := time.NewTicker(s.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick renews the lock and reconciles the schedulers. Losing the lock stands
// every scheduler down and blocks until ownership is regained, so two workers
// never drive timers at once.
func (s *Service) tick(ctx context.Context) error {
	held, err := s.lock.Refresh(ctx)
	if err != nil {
		// Transient store errors keep the lock; the TTL decides ownership if
		// they persist.
		s.logg.Error(ctx, "scheduler lock refresh failed", err)
	} else if !held {
		s.logg.Warn(ctx, "scheduler lock lost, standing down")
		s.dropSchedulers()
		if err := s.acquireLock(ctx); err != nil {
			return err
		}
	}
	if err := s.reload(ctx); err != nil {
		s.logg.Error(ctx, "scheduler reload failed", err)
	}
	return nil
}

// dropSchedulers stops every running scheduler without tearing the manager
// down, so a later reload can rebuild them.
func (s *Service) dropSchedulers() {
	for storeID := range s.active {
		s.manager.Remove(storeID)
		delete(s.active, storeID)
	}
}

func (s *Service) acquireLock(ctx context.Context) error {
	for {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			s.logg.Error(ctx, "scheduler lock acquire failed", err)
		}
		if ok {
			s.logg.Info(ctx, "scheduler lock acquired")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// reload diffs the persisted settings against the running schedulers. Only
// stores whose settings actually changed are reconfigured, so an unchanged
// schedule never resets its pending timer.
func (s *Service) reload(ctx context.Context) error {
	records, err := s.records.ListAutomationEnabled(ctx)
	if err != nil {
		return err
	}

	seen := make(map[uuid.UUID]struct{}, len(records))
	for _, record := range records {
		settings := posstatus.AutoScheduleSettings{
			AutoOpen:      record.AutoOpen,
			AutoOpenTime:  record.AutoOpenTime,
			AutoClose:     record.AutoClose,
			AutoCloseTime: record.AutoCloseTime,
		}
		seen[record.StoreID] = struct{}{}

		if current, ok := s.active[record.StoreID]; ok && current == settings {
			continue
		}
		if err := s.manager.Configure(record.StoreID, settings); err != nil {
			logCtx := s.logg.WithStoreID(ctx, record.StoreID.String())
			s.logg.Error(logCtx, "failed to configure store scheduler", err)
			continue
		}
		s.active[record.StoreID] = settings
	}

	for storeID := range s.active {
		if _, ok := seen[storeID]; ok {
			continue
		}
		s.manager.Remove(storeID)
		delete(s.active, storeID)
	}
	return nil
}
