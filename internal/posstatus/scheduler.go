package posstatus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/pkg/enums"
	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
	"github.com/sejinpark/posportal-backend/pkg/logger"
	"github.com/sejinpark/posportal-backend/pkg/metrics"
)

const (
	schedulerUserID   = "system"
	schedulerUserName = "Auto Scheduler"

	defaultMinBoundaryWait = time.Second
)

// TransitionApplier performs the persisted transition when a boundary fires.
type TransitionApplier interface {
	RequestTransition(ctx context.Context, storeID uuid.UUID, input TransitionInput) (*TransitionResult, error)
}

// ChangeCallback observes the outcome of every automatic attempt.
type ChangeCallback func(storeID uuid.UUID, status enums.PosStatus, err error)

// SchedulerParams configure one store's auto scheduler.
type SchedulerParams struct {
	StoreID     uuid.UUID
	Settings    AutoScheduleSettings
	Transitions TransitionApplier
	OnChange    ChangeCallback
	Logger      *logger.Logger
	Metrics     *metrics.SchedulerMetrics
	Now         func() time.Time
	AfterFunc   func(d time.Duration, fn func()) *time.Timer
	MinWait     time.Duration
}

// Scheduler maintains at most one pending timer that fires at the next
// operating-hours boundary for a single store. The caller owns the handle
// and must call Stop on teardown; there is no other cancellation mechanism.
type Scheduler struct {
	storeID     uuid.UUID
	settings    AutoScheduleSettings
	transitions TransitionApplier
	onChange    ChangeCallback
	logg        *logger.Logger
	metrics     *metrics.SchedulerMetrics
	now         func() time.Time
	afterFunc   func(d time.Duration, fn func()) *time.Timer
	minWait     time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// StartAutoScheduler validates the settings, pushes the current expected
// status once so the store reflects reality without waiting for the next
// boundary, and schedules the boundary timer.
func StartAutoScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if params.Transitions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transition applier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if err := params.Settings.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		storeID:     params.StoreID,
		settings:    params.Settings,
		transitions: params.Transitions,
		onChange:    params.OnChange,
		logg:        params.Logger,
		metrics:     params.Metrics,
		now:         params.Now,
		afterFunc:   params.AfterFunc,
		minWait:     params.MinWait,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.afterFunc == nil {
		s.afterFunc = time.AfterFunc
	}
	if s.minWait <= 0 {
		s.minWait = defaultMinBoundaryWait
	}

	if !s.settings.Enabled() {
		return s, nil
	}

	if status := DetermineStatus(s.settings, s.now()); status != nil {
		s.apply(*status)
	}
	s.schedule()
	return s, nil
}

// Stop cancels the pending timer. An already-dispatched write is allowed to
// complete or fail independently.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) schedule() {
	delay := NextBoundaryDelay(s.settings, s.now())
	if delay == nil {
		return
	}
	wait := *delay
	if wait < s.minWait {
		wait = s.minWait
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.afterFunc(wait, s.fire)
}

// fire runs on timer expiry. A failed write must not stop future automatic
// attempts, so the next boundary is rescheduled unconditionally.
func (s *Scheduler) fire() {
	if status := DetermineStatus(s.settings, s.now()); status != nil {
		s.apply(*status)
	}
	s.schedule()
}

func (s *Scheduler) apply(target enums.PosStatus) {
	ctx := s.logg.WithFields(context.Background(), map[string]any{
		"store_id": s.storeID,
		"target":   target,
	})

	zeroLoss := int64(0)
	zeroOrders := 0
	input := TransitionInput{
		TargetStatus:         target,
		Reason:               autoReason(target),
		Category:             enums.StatusChangeCategoryAuto,
		EstimatedRevenueLoss: &zeroLoss,
		AffectedOrderCount:   &zeroOrders,
		UserID:               schedulerUserID,
		UserName:             schedulerUserName,
	}

	start := s.now()
	result, err := s.transitions.RequestTransition(ctx, s.storeID, input)
	s.metrics.ObserveDuration(s.storeID.String(), s.now().Sub(start))

	switch {
	case err == nil:
		s.metrics.IncSuccess(s.storeID.String())
		s.logg.Info(ctx, "automatic status transition applied")
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		// Already in the expected status. Nothing to do.
		err = nil
	default:
		s.metrics.IncFailure(s.storeID.String())
		s.logg.Error(ctx, "automatic status transition failed", err)
	}

	if s.onChange != nil {
		status := target
		if result != nil {
			status = result.Status
		}
		s.onChange(s.storeID, status, err)
	}
}

func autoReason(target enums.PosStatus) string {
	if target == enums.PosStatusOpen {
		return "Scheduled opening"
	}
	return "Scheduled closing"
}
