package posstatus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sejinpark/posportal-backend/internal/notifications"
	"github.com/sejinpark/posportal-backend/pkg/db"
	"github.com/sejinpark/posportal-backend/pkg/db/models"
	"github.com/sejinpark/posportal-backend/pkg/enums"
	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
	"github.com/sejinpark/posportal-backend/pkg/logger"
	"github.com/sejinpark/posportal-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the POS status lifecycle operations.
type Service interface {
	GetRecord(ctx context.Context, storeID uuid.UUID) (*RecordDTO, error)
	GetCurrentStatus(ctx context.Context, storeID uuid.UUID) (enums.PosStatus, error)
	RequestTransition(ctx context.Context, storeID uuid.UUID, input TransitionInput) (*TransitionResult, error)
	ApproveTransition(ctx context.Context, storeID, changeID uuid.UUID, approver string) error
	History(ctx context.Context, params HistoryParams) (*HistoryResult, error)
	UpdateAutoSettings(ctx context.Context, storeID uuid.UUID, settings AutoScheduleSettings, expectedVersion int64) (*RecordDTO, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo          Repository
	Notifications notifications.Repository
	Tx            txRunner
	Logger        *logger.Logger
	Now           func() time.Time
}

type service struct {
	repo    Repository
	notifs  notifications.Repository
	tx      txRunner
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a POS status service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pos repository required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		notifs: params.Notifications,
		tx:     params.Tx,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// loadRecord fetches the POS record, bootstrapping one for stores that have
// never touched their status.
func (s *service) loadRecord(ctx context.Context, storeID uuid.UUID) (*models.PosRecord, error) {
	record, err := s.repo.FindByStore(ctx, storeID)
	if err == nil {
		return record, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pos record")
	}
	record, err = s.repo.CreateForStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pos record")
	}
	return record, nil
}

func (s *service) GetRecord(ctx context.Context, storeID uuid.UUID) (*RecordDTO, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	record, err := s.loadRecord(ctx, storeID)
	if err != nil {
		return nil, err
	}

	history, _, err := s.repo.ListHistory(ctx, listHistoryParams{StoreID: storeID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status history")
	}
	s.healHistory(ctx, history)

	unread, err := s.notifs.CountUnread(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	return &RecordDTO{
		StoreID:             storeID,
		Status:              record.Status,
		Version:             record.Version,
		Settings:            settingsFromRecord(record),
		History:             history,
		UnreadNotifications: unread,
	}, nil
}

// healHistory normalizes malformed stored timestamps as a side effect of the
// read path. Rows that are already well-formed are not written back.
func (s *service) healHistory(ctx context.Context, history []models.StatusChange) {
	for i := range history {
		repairs := repairStatusChange(&history[i])
		if !repairs.Any() {
			continue
		}
		if err := s.repo.SaveRepairs(ctx, &history[i], repairs); err != nil {
			logCtx := s.logg.WithField(ctx, "change_id", history[i].ID)
			s.logg.Error(logCtx, "failed to repair status change timestamps", err)
		}
	}
}

func (s *service) GetCurrentStatus(ctx context.Context, storeID uuid.UUID) (enums.PosStatus, error) {
	if storeID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	record, err := s.loadRecord(ctx, storeID)
	if err != nil {
		return "", err
	}
	return record.Status, nil
}

func (s *service) RequestTransition(ctx context.Context, storeID uuid.UUID, input TransitionInput) (*TransitionResult, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}

	record, err := s.loadRecord(ctx, storeID)
	if err != nil {
		return nil, err
	}

	transition, err := ValidateTransition(record.Status, input)
	if err != nil {
		return nil, err
	}

	expectedVersion := record.Version
	if input.ExpectedVersion > 0 {
		expectedVersion = input.ExpectedVersion
	}

	change := newStatusChange(storeID, transition, s.now())
	notification := newStatusNotification(change, nil)

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		next := *record
		next.Status = transition.TargetStatus
		next.LastChangeID = &change.ID

		swapped, err := s.repo.WithTx(tx).CompareAndSwap(ctx, &next, expectedVersion)
		if err != nil {
			return err
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "pos record version mismatch").
				WithDetails(map[string]any{"expectedVersion": expectedVersion})
		}
		record.Status = next.Status
		record.Version = next.Version

		if err := s.repo.WithTx(tx).CreateStatusChange(ctx, change); err != nil {
			return err
		}
		return s.notifs.WithTx(tx).Create(ctx, notification)
	})
	if txErr != nil {
		if pkgerrors.IsCode(txErr, pkgerrors.CodeConcurrency) {
			return nil, txErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, txErr, "commit status transition")
	}

	return &TransitionResult{
		Status:  record.Status,
		Version: record.Version,
		Change:  change,
	}, nil
}

func (s *service) ApproveTransition(ctx context.Context, storeID, changeID uuid.UUID, approver string) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if changeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "status change id required")
	}
	if approver == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "approver required")
	}

	result, err := s.repo.Approve(ctx, storeID, changeID, approver, NormalizeTimestamp(s.now()))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve status change")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "status change not found")
	}
	if !result.Updated {
		return pkgerrors.New(pkgerrors.CodeValidation, "status change is not awaiting approval")
	}
	return nil
}

func (s *service) History(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}

	query := listHistoryParams{
		StoreID:   params.StoreID,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Status:    params.Status,
		Category:  params.Category,
		UserID:    params.UserID,
		Limit:     params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListHistory(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status history")
	}
	s.healHistory(ctx, rows)

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &HistoryResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) UpdateAutoSettings(ctx context.Context, storeID uuid.UUID, settings AutoScheduleSettings, expectedVersion int64) (*RecordDTO, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	record, err := s.loadRecord(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if expectedVersion <= 0 {
		expectedVersion = record.Version
	}

	notification := &models.Notification{
		ID:       uuid.New(),
		StoreID:  storeID,
		Type:     enums.NotificationTypeSchedule,
		Severity: enums.NotificationSeverityInfo,
		Title:    "Auto schedule updated",
		Message:  scheduleSummary(settings),
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		next := *record
		next.AutoOpen = settings.AutoOpen
		next.AutoOpenTime = settings.AutoOpenTime
		next.AutoClose = settings.AutoClose
		next.AutoCloseTime = settings.AutoCloseTime

		swapped, err := s.repo.WithTx(tx).CompareAndSwap(ctx, &next, expectedVersion)
		if err != nil {
			return err
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "pos record version mismatch").
				WithDetails(map[string]any{"expectedVersion": expectedVersion})
		}
		*record = next
		return s.notifs.WithTx(tx).Create(ctx, notification)
	})
	if txErr != nil {
		if pkgerrors.IsCode(txErr, pkgerrors.CodeConcurrency) {
			return nil, txErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, txErr, "commit settings update")
	}

	return &RecordDTO{
		StoreID:  storeID,
		Status:   record.Status,
		Version:  record.Version,
		Settings: settingsFromRecord(record),
	}, nil
}

func scheduleSummary(settings AutoScheduleSettings) string {
	switch {
	case settings.AutoOpen && settings.AutoClose:
		return "Automatic open at " + settings.AutoOpenTime + " and close at " + settings.AutoCloseTime
	case settings.AutoOpen:
		return "Automatic open at " + settings.AutoOpenTime
	case settings.AutoClose:
		return "Automatic close at " + settings.AutoCloseTime
	default:
		return "Automation disabled"
	}
}
