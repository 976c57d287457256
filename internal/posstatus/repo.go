package posstatus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sejinpark/posportal-backend/pkg/db/models"
	"github.com/sejinpark/posportal-backend/pkg/enums"
	"github.com/sejinpark/posportal-backend/pkg/pagination"
)

// Repository exposes persistence helpers for POS records and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByStore(ctx context.Context, storeID uuid.UUID) (*models.PosRecord, error)
	CreateForStore(ctx context.Context, storeID uuid.UUID) (*models.PosRecord, error)
	CompareAndSwap(ctx context.Context, record *models.PosRecord, expectedVersion int64) (bool, error)
	CreateStatusChange(ctx context.Context, change *models.StatusChange) error
	FindStatusChange(ctx context.Context, storeID, changeID uuid.UUID) (*models.StatusChange, error)
	SaveRepairs(ctx context.Context, change *models.StatusChange, repairs timestampRepairs) error
	Approve(ctx context.Context, storeID, changeID uuid.UUID, approver string, now time.Time) (approveResult, error)
	ListHistory(ctx context.Context, params listHistoryParams) ([]models.StatusChange, *pagination.Cursor, error)
	ListAutomationEnabled(ctx context.Context) ([]models.PosRecord, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a POS repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listHistoryParams struct {
	StoreID   uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Status    *enums.PosStatus
	Category  *enums.StatusChangeCategory
	UserID    string
	Limit     int
	Cursor    *pagination.Cursor
}

type approveResult struct {
	Found   bool
	Updated bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByStore(ctx context.Context, storeID uuid.UUID) (*models.PosRecord, error) {
	var record models.PosRecord
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) CreateForStore(ctx context.Context, storeID uuid.UUID) (*models.PosRecord, error) {
	record := &models.PosRecord{
		ID:            uuid.New(),
		StoreID:       storeID,
		Status:        enums.PosStatusPreparing,
		Version:       1,
		AutoOpenTime:  "09:00",
		AutoCloseTime: "21:00",
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// CompareAndSwap writes the record back guarded by the version read at the
// start of the operation. It reports false when another writer won the race;
// the caller must not retry blindly.
func (r *repositoryImpl) CompareAndSwap(ctx context.Context, record *models.PosRecord, expectedVersion int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PosRecord{}).
		Where("store_id = ? AND version = ?", record.StoreID, expectedVersion).
		Updates(map[string]any{
			"status":          record.Status,
			"auto_open":       record.AutoOpen,
			"auto_open_time":  record.AutoOpenTime,
			"auto_close":      record.AutoClose,
			"auto_close_time": record.AutoCloseTime,
			"last_change_id":  record.LastChangeID,
			"version":         expectedVersion + 1,
			"updated_at":      NormalizeTimestamp(time.Now()),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	record.Version = expectedVersion + 1
	return true, nil
}

func (r *repositoryImpl) CreateStatusChange(ctx context.Context, change *models.StatusChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *repositoryImpl) FindStatusChange(ctx context.Context, storeID, changeID uuid.UUID) (*models.StatusChange, error) {
	var change models.StatusChange
	if err := r.db.WithContext(ctx).
		Where("id = ? AND store_id = ?", changeID, storeID).
		First(&change).Error; err != nil {
		return nil, err
	}
	return &change, nil
}

// SaveRepairs writes back exactly the repaired fields of a history row.
// History rows are otherwise immutable.
func (r *repositoryImpl) SaveRepairs(ctx context.Context, change *models.StatusChange, repairs timestampRepairs) error {
	columns := make(map[string]any, 3)
	if repairs.OccurredAt {
		columns["occurred_at"] = change.OccurredAt
	}
	if repairs.Approval {
		columns["approved_at"] = nil
		columns["approved_by"] = nil
	}
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.StatusChange{}).
		Where("id = ?", change.ID).
		UpdateColumns(columns).Error
}

func (r *repositoryImpl) Approve(ctx context.Context, storeID, changeID uuid.UUID, approver string, now time.Time) (approveResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StatusChange{}).
		Where("id = ? AND store_id = ? AND requires_approval AND approved_at IS NULL", changeID, storeID).
		Updates(map[string]any{
			"approved_by": approver,
			"approved_at": now,
		})
	if result.Error != nil {
		return approveResult{}, result.Error
	}

	outcome := approveResult{Updated: result.RowsAffected > 0}
	if outcome.Updated {
		outcome.Found = true
		return outcome, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.StatusChange{}).
		Where("id = ? AND store_id = ?", changeID, storeID).
		Count(&count).Error; err != nil {
		return approveResult{}, err
	}
	outcome.Found = count > 0
	return outcome, nil
}

func (r *repositoryImpl) ListHistory(ctx context.Context, params listHistoryParams) ([]models.StatusChange, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.StatusChange{}).Where("store_id = ?", params.StoreID)
	if params.StartDate != nil {
		query = query.Where("occurred_at >= ?", *params.StartDate)
	}
	if params.EndDate != nil {
		query = query.Where("occurred_at <= ?", *params.EndDate)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.UserID != "" {
		query = query.Where("user_id = ?", params.UserID)
	}
	if params.Cursor != nil {
		query = query.Where("(occurred_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var changes []models.StatusChange
	if err := query.Order("occurred_at DESC, id DESC").Limit(limit).Find(&changes).Error; err != nil {
		return nil, nil, err
	}

	if len(changes) > normalized {
		next := changes[normalized]
		changes = changes[:normalized]
		return changes, &pagination.Cursor{CreatedAt: next.OccurredAt, ID: next.ID}, nil
	}
	return changes, nil, nil
}

func (r *repositoryImpl) ListAutomationEnabled(ctx context.Context) ([]models.PosRecord, error) {
	var records []models.PosRecord
	if err := r.db.WithContext(ctx).
		Where("auto_open OR auto_close").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
