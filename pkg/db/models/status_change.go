package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/pkg/enums"
)

// StatusChange is the append-only history of POS transitions. Rows are never
// edited after insert except to stamp the approval fields.
type StatusChange struct {
	ID                   uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID              uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Status               enums.PosStatus            `gorm:"type:pos_status;not null"`
	OccurredAt           time.Time                  `gorm:"type:timestamptz;not null;index:idx_status_changes_store_occurred,priority:2"`
	Reason               string                     `gorm:"type:text;not null"`
	UserID               string                     `gorm:"type:text;not null"`
	UserName             string                     `gorm:"type:text;not null"`
	Notes                *string                    `gorm:"type:text"`
	EstimatedRevenueLoss int64                      `gorm:"not null;default:0"`
	AffectedOrderCount   int                        `gorm:"not null;default:0"`
	Category             enums.StatusChangeCategory `gorm:"type:status_change_category;not null;default:'manual'"`
	RequiresApproval     bool                       `gorm:"not null;default:false"`
	ApprovedBy           *string                    `gorm:"type:text"`
	ApprovedAt           *time.Time                 `gorm:"type:timestamptz"`
	CreatedAt            time.Time                  `gorm:"type:timestamptz;default:now()"`
}
