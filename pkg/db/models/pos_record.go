package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/pkg/enums"
)

// PosRecord is the single mutable POS document for a store. Every write must
// present the version it read; the version column is the only serialization
// point between competing sessions.
type PosRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Status        enums.PosStatus `gorm:"type:pos_status;not null;default:'preparing'"`
	Version       int64           `gorm:"not null;default:1"`
	AutoOpen      bool            `gorm:"not null;default:false"`
	AutoOpenTime  string          `gorm:"type:text;not null;default:'09:00'"`
	AutoClose     bool            `gorm:"not null;default:false"`
	AutoCloseTime string          `gorm:"type:text;not null;default:'21:00'"`
	LastChangeID  *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt     time.Time       `gorm:"type:timestamptz;default:now()"`
	UpdatedAt     time.Time       `gorm:"type:timestamptz;default:now()"`
}
