package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to stores. Only
// ReadAt ever mutates after insert.
type Notification struct {
	ID             uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID        uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Type           enums.NotificationType     `gorm:"type:notification_type;not null"`
	Severity       enums.NotificationSeverity `gorm:"type:notification_severity;not null;default:'info'"`
	Title          string                     `gorm:"type:text;not null"`
	Message        string                     `gorm:"type:text;not null"`
	StatusChangeID *uuid.UUID                 `gorm:"type:uuid;index"`
	ReadAt         *time.Time                 `gorm:"type:timestamptz"`
	CreatedAt      time.Time                  `gorm:"type:timestamptz;default:now()"`
}
