package posstatus

import (
	"time"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/pkg/db/models"
	"github.com/sejinpark/posportal-backend/pkg/enums"
)

// RecordDTO is the POS record as served to the portal UI.
type RecordDTO struct {
	StoreID             uuid.UUID             `json:"storeId"`
	Status              enums.PosStatus       `json:"status"`
	Version             int64                 `json:"version"`
	Settings            AutoScheduleSettings  `json:"settings"`
	History             []models.StatusChange `json:"history"`
	UnreadNotifications int64                 `json:"unreadNotifications"`
}

// TransitionResult is returned from an accepted transition.
type TransitionResult struct {
	Status  enums.PosStatus      `json:"status"`
	Version int64                `json:"version"`
	Change  *models.StatusChange `json:"change"`
}

// HistoryParams filters the status change history.
type HistoryParams struct {
	StoreID   uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Status    *enums.PosStatus
	Category  *enums.StatusChangeCategory
	UserID    string
	Limit     int
	Cursor    string
}

// HistoryResult wraps returned history rows and the cursor for the next page.
type HistoryResult struct {
	Items  []models.StatusChange `json:"items"`
	Cursor string                `json:"cursor"`
}

func settingsFromRecord(record *models.PosRecord) AutoScheduleSettings {
	return AutoScheduleSettings{
		AutoOpen:      record.AutoOpen,
		AutoOpenTime:  record.AutoOpenTime,
		AutoClose:     record.AutoClose,
		AutoCloseTime: record.AutoCloseTime,
	}
}
