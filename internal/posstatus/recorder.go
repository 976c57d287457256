package posstatus

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/pkg/db/models"
	"github.com/sejinpark/posportal-backend/pkg/enums"
)

// newStatusChange builds the immutable history row for an accepted
// transition. The id is generated fresh on every call and never reused.
func newStatusChange(storeID uuid.UUID, transition *ValidatedTransition, now time.Time) *models.StatusChange {
	var notes *string
	if transition.Notes != "" {
		n := transition.Notes
		notes = &n
	}
	return &models.StatusChange{
		ID:                   uuid.New(),
		StoreID:              storeID,
		Status:               transition.TargetStatus,
		OccurredAt:           NormalizeTimestamp(now),
		Reason:               transition.Reason,
		UserID:               transition.UserID,
		UserName:             transition.UserName,
		Notes:                notes,
		EstimatedRevenueLoss: transition.EstimatedRevenueLoss,
		AffectedOrderCount:   transition.AffectedOrderCount,
		Category:             transition.Category,
		RequiresApproval:     transition.RequiresApproval,
	}
}

// newStatusNotification builds the notification that accompanies a history
// row in the same logical update.
func newStatusNotification(change *models.StatusChange, severityOverride *enums.NotificationSeverity) *models.Notification {
	severity := severityFor(change.Status)
	if severityOverride != nil && severityOverride.IsValid() {
		severity = *severityOverride
	}
	changeID := change.ID
	return &models.Notification{
		ID:             uuid.New(),
		StoreID:        change.StoreID,
		Type:           enums.NotificationTypeStatusChange,
		Severity:       severity,
		Title:          notificationTitle(change),
		Message:        fmt.Sprintf("Store status changed to %s: %s", change.Status, change.Reason),
		StatusChangeID: &changeID,
	}
}

func severityFor(status enums.PosStatus) enums.NotificationSeverity {
	if status == enums.PosStatusClosed {
		return enums.NotificationSeverityWarning
	}
	return enums.NotificationSeverityInfo
}

func notificationTitle(change *models.StatusChange) string {
	if change.Category == enums.StatusChangeCategoryAuto {
		return fmt.Sprintf("Store automatically switched to %s", change.Status)
	}
	return fmt.Sprintf("Store switched to %s", change.Status)
}
