package posstatus

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sejinpark/posportal-backend/internal/notifications"
	"github.com/sejinpark/posportal-backend/pkg/db/models"
	"github.com/sejinpark/posportal-backend/pkg/enums"
	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
	"github.com/sejinpark/posportal-backend/pkg/logger"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type serviceHarness struct {
	svc Service
	db  *gorm.DB
	now time.Time
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	db := setupPosTestDB(t)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(db),
		Notifications: notifications.NewRepository(db),
		Tx:            &testTxRunner{db: db},
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &serviceHarness{svc: svc, db: db, now: now}
}

func closeInput(version int64) TransitionInput {
	loss := int64(50000)
	orders := 3
	return TransitionInput{
		TargetStatus:         enums.PosStatusClosed,
		Reason:               "Scheduled day off",
		EstimatedRevenueLoss: &loss,
		AffectedOrderCount:   &orders,
		UserID:               "owner-1",
		UserName:             "Kim",
		ExpectedVersion:      version,
	}
}

func TestService_GetRecordBootstraps(t *testing.T) {
	h := newServiceHarness(t)
	storeID := uuid.New()

	record, err := h.svc.GetRecord(context.Background(), storeID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != enums.PosStatusPreparing {
		t.Fatalf("expected preparing bootstrap, got %s", record.Status)
	}
	if record.Version != 1 {
		t.Fatalf("expected version 1, got %d", record.Version)
	}
	if len(record.History) != 0 {
		t.Fatalf("expected empty history, got %d rows", len(record.History))
	}
	if record.Settings.AutoOpenTime != "09:00" {
		t.Fatalf("unexpected default open time %q", record.Settings.AutoOpenTime)
	}
}

func TestService_RequestTransition(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	result, err := h.svc.RequestTransition(ctx, storeID, closeInput(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != enums.PosStatusClosed {
		t.Fatalf("expected closed, got %s", result.Status)
	}
	if result.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", result.Version)
	}
	if result.Change == nil || result.Change.Category != enums.StatusChangeCategoryManual {
		t.Fatalf("expected manual change row, got %+v", result.Change)
	}
	if !result.Change.OccurredAt.Equal(h.now) {
		t.Fatalf("expected occurred-at %s, got %s", h.now, result.Change.OccurredAt)
	}

	var changeCount int64
	if err := h.db.Model(&models.StatusChange{}).Where("store_id = ?", storeID).Count(&changeCount).Error; err != nil {
		t.Fatalf("count changes: %v", err)
	}
	if changeCount != 1 {
		t.Fatalf("expected 1 history row, got %d", changeCount)
	}

	var notification models.Notification
	if err := h.db.Where("store_id = ?", storeID).First(&notification).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}
	if notification.Severity != enums.NotificationSeverityWarning {
		t.Fatalf("expected warning severity for closed, got %s", notification.Severity)
	}
	if notification.StatusChangeID == nil || *notification.StatusChangeID != result.Change.ID {
		t.Fatalf("notification not linked to change: %+v", notification)
	}
}

func TestService_RequestTransitionStaleVersion(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	if _, err := h.svc.RequestTransition(ctx, storeID, closeInput(0)); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	open := TransitionInput{
		TargetStatus:    enums.PosStatusOpen,
		Reason:          "reopen",
		UserID:          "owner-1",
		UserName:        "Kim",
		ExpectedVersion: 1,
	}
	_, err := h.svc.RequestTransition(ctx, storeID, open)
	if err == nil {
		t.Fatal("expected concurrency conflict")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeConcurrency) {
		t.Fatalf("expected concurrency code, got %s", pkgerrors.As(err).Code())
	}

	// The losing write leaves no partial state behind.
	var changeCount int64
	if err := h.db.Model(&models.StatusChange{}).Where("store_id = ?", storeID).Count(&changeCount).Error; err != nil {
		t.Fatalf("count changes: %v", err)
	}
	if changeCount != 1 {
		t.Fatalf("expected the losing transition to be rolled back, got %d rows", changeCount)
	}

	status, err := h.svc.GetCurrentStatus(ctx, storeID)
	if err != nil {
		t.Fatalf("load status: %v", err)
	}
	if status != enums.PosStatusClosed {
		t.Fatalf("expected closed to survive, got %s", status)
	}
}

func TestService_RequestTransitionSameStatus(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	input := TransitionInput{TargetStatus: enums.PosStatusPreparing, Reason: "noop"}
	_, err := h.svc.RequestTransition(ctx, storeID, input)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %s", pkgerrors.As(err).Code())
	}
}

func TestService_UpdateAutoSettings(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	settings := AutoScheduleSettings{
		AutoOpen:      true,
		AutoOpenTime:  "10:00",
		AutoClose:     true,
		AutoCloseTime: "22:00",
	}
	record, err := h.svc.UpdateAutoSettings(ctx, storeID, settings, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Version != 2 {
		t.Fatalf("expected version bump, got %d", record.Version)
	}
	if record.Settings != settings {
		t.Fatalf("settings not persisted: %+v", record.Settings)
	}

	var notification models.Notification
	if err := h.db.Where("store_id = ? AND type = ?", storeID, enums.NotificationTypeSchedule).First(&notification).Error; err != nil {
		t.Fatalf("expected schedule notification: %v", err)
	}

	// Replaying the old version is rejected.
	_, err = h.svc.UpdateAutoSettings(ctx, storeID, settings, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConcurrency) {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
}

func TestService_UpdateAutoSettingsInvalid(t *testing.T) {
	h := newServiceHarness(t)
	settings := AutoScheduleSettings{AutoOpen: true, AutoOpenTime: "25:00"}
	_, err := h.svc.UpdateAutoSettings(context.Background(), uuid.New(), settings, 0)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_ApproveTransition(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	storeID := uuid.New()

	input := closeInput(0)
	input.RequiresApproval = true
	result, err := h.svc.RequestTransition(ctx, storeID, input)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	if err := h.svc.ApproveTransition(ctx, storeID, result.Change.ID, "manager-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Approving twice is a validation failure, approving a stranger a 404.
	err = h.svc.ApproveTransition(ctx, storeID, result.Change.ID, "manager-2")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error on re-approval, got %v", err)
	}
	err = h.svc.ApproveTransition(ctx, storeID, uuid.New(), "manager-1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_HistoryHealsMissingOccurredAt(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	storeID := uuid.New()
	created := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	broken := models.StatusChange{
		ID:        uuid.New(),
		StoreID:   storeID,
		Status:    enums.PosStatusOpen,
		Reason:    "legacy writer",
		UserID:    "owner-1",
		UserName:  "Kim",
		Category:  enums.StatusChangeCategoryManual,
		CreatedAt: created,
	}
	if err := h.db.Create(&broken).Error; err != nil {
		t.Fatalf("seed broken row: %v", err)
	}

	result, err := h.svc.History(ctx, HistoryParams{StoreID: storeID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Items))
	}
	if !result.Items[0].OccurredAt.Equal(created) {
		t.Fatalf("expected occurred-at backfilled from created-at, got %s", result.Items[0].OccurredAt)
	}

	// The repair is persisted, not just served.
	var stored models.StatusChange
	if err := h.db.Where("id = ?", broken.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.OccurredAt.Equal(created) {
		t.Fatalf("expected persisted repair, got %s", stored.OccurredAt)
	}
}

func TestService_HistoryHealsHalfApprovedRow(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	storeID := uuid.New()
	occurred := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	approver := "manager-1"
	zero := time.Time{}

	halfApproved := models.StatusChange{
		ID:               uuid.New(),
		StoreID:          storeID,
		Status:           enums.PosStatusClosed,
		OccurredAt:       occurred,
		Reason:           "legacy writer",
		UserID:           "owner-1",
		UserName:         "Kim",
		Category:         enums.StatusChangeCategoryManual,
		RequiresApproval: true,
		ApprovedBy:       &approver,
		ApprovedAt:       &zero,
		CreatedAt:        occurred,
	}
	if err := h.db.Create(&halfApproved).Error; err != nil {
		t.Fatalf("seed half-approved row: %v", err)
	}

	result, err := h.svc.History(ctx, HistoryParams{StoreID: storeID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Items))
	}
	if result.Items[0].ApprovedAt != nil || result.Items[0].ApprovedBy != nil {
		t.Fatal("expected approval fields cleared in the served row")
	}

	// The repair reaches the database, and only the approval columns move.
	var stored models.StatusChange
	if err := h.db.Where("id = ?", halfApproved.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.ApprovedAt != nil {
		t.Fatalf("expected stored approved-at cleared, got %s", stored.ApprovedAt)
	}
	if stored.ApprovedBy != nil {
		t.Fatalf("expected stored approver cleared, got %s", *stored.ApprovedBy)
	}
	if !stored.OccurredAt.Equal(occurred) {
		t.Fatalf("expected occurred-at untouched, got %s", stored.OccurredAt)
	}
}

func TestService_HistoryInvalidCursor(t *testing.T) {
	h := newServiceHarness(t)
	_, err := h.svc.History(context.Background(), HistoryParams{StoreID: uuid.New(), Cursor: "!!"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
