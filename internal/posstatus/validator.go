package posstatus

import (
	"strings"

	"github.com/sejinpark/posportal-backend/pkg/enums"
	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
)

// FieldError is one field-level validation failure. Failures are collected
// and surfaced together, never one at a time.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TransitionInput is the caller's proposed status change. Impact fields are
// pointers so "omitted" is distinguishable from an explicit zero.
type TransitionInput struct {
	TargetStatus         enums.PosStatus
	Reason               string
	Notes                string
	Category             enums.StatusChangeCategory
	EstimatedRevenueLoss *int64
	AffectedOrderCount   *int
	RequiresApproval     bool
	UserID               string
	UserName             string
	ExpectedVersion      int64
}

// ValidatedTransition is the normalized payload accepted by persistence.
type ValidatedTransition struct {
	TargetStatus         enums.PosStatus
	Reason               string
	Notes                string
	Category             enums.StatusChangeCategory
	EstimatedRevenueLoss int64
	AffectedOrderCount   int
	RequiresApproval     bool
	UserID               string
	UserName             string
}

// ValidateTransition gates a proposed transition against the current status.
// It returns the normalized payload or a validation error carrying the
// ordered list of field failures.
func ValidateTransition(current enums.PosStatus, input TransitionInput) (*ValidatedTransition, error) {
	fields := []FieldError{}

	if !input.TargetStatus.IsValid() {
		fields = append(fields, FieldError{Field: "targetStatus", Message: "unknown status"})
	} else if input.TargetStatus == current {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is already in the requested status").
			WithDetails([]FieldError{{Field: "targetStatus", Message: "already " + current.String()}})
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		fields = append(fields, FieldError{Field: "reason", Message: "is required"})
	}

	if input.TargetStatus.RequiresImpactMetadata() {
		if input.EstimatedRevenueLoss == nil {
			fields = append(fields, FieldError{Field: "estimatedRevenueLoss", Message: "is required for closed/break transitions"})
		} else if *input.EstimatedRevenueLoss < 0 {
			fields = append(fields, FieldError{Field: "estimatedRevenueLoss", Message: "must be non-negative"})
		}
		if input.AffectedOrderCount == nil {
			fields = append(fields, FieldError{Field: "affectedOrderCount", Message: "is required for closed/break transitions"})
		} else if *input.AffectedOrderCount < 0 {
			fields = append(fields, FieldError{Field: "affectedOrderCount", Message: "must be non-negative"})
		}
	}

	category := input.Category
	if category == "" {
		category = enums.StatusChangeCategoryManual
	} else if !category.IsValid() {
		fields = append(fields, FieldError{Field: "category", Message: "unknown category"})
	}

	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status transition").WithDetails(fields)
	}

	normalized := &ValidatedTransition{
		TargetStatus:     input.TargetStatus,
		Reason:           reason,
		Notes:            strings.TrimSpace(input.Notes),
		Category:         category,
		RequiresApproval: input.RequiresApproval,
		UserID:           strings.TrimSpace(input.UserID),
		UserName:         strings.TrimSpace(input.UserName),
	}
	if input.EstimatedRevenueLoss != nil {
		normalized.EstimatedRevenueLoss = *input.EstimatedRevenueLoss
	}
	if input.AffectedOrderCount != nil {
		normalized.AffectedOrderCount = *input.AffectedOrderCount
	}
	return normalized, nil
}
