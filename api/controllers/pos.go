package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/api/middleware"
	"github.com/sejinpark/posportal-backend/api/responses"
	"github.com/sejinpark/posportal-backend/api/validators"
	"github.com/sejinpark/posportal-backend/internal/posstatus"
	"github.com/sejinpark/posportal-backend/pkg/enums"
	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
	"github.com/sejinpark/posportal-backend/pkg/logger"
)

const maxHistoryLimit = 100

func storeIDFromRequest(r *http.Request) (uuid.UUID, error) {
	storeID := middleware.StoreIDFromContext(r.Context())
	if storeID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	sid, err := uuid.Parse(storeID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
	}
	return sid, nil
}

// GetPosRecord returns the store's current POS record with history and the
// unread notification count.
func GetPosRecord(svc posstatus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetRecord(r.Context(), sid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type transitionRequest struct {
	TargetStatus         string `json:"targetStatus" validate:"required"`
	Reason               string `json:"reason" validate:"required"`
	Notes                string `json:"notes"`
	Category             string `json:"category" validate:"omitempty,oneof=manual auto"`
	EstimatedRevenueLoss *int64 `json:"estimatedRevenueLoss"`
	AffectedOrderCount   *int   `json:"affectedOrderCount"`
	RequiresApproval     bool   `json:"requiresApproval"`
	ExpectedVersion      int64  `json:"expectedVersion"`
}

// RequestTransition applies a manual status change for the active store.
func RequestTransition(svc posstatus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := posstatus.TransitionInput{
			TargetStatus:         enums.PosStatus(req.TargetStatus),
			Reason:               req.Reason,
			Notes:                validators.SanitizeString(req.Notes, 2000),
			Category:             enums.StatusChangeCategory(req.Category),
			EstimatedRevenueLoss: req.EstimatedRevenueLoss,
			AffectedOrderCount:   req.AffectedOrderCount,
			RequiresApproval:     req.RequiresApproval,
			UserID:               middleware.UserIDFromContext(r.Context()),
			UserName:             middleware.UserNameFromContext(r.Context()),
			ExpectedVersion:      req.ExpectedVersion,
		}

		result, err := svc.RequestTransition(r.Context(), sid, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetPosHistory returns the filtered, cursor-paginated status history.
func GetPosHistory(svc posstatus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := posstatus.HistoryParams{StoreID: sid}

		params.Limit, err = validators.ParseQueryInt(r, "limit", 0, 1, maxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.StartDate, err = validators.ParseQueryTime(r, "startDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.EndDate, err = validators.ParseQueryTime(r, "endDate")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := enums.PosStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter"))
				return
			}
			params.Status = &status
		}
		if raw := r.URL.Query().Get("category"); raw != "" {
			category := enums.StatusChangeCategory(raw)
			if !category.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown category filter"))
				return
			}
			params.Category = &category
		}
		params.UserID = r.URL.Query().Get("userId")
		params.Cursor = r.URL.Query().Get("cursor")

		result, err := svc.History(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ApproveStatusChange stamps the approval fields on a pending history row.
func ApproveStatusChange(svc posstatus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		changeID, err := uuid.Parse(chi.URLParam(r, "changeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid change id"))
			return
		}

		approver := middleware.UserIDFromContext(r.Context())
		if approver == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "user context missing"))
			return
		}

		if err := svc.ApproveTransition(r.Context(), sid, changeID, approver); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"approved": true, "changeId": changeID})
	}
}

type settingsRequest struct {
	AutoOpen        bool   `json:"autoOpen"`
	AutoOpenTime    string `json:"autoOpenTime"`
	AutoClose       bool   `json:"autoClose"`
	AutoCloseTime   string `json:"autoCloseTime"`
	ExpectedVersion int64  `json:"expectedVersion"`
}

// UpdatePosSettings replaces the store's auto open/close schedule.
func UpdatePosSettings(svc posstatus.Service, scheduler *posstatus.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req settingsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings := posstatus.AutoScheduleSettings{
			AutoOpen:      req.AutoOpen,
			AutoOpenTime:  req.AutoOpenTime,
			AutoClose:     req.AutoClose,
			AutoCloseTime: req.AutoCloseTime,
		}

		record, err := svc.UpdateAutoSettings(r.Context(), sid, settings, req.ExpectedVersion)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Scheduler reconfiguration is best effort; the settings write is the
		// source of truth and the worker reloads on its own interval.
		if scheduler != nil {
			if err := scheduler.Configure(sid, settings); err != nil {
				logg.Error(logg.WithStoreID(r.Context(), sid.String()), "failed to reconfigure scheduler", err)
			}
		}

		responses.WriteSuccess(w, record)
	}
}
