package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sejinpark/posportal-backend/api/responses"
	pkgerrors "github.com/sejinpark/posportal-backend/pkg/errors"
	"github.com/sejinpark/posportal-backend/pkg/logger"
)

const (
	storeIDHeader  = "X-Store-Id"
	userIDHeader   = "X-User-Id"
	userNameHeader = "X-User-Name"
)

// StoreContext resolves the acting store and user from the gateway headers.
// The portal gateway authenticates owners upstream; this service only trusts
// the identity it forwards.
func StoreContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			storeID := r.Header.Get(storeIDHeader)
			if storeID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing"))
				return
			}
			if _, err := uuid.Parse(storeID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id"))
				return
			}

			ctx := WithStoreID(r.Context(), storeID)
			ctx = WithUser(ctx, r.Header.Get(userIDHeader), r.Header.Get(userNameHeader))
			if logg != nil {
				ctx = logg.WithStoreID(ctx, storeID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
