package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors/constants"
)

// AttachRequestID copies chi's request id into the context key the gRPC
// client interceptor forwards, and echoes it back to the caller.
func AttachRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set(constants.HeaderXRequestId, requestID)
		}
		ctx := interceptors.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
