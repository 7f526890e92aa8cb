// Package middleware provides HTTP middleware for the graphsearchd API.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/graphsearch/graphsearchd/internal/logger"
)

// boundaryResponse is the fixed error shape returned for any recovered
// handler panic.
type boundaryResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// ErrorBoundary recovers any panic escaping a request handler, logs it with
// its stack, and answers a uniform 500. A request-level fault never
// propagates past this middleware, so the process and its initialized
// services keep serving.
func ErrorBoundary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// http.ErrAbortHandler is the sentinel for an intentionally
			// aborted response; re-panicking preserves net/http semantics.
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error("request handler panicked",
				logger.KeyRequestID, chimw.GetReqID(r.Context()),
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyError, fmt.Sprintf("%v", rec),
				"stack", string(debug.Stack()),
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(boundaryResponse{
				Error:  "internal server error",
				Detail: fmt.Sprintf("%v", rec),
			})
		}()

		next.ServeHTTP(w, r)
	})
}
