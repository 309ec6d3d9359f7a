package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/httputil"
)

// Library makes sure the reserved folders exist before a user's first request
// is served. Each user is bootstrapped once per process.
func Library(folders studySvc.FolderService, logger *slog.Logger) func(http.Handler) http.Handler {
	var ready sync.Map

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := httputil.GetUserID(r)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := ready.Load(userID); !ok {
				if err := folders.EnsureDefaults(r.Context(), userID); err != nil {
					logger.Error("library bootstrap failed", "user_id", userID, "error", err)
					httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				ready.Store(userID, struct{}{})
			}

			next.ServeHTTP(w, r)
		})
	}
}
