package api

import (
	"net/http"
	"time"
)

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := deps.Store.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		respondJSON(w, code, map[string]any{
			"status":    status,
			"version":   deps.Version,
			"checkedAt": time.Now().UTC(),
		})
	}
}
