package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createPreferenceRequest struct {
	Key   string          `json:"key" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
	Type  string          `json:"type" validate:"omitempty,oneof=string number boolean array object"`
}

type updatePreferenceRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

func handleListPreferences(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefs, err := deps.Prefs.List(ownerParam(r))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, prefs)
	}
}

func handleListPreferenceKeys(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := deps.Prefs.ListKeys(ownerParam(r))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"keys": keys, "count": len(keys)})
	}
}

func handleGetPreference(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pref, err := deps.Prefs.Get(ownerParam(r), chi.URLParam(r, "key"))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, pref)
	}
}

func handleCreatePreference(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPreferenceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		pref, err := deps.Prefs.Create(ownerParam(r), req.Key, req.Value, req.Type)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, pref)
	}
}

// handlePutPreference creates or replaces the preference wholesale, unlike
// PATCH which requires it to exist.
func handlePutPreference(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePreferenceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		pref, err := deps.Prefs.Import(ownerParam(r), chi.URLParam(r, "key"), req.Value)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, pref)
	}
}

func handleUpdatePreference(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePreferenceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		pref, err := deps.Prefs.Update(ownerParam(r), chi.URLParam(r, "key"), req.Value)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, pref)
	}
}

func handleDeletePreference(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if err := deps.Prefs.Delete(ownerParam(r), key); err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"key": key, "deleted": true})
	}
}
