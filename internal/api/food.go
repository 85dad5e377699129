package api

import (
	"net/http"

	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
)

type setFoodPrefsRequest struct {
	Preferences []foodPrefEntry `json:"preferences" validate:"required,min=1,dive"`
}

type foodPrefEntry struct {
	Category string `json:"category" validate:"required,food_category"`
	Level    string `json:"level" validate:"required,food_level"`
}

type updateFoodPrefRequest struct {
	Category string `json:"category" validate:"required,food_category"`
	Level    string `json:"level" validate:"required,food_level"`
}

func (r setFoodPrefsRequest) preferences() []foodpref.Preference {
	out := make([]foodpref.Preference, len(r.Preferences))
	for i, p := range r.Preferences {
		out[i] = foodpref.Preference{Category: foodpref.Category(p.Category), Level: foodpref.Level(p.Level)}
	}
	return out
}

func handleGetFoodPrefs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := deps.Food.GetDefault(ownerParam(r))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, set)
	}
}

func handleSetFoodPrefs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setFoodPrefsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		set, err := deps.Food.SetDefault(ownerParam(r), req.preferences())
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, set)
	}
}

func handleUpdateFoodPref(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateFoodPrefRequest
		if !decodeBody(w, r, &req) {
			return
		}
		set, err := deps.Food.UpdateDefaultOne(ownerParam(r), foodpref.Category(req.Category), foodpref.Level(req.Level))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, set)
	}
}

func handleEffectiveFoodPrefs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := location.Key(r.URL.Query().Get("locationKey"))
		set, err := deps.Food.GetEffective(ownerParam(r), key)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, set)
	}
}

func handleGetLocationFoodPrefs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := locationKeyParam(r)
		set, found, err := deps.Food.GetLocationOverride(ownerParam(r), key)
		if err != nil {
			respondAppError(w, err)
			return
		}
		if !found {
			respondJSON(w, http.StatusOK, map[string]any{"locationKey": key, "hasOverrides": false})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"locationKey":  key,
			"hasOverrides": true,
			"preferences":  set.Preferences,
			"updatedAt":    set.UpdatedAt,
		})
	}
}

func handleSetLocationFoodPrefs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setFoodPrefsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		set, err := deps.Food.SetLocationOverride(ownerParam(r), locationKeyParam(r), req.preferences())
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, set)
	}
}

func handleUpdateLocationFoodPref(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateFoodPrefRequest
		if !decodeBody(w, r, &req) {
			return
		}
		set, err := deps.Food.UpdateLocationOverrideOne(ownerParam(r), locationKeyParam(r),
			foodpref.Category(req.Category), foodpref.Level(req.Level))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, set)
	}
}

func handleDeleteLocationFoodPrefs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := locationKeyParam(r)
		if err := deps.Food.DeleteLocationOverride(ownerParam(r), key); err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"locationKey": key, "deleted": true})
	}
}
