package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/validation"
)

type createSystemLocationRequest struct {
	LocationType string               `json:"locationType" validate:"required,system_location_type"`
	Address      string               `json:"address" validate:"required"`
	Coordinates  location.Coordinates `json:"coordinates" validate:"required"`
	Nickname     string               `json:"nickname"`
	Notes        string               `json:"notes"`
}

type createCustomLocationRequest struct {
	LocationName   string               `json:"locationName" validate:"required"`
	Address        string               `json:"address" validate:"required"`
	Coordinates    location.Coordinates `json:"coordinates" validate:"required"`
	Nickname       string               `json:"nickname" validate:"required"`
	Category       string               `json:"category" validate:"required,location_category"`
	Features       []string             `json:"features" validate:"required,min=1,dive,location_feature"`
	ParentCategory string               `json:"parentCategory" validate:"omitempty,location_category"`
	Notes          string               `json:"notes"`
}

type updateLocationRequest struct {
	Address        *string               `json:"address"`
	Coordinates    *location.Coordinates `json:"coordinates"`
	Nickname       *string               `json:"nickname"`
	Category       *string               `json:"category" validate:"omitempty,location_category"`
	Features       []string              `json:"features" validate:"omitempty,min=1,dive,location_feature"`
	ParentCategory *string               `json:"parentCategory" validate:"omitempty,location_category"`
	Notes          *string               `json:"notes"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return false
	}
	if err := validation.Validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return false
	}
	return true
}

func ownerParam(r *http.Request) string {
	return chi.URLParam(r, "userId")
}

func locationKeyParam(r *http.Request) location.Key {
	return location.Key(chi.URLParam(r, "locationKey"))
}

func handleListLocations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := ownerParam(r)

		var locs []location.Location
		var err error
		switch r.URL.Query().Get("type") {
		case "system":
			locs, err = deps.Locations.ListSystem(owner)
		case "custom":
			locs, err = deps.Locations.ListCustom(owner)
		case "", "all":
			locs, err = deps.Locations.ListAll(owner)
		default:
			respondError(w, http.StatusBadRequest, "validation_error", "type must be system, custom, or all")
			return
		}
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, locs)
	}
}

func handleGetLocation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := deps.Locations.Get(ownerParam(r), locationKeyParam(r))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, loc)
	}
}

func handleCreateSystemLocation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSystemLocationRequest
		if !decodeBody(w, r, &req) {
			return
		}

		loc, err := deps.Locations.CreateSystem(ownerParam(r), location.CreateSystemInput{
			Type:        location.SystemType(req.LocationType),
			Address:     req.Address,
			Coordinates: req.Coordinates,
			Nickname:    req.Nickname,
			Notes:       req.Notes,
		})
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, loc)
	}
}

func handleCreateCustomLocation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCustomLocationRequest
		if !decodeBody(w, r, &req) {
			return
		}

		loc, err := deps.Locations.CreateCustom(ownerParam(r), location.CreateCustomInput{
			Name:           req.LocationName,
			Address:        req.Address,
			Coordinates:    req.Coordinates,
			Nickname:       req.Nickname,
			Category:       location.Category(req.Category),
			Features:       toFeatures(req.Features),
			ParentCategory: location.Category(req.ParentCategory),
			Notes:          req.Notes,
		})
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, loc)
	}
}

func handleUpdateLocation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateLocationRequest
		if !decodeBody(w, r, &req) {
			return
		}

		in := location.UpdateInput{
			Address:     req.Address,
			Coordinates: req.Coordinates,
			Nickname:    req.Nickname,
			Notes:       req.Notes,
			Features:    toFeatures(req.Features),
		}
		if req.Category != nil {
			c := location.Category(*req.Category)
			in.Category = &c
		}
		if req.ParentCategory != nil {
			c := location.Category(*req.ParentCategory)
			in.ParentCategory = &c
		}

		loc, err := deps.Locations.Update(ownerParam(r), locationKeyParam(r), in)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, loc)
	}
}

func handleDeleteLocation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := locationKeyParam(r)
		if err := deps.Locations.Delete(ownerParam(r), key); err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"locationKey": key, "deleted": true})
	}
}

func handleMarkLocationUsed(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := locationKeyParam(r)
		if err := deps.Locations.MarkUsed(ownerParam(r), key); err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"locationKey": key, "marked": true})
	}
}

func handleAvailableSystemLocations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := deps.Locations.AvailableSystemTypes(ownerParam(r))
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, types)
	}
}

func toFeatures(in []string) []location.Feature {
	if in == nil {
		return nil
	}
	out := make([]location.Feature, len(in))
	for i, f := range in {
		out[i] = location.Feature(f)
	}
	return out
}
