// Package api exposes the platform's management REST surface: locations,
// food preferences, and plain key-value preferences, all scoped per user.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/preference"
	"github.com/perctx/perctx/internal/store"
)

const maxBodySize = 1 << 20 // 1MB

// AppDeps holds dependencies for the REST handler.
type AppDeps struct {
	Store     *store.Store
	Locations *location.Registry
	Food      *foodpref.Resolver
	Prefs     *preference.Service
	Token     string
	Stats     *Stats // optional; if nil, request accounting is skipped
	Version   string
}

// NewAppHandler builds the REST router. Health stays unauthenticated so
// process supervisors can probe it; everything else requires the bearer
// token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	if deps.Stats != nil {
		r.Use(deps.Stats.Middleware)
	}

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/stats", handleStats(deps))

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Route("/locations", func(r chi.Router) {
				r.Get("/", handleListLocations(deps))
				r.Get("/available", handleAvailableSystemLocations(deps))
				r.Post("/system", handleCreateSystemLocation(deps))
				r.Post("/custom", handleCreateCustomLocation(deps))

				r.Route("/{locationKey}", func(r chi.Router) {
					r.Get("/", handleGetLocation(deps))
					r.Patch("/", handleUpdateLocation(deps))
					r.Delete("/", handleDeleteLocation(deps))
					r.Post("/used", handleMarkLocationUsed(deps))

					r.Route("/food-preferences", func(r chi.Router) {
						r.Get("/", handleGetLocationFoodPrefs(deps))
						r.Put("/", handleSetLocationFoodPrefs(deps))
						r.Patch("/", handleUpdateLocationFoodPref(deps))
						r.Delete("/", handleDeleteLocationFoodPrefs(deps))
					})
				})
			})

			r.Route("/food-preferences", func(r chi.Router) {
				r.Get("/", handleGetFoodPrefs(deps))
				r.Put("/", handleSetFoodPrefs(deps))
				r.Patch("/", handleUpdateFoodPref(deps))
				r.Get("/effective", handleEffectiveFoodPrefs(deps))
			})

			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", handleListPreferences(deps))
				r.Post("/", handleCreatePreference(deps))
				r.Get("/keys", handleListPreferenceKeys(deps))

				r.Route("/{key}", func(r chi.Router) {
					r.Get("/", handleGetPreference(deps))
					r.Put("/", handlePutPreference(deps))
					r.Patch("/", handleUpdatePreference(deps))
					r.Delete("/", handleDeletePreference(deps))
				})
			})
		})
	})

	return r
}
