package foodpref

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/perctx/perctx/internal/apperr"
	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/store"
)

// LocationChecker reports whether a location exists for an owner. Satisfied
// by *location.Registry.
type LocationChecker interface {
	Exists(owner string, key location.Key) (bool, error)
}

// Resolver manages default and per-location preference sets and computes
// effective preferences. Stateless between calls; all writes are whole-set
// replacements through the store's upsert.
type Resolver struct {
	store     *store.Store
	locations LocationChecker
}

func NewResolver(s *store.Store, locations LocationChecker) *Resolver {
	return &Resolver{store: s, locations: locations}
}

// GetDefault returns the owner's default set. If none is persisted, a full
// set with every category at neutral is synthesized and returned without
// being written; the lazy default is a read-time construct.
func (r *Resolver) GetDefault(owner string) (Set, error) {
	rec, err := r.store.Get(owner, DefaultRecordKey)
	if errors.Is(err, store.ErrNotFound) {
		return neutralSet(), nil
	}
	if err != nil {
		return Set{}, fmt.Errorf("loading default preferences: %w", err)
	}
	return decodeSet(rec.Payload)
}

// SetDefault replaces the owner's default set wholesale.
func (r *Resolver) SetDefault(owner string, prefs []Preference) (Set, error) {
	if err := validatePreferences(prefs); err != nil {
		return Set{}, err
	}
	slog.Info("setting default food preferences", "owner", owner, "count", len(prefs))
	return r.persist(owner, DefaultRecordKey, "", prefs)
}

// UpdateDefaultOne sets the level for a single category in the default set:
// read (synthesizing if absent), find-or-append, re-persist the whole set.
func (r *Resolver) UpdateDefaultOne(owner string, category Category, level Level) (Set, error) {
	if err := validateEntry(category, level); err != nil {
		return Set{}, err
	}

	current, err := r.GetDefault(owner)
	if err != nil {
		return Set{}, err
	}
	return r.persist(owner, DefaultRecordKey, "", setLevel(current.Preferences, category, level))
}

// GetLocationOverride returns the override set for a location, or absent=false
// when none exists. Absence is a valid outcome meaning "defaults apply".
func (r *Resolver) GetLocationOverride(owner string, key location.Key) (Set, bool, error) {
	rec, err := r.store.Get(owner, OverrideRecordKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return Set{}, false, nil
	}
	if err != nil {
		return Set{}, false, fmt.Errorf("loading location preferences: %w", err)
	}
	s, err := decodeSet(rec.Payload)
	if err != nil {
		return Set{}, false, err
	}
	return s, true, nil
}

// SetLocationOverride replaces the override set for a location. The location
// itself must exist; the override has no meaning without it.
func (r *Resolver) SetLocationOverride(owner string, key location.Key, prefs []Preference) (Set, error) {
	if err := validatePreferences(prefs); err != nil {
		return Set{}, err
	}
	if err := r.requireLocation(owner, key); err != nil {
		return Set{}, err
	}
	slog.Info("setting location food preferences", "owner", owner, "location", key, "count", len(prefs))
	return r.persist(owner, OverrideRecordKey(key), string(key), prefs)
}

// UpdateLocationOverrideOne sets one category's level in a location override
// set. Starts from an empty set when no override exists yet, not from the
// default set: the override only records explicit divergence.
func (r *Resolver) UpdateLocationOverrideOne(owner string, key location.Key, category Category, level Level) (Set, error) {
	if err := validateEntry(category, level); err != nil {
		return Set{}, err
	}
	if err := r.requireLocation(owner, key); err != nil {
		return Set{}, err
	}

	current, _, err := r.GetLocationOverride(owner, key)
	if err != nil {
		return Set{}, err
	}
	return r.persist(owner, OverrideRecordKey(key), string(key), setLevel(current.Preferences, category, level))
}

// DeleteLocationOverride removes the override set, reverting the location to
// defaults. Idempotent: deleting a missing override is not an error.
func (r *Resolver) DeleteLocationOverride(owner string, key location.Key) error {
	if _, err := r.store.Delete(owner, OverrideRecordKey(key)); err != nil {
		return fmt.Errorf("deleting location preferences: %w", err)
	}
	return nil
}

// GetEffective computes the merged view for an owner at a location. With no
// location, it is the default set verbatim. Otherwise the override entries
// replace same-category defaults in place and new categories are appended;
// untouched default order is preserved. Exactly two layers: there is no
// deeper inheritance chain.
func (r *Resolver) GetEffective(owner string, key location.Key) (Set, error) {
	def, err := r.GetDefault(owner)
	if err != nil {
		return Set{}, err
	}
	if key == "" {
		return def, nil
	}

	override, ok, err := r.GetLocationOverride(owner, key)
	if err != nil {
		return Set{}, err
	}
	if !ok {
		return def, nil
	}

	merged := make([]Preference, len(def.Preferences))
	copy(merged, def.Preferences)

	index := make(map[Category]int, len(merged))
	for i, p := range merged {
		index[p.Category] = i
	}
	for _, p := range override.Preferences {
		if i, exists := index[p.Category]; exists {
			merged[i] = p
		} else {
			index[p.Category] = len(merged)
			merged = append(merged, p)
		}
	}

	updatedAt := def.UpdatedAt
	if override.UpdatedAt.After(updatedAt) {
		updatedAt = override.UpdatedAt
	}
	return Set{Preferences: merged, UpdatedAt: updatedAt}, nil
}

func (r *Resolver) requireLocation(owner string, key location.Key) error {
	ok, err := r.locations.Exists(owner, key)
	if err != nil {
		return fmt.Errorf("checking location: %w", err)
	}
	if !ok {
		return apperr.NotFound("location %q not found", key)
	}
	return nil
}

func (r *Resolver) persist(owner, recordKey, locationTag string, prefs []Preference) (Set, error) {
	s := Set{Preferences: prefs, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(s)
	if err != nil {
		return Set{}, fmt.Errorf("marshaling preference set: %w", err)
	}
	if _, err := r.store.Upsert(owner, recordKey, b, store.Hints{
		LocationTag: locationTag,
		RecordType:  "food_preferences",
	}); err != nil {
		return Set{}, fmt.Errorf("persisting preference set: %w", err)
	}
	return s, nil
}

// setLevel finds the entry for category and replaces its level, or appends a
// new entry, preserving the order of everything else.
func setLevel(prefs []Preference, category Category, level Level) []Preference {
	out := make([]Preference, len(prefs))
	copy(out, prefs)
	for i, p := range out {
		if p.Category == category {
			out[i].Level = level
			return out
		}
	}
	return append(out, Preference{Category: category, Level: level})
}

func validatePreferences(prefs []Preference) error {
	seen := make(map[Category]bool, len(prefs))
	for _, p := range prefs {
		if err := validateEntry(p.Category, p.Level); err != nil {
			return err
		}
		if seen[p.Category] {
			return apperr.Validation("duplicate category %q in preference set", p.Category)
		}
		seen[p.Category] = true
	}
	return nil
}

func validateEntry(category Category, level Level) error {
	if !ValidCategory(string(category)) {
		return apperr.Validation("invalid food category: %s", category)
	}
	if !ValidLevel(string(level)) {
		return apperr.Validation("invalid preference level: %s", level)
	}
	return nil
}

func neutralSet() Set {
	prefs := make([]Preference, len(Categories))
	for i, c := range Categories {
		prefs[i] = Preference{Category: c, Level: LevelNeutral}
	}
	return Set{Preferences: prefs, UpdatedAt: time.Now().UTC()}
}

func decodeSet(raw json.RawMessage) (Set, error) {
	var s Set
	if err := json.Unmarshal(raw, &s); err != nil {
		return Set{}, fmt.Errorf("decoding preference set: %w", err)
	}
	return s, nil
}
