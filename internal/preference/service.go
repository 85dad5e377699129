// Package preference is the plain key-value preference service: CRUD
// pass-through over the record store with existence checks only. Keys here
// are caller-chosen and unprefixed; the location and food-preference
// namespaces are managed by their own packages.
package preference

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/perctx/perctx/internal/apperr"
	"github.com/perctx/perctx/internal/store"
)

// reservedPrefixes are the namespaces owned by the location registry and the
// food preference resolver. Plain preferences must not collide with them.
var reservedPrefixes = []string{"location.", "food_preferences."}

// Preference is the response shape for one stored preference.
type Preference struct {
	ID        string          `json:"id"`
	Owner     string          `json:"userId"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Type      string          `json:"type,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Service implements preference CRUD on the record store.
type Service struct {
	store *store.Store
}

func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// Create stores a new preference. Conflict if the key is already present.
func (s *Service) Create(owner, key string, data json.RawMessage, typ string) (Preference, error) {
	if err := validateKey(key); err != nil {
		return Preference{}, err
	}
	if typ == "" {
		typ = inferType(data)
	}

	slog.Info("creating preference", "owner", owner, "key", key)
	rec, err := s.store.Put(owner, key, data, store.Hints{RecordType: typ})
	if errors.Is(err, store.ErrDuplicateKey) {
		return Preference{}, apperr.Conflict("preference already exists for this user and key")
	}
	if err != nil {
		return Preference{}, fmt.Errorf("persisting preference: %w", err)
	}
	return toPreference(rec), nil
}

// Get returns the preference at key, or NotFound.
func (s *Service) Get(owner, key string) (Preference, error) {
	rec, err := s.store.Get(owner, key)
	if errors.Is(err, store.ErrNotFound) {
		return Preference{}, apperr.NotFound("preference not found")
	}
	if err != nil {
		return Preference{}, fmt.Errorf("loading preference: %w", err)
	}
	return toPreference(rec), nil
}

// List returns every plain preference for the owner, excluding the location
// and food-preference namespaces.
func (s *Service) List(owner string) ([]Preference, error) {
	// Plain preferences have a caller-chosen record_type, so scan by key
	// prefix exclusion rather than by type.
	recs, err := s.store.QueryByOwnerAndKeyPrefix(owner, "")
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}

	prefs := make([]Preference, 0, len(recs))
	for _, rec := range recs {
		if reserved(rec.Key) {
			continue
		}
		prefs = append(prefs, toPreference(rec))
	}
	return prefs, nil
}

// ListKeys returns the keys of the owner's plain preferences.
func (s *Service) ListKeys(owner string) ([]string, error) {
	prefs, err := s.List(owner)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(prefs))
	for i, p := range prefs {
		keys[i] = p.Key
	}
	return keys, nil
}

// Update replaces the data of an existing preference. NotFound if absent.
func (s *Service) Update(owner, key string, data json.RawMessage) (Preference, error) {
	if err := validateKey(key); err != nil {
		return Preference{}, err
	}
	rec, err := s.store.Get(owner, key)
	if errors.Is(err, store.ErrNotFound) {
		return Preference{}, apperr.NotFound("preference not found")
	}
	if err != nil {
		return Preference{}, fmt.Errorf("loading preference: %w", err)
	}

	slog.Info("updating preference", "owner", owner, "key", key)
	updated, err := s.store.Upsert(owner, key, data, store.Hints{RecordType: rec.RecordType})
	if err != nil {
		return Preference{}, fmt.Errorf("persisting preference: %w", err)
	}
	return toPreference(updated), nil
}

// Delete removes a preference. NotFound if absent.
func (s *Service) Delete(owner, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	existed, err := s.store.Delete(owner, key)
	if err != nil {
		return fmt.Errorf("deleting preference: %w", err)
	}
	if !existed {
		return apperr.NotFound("preference not found")
	}
	slog.Info("deleted preference", "owner", owner, "key", key)
	return nil
}

// Import creates or replaces a preference wholesale. Used by data imports
// where create-vs-update is not known up front.
func (s *Service) Import(owner, key string, data json.RawMessage) (Preference, error) {
	if err := validateKey(key); err != nil {
		return Preference{}, err
	}
	rec, err := s.store.Upsert(owner, key, data, store.Hints{RecordType: inferType(data)})
	if err != nil {
		return Preference{}, fmt.Errorf("persisting preference: %w", err)
	}
	return toPreference(rec), nil
}

func validateKey(key string) error {
	if key == "" {
		return apperr.Validation("preference key is required")
	}
	if reserved(key) {
		return apperr.Validation("key %q is in a reserved namespace", key)
	}
	return nil
}

func reserved(key string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// inferType classifies the JSON payload the way the original service did
// when the caller omits an explicit type.
func inferType(data json.RawMessage) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "object"
	}
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	default:
		return "object"
	}
}

func toPreference(rec store.Record) Preference {
	return Preference{
		ID:        rec.ID,
		Owner:     rec.Owner,
		Key:       rec.Key,
		Data:      rec.Payload,
		Type:      rec.RecordType,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
