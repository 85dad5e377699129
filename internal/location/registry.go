package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/perctx/perctx/internal/apperr"
	"github.com/perctx/perctx/internal/store"
)

// Registry manages location records for all owners. It holds no state of its
// own beyond the backing store; every method is a single round-trip or a
// small fixed sequence of round-trips.
type Registry struct {
	store *store.Store
}

func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// CreateSystemInput carries the caller-supplied fields for a system location.
// Nickname is optional; absent fields resolve from SystemConfigs.
type CreateSystemInput struct {
	Type        SystemType
	Address     string
	Coordinates Coordinates
	Nickname    string
	Notes       string
}

// CreateSystem creates the one allowed location of the given system type for
// an owner. The store's unique constraint is the real duplicate guard; the
// read-check only produces a friendlier Conflict in the common case.
func (r *Registry) CreateSystem(owner string, in CreateSystemInput) (Location, error) {
	if !ValidSystemType(string(in.Type)) {
		return Location{}, apperr.Validation("invalid system location type: %s", in.Type)
	}
	if err := in.Coordinates.Validate(); err != nil {
		return Location{}, apperr.Validation("%v", err)
	}

	key := Key(in.Type)
	storeKey := RecordKey(key)

	if _, err := r.store.Get(owner, storeKey); err == nil {
		return Location{}, apperr.Conflict("%s location already exists for this user", in.Type)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Location{}, fmt.Errorf("checking existing location: %w", err)
	}

	cfg := SystemConfigs[in.Type]
	nickname := in.Nickname
	if nickname == "" {
		nickname = cfg.DisplayName
	}

	now := time.Now().UTC()
	p := payload{
		Address:          in.Address,
		Coordinates:      in.Coordinates,
		Nickname:         nickname,
		Category:         cfg.Category,
		Features:         cfg.Features,
		IsSystemLocation: true,
		Notes:            in.Notes,
		CreatedAt:        now,
		LastUsedAt:       now,
	}

	slog.Info("creating system location", "owner", owner, "type", in.Type)
	return r.persistNew(owner, key, storeKey, p)
}

// CreateCustomInput carries the caller-supplied fields for a user-defined
// location. Features must be non-empty: downstream tool consumers rely on at
// least one capability tag to route behavior.
type CreateCustomInput struct {
	Name           string
	Address        string
	Coordinates    Coordinates
	Nickname       string
	Category       Category
	Features       []Feature
	ParentCategory Category
	Notes          string
}

// CreateCustom creates a user-defined location under a normalized slug.
func (r *Registry) CreateCustom(owner string, in CreateCustomInput) (Location, error) {
	slug := NormalizeSlug(in.Name)
	if slug == "" {
		return Location{}, apperr.Validation("location name %q normalizes to an empty slug", in.Name)
	}
	if in.Nickname == "" {
		return Location{}, apperr.Validation("nickname is required for custom locations")
	}
	if !ValidCategory(string(in.Category)) {
		return Location{}, apperr.Validation("invalid location category: %s", in.Category)
	}
	if len(in.Features) == 0 {
		return Location{}, apperr.Validation("at least one feature is required")
	}
	for _, f := range in.Features {
		if !ValidFeature(string(f)) {
			return Location{}, apperr.Validation("invalid location feature: %s", f)
		}
	}
	if in.ParentCategory != "" && !ValidCategory(string(in.ParentCategory)) {
		return Location{}, apperr.Validation("invalid parent category: %s", in.ParentCategory)
	}
	if err := in.Coordinates.Validate(); err != nil {
		return Location{}, apperr.Validation("%v", err)
	}

	key := UserDefinedKey(slug)
	storeKey := RecordKey(key)

	if _, err := r.store.Get(owner, storeKey); err == nil {
		return Location{}, apperr.Conflict("location %q already exists for this user", slug)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Location{}, fmt.Errorf("checking existing location: %w", err)
	}

	now := time.Now().UTC()
	p := payload{
		Address:          in.Address,
		Coordinates:      in.Coordinates,
		Nickname:         in.Nickname,
		Category:         in.Category,
		Features:         in.Features,
		IsSystemLocation: false,
		ParentCategory:   in.ParentCategory,
		Notes:            in.Notes,
		CreatedAt:        now,
		LastUsedAt:       now,
	}

	slog.Info("creating custom location", "owner", owner, "slug", slug)
	return r.persistNew(owner, key, storeKey, p)
}

func (r *Registry) persistNew(owner string, key Key, storeKey string, p payload) (Location, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return Location{}, fmt.Errorf("marshaling location payload: %w", err)
	}

	rec, err := r.store.Put(owner, storeKey, b, store.Hints{
		LocationTag: string(key),
		RecordType:  "location",
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		// Lost a create race after the read-check passed.
		return Location{}, apperr.Conflict("location %q already exists for this user", key)
	}
	if err != nil {
		return Location{}, fmt.Errorf("persisting location: %w", err)
	}
	return toLocation(rec.Owner, key, p), nil
}

// Get returns the location at key, or NotFound.
func (r *Registry) Get(owner string, key Key) (Location, error) {
	rec, err := r.store.Get(owner, RecordKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return Location{}, apperr.NotFound("location %q not found", key)
	}
	if err != nil {
		return Location{}, fmt.Errorf("loading location: %w", err)
	}

	p, err := decodePayload(rec.Payload)
	if err != nil {
		return Location{}, err
	}
	return toLocation(owner, key, p), nil
}

// Exists reports whether a location record is present at key.
func (r *Registry) Exists(owner string, key Key) (bool, error) {
	_, err := r.store.Get(owner, RecordKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListAll returns every location for the owner. Per-owner location counts are
// small, so the system/custom split in ListSystem/ListCustom is a client-side
// filter rather than a separate index.
func (r *Registry) ListAll(owner string) ([]Location, error) {
	recs, err := r.store.QueryByOwnerAndType(owner, "location")
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}

	locations := make([]Location, 0, len(recs))
	for _, rec := range recs {
		p, err := decodePayload(rec.Payload)
		if err != nil {
			return nil, err
		}
		locations = append(locations, toLocation(owner, KeyFromRecordKey(rec.Key), p))
	}
	return locations, nil
}

func (r *Registry) ListSystem(owner string) ([]Location, error) {
	return r.listFiltered(owner, true)
}

func (r *Registry) ListCustom(owner string) ([]Location, error) {
	return r.listFiltered(owner, false)
}

func (r *Registry) listFiltered(owner string, system bool) ([]Location, error) {
	all, err := r.ListAll(owner)
	if err != nil {
		return nil, err
	}
	filtered := make([]Location, 0, len(all))
	for _, loc := range all {
		if loc.IsSystemLocation == system {
			filtered = append(filtered, loc)
		}
	}
	return filtered, nil
}

// UpdateInput holds the optional fields of a partial update; nil pointers
// leave the existing value untouched.
type UpdateInput struct {
	Address        *string
	Coordinates    *Coordinates
	Nickname       *string
	Category       *Category
	Features       []Feature
	ParentCategory *Category
	Notes          *string
}

// Update merges the provided fields into the existing payload and always
// refreshes the last-used timestamp. Fails NotFound if the location is
// absent. Read-modify-write: under concurrent updates to the same key the
// last write wins and an intermediate update can be lost.
func (r *Registry) Update(owner string, key Key, in UpdateInput) (Location, error) {
	storeKey := RecordKey(key)
	rec, err := r.store.Get(owner, storeKey)
	if errors.Is(err, store.ErrNotFound) {
		return Location{}, apperr.NotFound("location %q not found", key)
	}
	if err != nil {
		return Location{}, fmt.Errorf("loading location: %w", err)
	}

	p, err := decodePayload(rec.Payload)
	if err != nil {
		return Location{}, err
	}

	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.Coordinates != nil {
		if err := in.Coordinates.Validate(); err != nil {
			return Location{}, apperr.Validation("%v", err)
		}
		p.Coordinates = *in.Coordinates
	}
	if in.Nickname != nil {
		p.Nickname = *in.Nickname
	}
	if in.Category != nil {
		if !ValidCategory(string(*in.Category)) {
			return Location{}, apperr.Validation("invalid location category: %s", *in.Category)
		}
		p.Category = *in.Category
	}
	if in.Features != nil {
		if len(in.Features) == 0 {
			return Location{}, apperr.Validation("at least one feature is required")
		}
		for _, f := range in.Features {
			if !ValidFeature(string(f)) {
				return Location{}, apperr.Validation("invalid location feature: %s", f)
			}
		}
		p.Features = in.Features
	}
	if in.ParentCategory != nil {
		if !ValidCategory(string(*in.ParentCategory)) {
			return Location{}, apperr.Validation("invalid parent category: %s", *in.ParentCategory)
		}
		p.ParentCategory = *in.ParentCategory
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}
	p.LastUsedAt = time.Now().UTC()

	b, err := json.Marshal(p)
	if err != nil {
		return Location{}, fmt.Errorf("marshaling location payload: %w", err)
	}
	if _, err := r.store.Upsert(owner, storeKey, b, store.Hints{
		LocationTag: string(key),
		RecordType:  "location",
	}); err != nil {
		return Location{}, fmt.Errorf("persisting location: %w", err)
	}

	slog.Info("updated location", "owner", owner, "key", key)
	return toLocation(owner, key, p), nil
}

// Delete removes the location record. Fails NotFound if absent. Dependent
// food-preference override records are not removed here; the maintenance
// sweeper reclaims them.
func (r *Registry) Delete(owner string, key Key) error {
	existed, err := r.store.Delete(owner, RecordKey(key))
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	if !existed {
		return apperr.NotFound("location %q not found", key)
	}
	slog.Info("deleted location", "owner", owner, "key", key)
	return nil
}

// MarkUsed refreshes the last-used timestamp. Unlike Update, a missing
// location is a no-op: mark-used is a soft hint, not a command.
func (r *Registry) MarkUsed(owner string, key Key) error {
	storeKey := RecordKey(key)
	rec, err := r.store.Get(owner, storeKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading location: %w", err)
	}

	p, err := decodePayload(rec.Payload)
	if err != nil {
		return err
	}
	p.LastUsedAt = time.Now().UTC()

	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling location payload: %w", err)
	}
	if _, err := r.store.Upsert(owner, storeKey, b, store.Hints{
		LocationTag: string(key),
		RecordType:  "location",
	}); err != nil {
		return fmt.Errorf("persisting location: %w", err)
	}
	return nil
}

// AvailableSystemTypes returns the system types the owner has not created
// yet, supporting "what can I still add" flows.
func (r *Registry) AvailableSystemTypes(owner string) ([]SystemType, error) {
	existing, err := r.ListSystem(owner)
	if err != nil {
		return nil, err
	}

	taken := make(map[SystemType]bool, len(existing))
	for _, loc := range existing {
		taken[SystemType(loc.Key)] = true
	}

	available := make([]SystemType, 0, len(SystemTypes))
	for _, t := range SystemTypes {
		if !taken[t] {
			available = append(available, t)
		}
	}
	return available, nil
}

func decodePayload(raw json.RawMessage) (payload, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return payload{}, fmt.Errorf("decoding location payload: %w", err)
	}
	return p, nil
}

func toLocation(owner string, key Key, p payload) Location {
	return Location{
		Key:              key,
		Owner:            owner,
		Address:          p.Address,
		Coordinates:      p.Coordinates,
		Nickname:         p.Nickname,
		Category:         p.Category,
		Features:         p.Features,
		IsSystemLocation: p.IsSystemLocation,
		ParentCategory:   p.ParentCategory,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
		LastUsedAt:       p.LastUsedAt,
	}
}
