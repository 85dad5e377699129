// Package location manages system and user-defined locations on top of the
// generic record store. A location is a record at key "location.<Key>" with
// record_type "location" and the location key denormalized into location_tag.
package location

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SystemType is one of the fixed system location tags.
type SystemType string

const (
	SystemHome   SystemType = "home"
	SystemWork   SystemType = "work"
	SystemGym    SystemType = "gym"
	SystemSchool SystemType = "school"
)

// SystemTypes is the closed system-type universe, in display order.
var SystemTypes = []SystemType{SystemHome, SystemWork, SystemGym, SystemSchool}

func ValidSystemType(s string) bool {
	switch SystemType(s) {
	case SystemHome, SystemWork, SystemGym, SystemSchool:
		return true
	}
	return false
}

// Category classifies a location.
type Category string

const (
	CategoryResidence Category = "residence"
	CategoryWorkplace Category = "workplace"
	CategoryFitness   Category = "fitness"
	CategoryEducation Category = "education"
	CategorySocial    Category = "social"
	CategoryTravel    Category = "travel"
	CategoryOther     Category = "other"
)

func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryResidence, CategoryWorkplace, CategoryFitness, CategoryEducation,
		CategorySocial, CategoryTravel, CategoryOther:
		return true
	}
	return false
}

// Feature is a capability tag attached to a location. Tool consumers route
// behavior on these, which is why a custom location must carry at least one.
type Feature string

const (
	FeatureFoodPreferences     Feature = "food_preferences"
	FeatureDeliverySupport     Feature = "delivery_support"
	FeatureScheduling          Feature = "scheduling"
	FeatureBudgetTracking      Feature = "budget_tracking"
	FeatureRestaurantFavorites Feature = "restaurant_favorites"
	FeatureQuickAccess         Feature = "quick_access"
)

func ValidFeature(s string) bool {
	switch Feature(s) {
	case FeatureFoodPreferences, FeatureDeliverySupport, FeatureScheduling,
		FeatureBudgetTracking, FeatureRestaurantFavorites, FeatureQuickAccess:
		return true
	}
	return false
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Lng)
	}
	return nil
}

// Key identifies a location for an owner: a system tag ("home") or a
// namespaced custom tag ("user_defined.<slug>").
type Key string

const userDefinedNamespace = "user_defined."

func (k Key) IsSystem() bool { return ValidSystemType(string(k)) }

func (k Key) IsUserDefined() bool { return strings.HasPrefix(string(k), userDefinedNamespace) }

// Slug returns the custom-location slug, or "" for system keys.
func (k Key) Slug() string {
	if !k.IsUserDefined() {
		return ""
	}
	return strings.TrimPrefix(string(k), userDefinedNamespace)
}

func (k Key) String() string { return string(k) }

// UserDefinedKey builds the namespaced key for a normalized slug.
func UserDefinedKey(slug string) Key {
	return Key(userDefinedNamespace + slug)
}

// recordKeyPrefix is the store-key namespace for locations.
const recordKeyPrefix = "location."

// RecordKey is the store key for a location: "location.<Key>".
func RecordKey(k Key) string { return recordKeyPrefix + string(k) }

// KeyFromRecordKey recovers the location key from a store key.
func KeyFromRecordKey(storeKey string) Key {
	return Key(strings.TrimPrefix(storeKey, recordKeyPrefix))
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9_]+`)

// NormalizeSlug lowercases a custom location name and maps every run of
// characters outside [a-z0-9_] to a single underscore.
func NormalizeSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugCleaner.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Location is the logical entity materialized from a location record.
type Location struct {
	Key              Key         `json:"locationKey"`
	Owner            string      `json:"userId"`
	Address          string      `json:"address"`
	Coordinates      Coordinates `json:"coordinates"`
	Nickname         string      `json:"nickname"`
	Category         Category    `json:"category"`
	Features         []Feature   `json:"features"`
	IsSystemLocation bool        `json:"isSystemLocation"`
	ParentCategory   Category    `json:"parentCategory,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	LastUsedAt       time.Time   `json:"lastUsed"`
}

// payload is the persisted shape inside the record's JSON payload. Field
// names are part of the stored-data compatibility surface.
type payload struct {
	Address          string      `json:"address"`
	Coordinates      Coordinates `json:"coordinates"`
	Nickname         string      `json:"nickname"`
	Category         Category    `json:"category"`
	Features         []Feature   `json:"features"`
	IsSystemLocation bool        `json:"isSystemLocation"`
	ParentCategory   Category    `json:"parentCategory,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	LastUsedAt       time.Time   `json:"lastUsed"`
}

// BudgetRange is a default spend band attached to system location types.
type BudgetRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SystemConfig is the static configuration resolved for a system location
// type when the caller does not supply overrides.
type SystemConfig struct {
	Category           Category
	Features           []Feature
	DisplayName        string
	Description        string
	DefaultBudgetRange BudgetRange
}

// SystemConfigs maps each system type to its defaults.
var SystemConfigs = map[SystemType]SystemConfig{
	SystemHome: {
		Category: CategoryResidence,
		Features: []Feature{
			FeatureFoodPreferences, FeatureDeliverySupport, FeatureScheduling,
			FeatureBudgetTracking, FeatureRestaurantFavorites, FeatureQuickAccess,
		},
		DisplayName:        "Home",
		Description:        "Your primary residence",
		DefaultBudgetRange: BudgetRange{Min: 10, Max: 100},
	},
	SystemWork: {
		Category: CategoryWorkplace,
		Features: []Feature{
			FeatureFoodPreferences, FeatureScheduling, FeatureBudgetTracking,
			FeatureRestaurantFavorites, FeatureQuickAccess,
		},
		DisplayName:        "Work",
		Description:        "Your primary workplace",
		DefaultBudgetRange: BudgetRange{Min: 5, Max: 25},
	},
	SystemGym: {
		Category:           CategoryFitness,
		Features:           []Feature{FeatureFoodPreferences, FeatureQuickAccess},
		DisplayName:        "Gym",
		Description:        "Your fitness center",
		DefaultBudgetRange: BudgetRange{Min: 5, Max: 20},
	},
	SystemSchool: {
		Category: CategoryEducation,
		Features: []Feature{
			FeatureFoodPreferences, FeatureScheduling, FeatureBudgetTracking, FeatureQuickAccess,
		},
		DisplayName:        "School",
		Description:        "Your educational institution",
		DefaultBudgetRange: BudgetRange{Min: 5, Max: 15},
	},
}
