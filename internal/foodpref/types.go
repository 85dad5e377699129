// Package foodpref manages default and per-location food preference sets and
// resolves the effective preferences for an owner at a location.
package foodpref

import (
	"time"

	"github.com/perctx/perctx/internal/location"
)

// Category is a closed food category enum.
type Category string

const (
	CategoryItalian       Category = "italian"
	CategoryChinese       Category = "chinese"
	CategoryMexican       Category = "mexican"
	CategoryAmerican      Category = "american"
	CategoryIndian        Category = "indian"
	CategoryJapanese      Category = "japanese"
	CategoryThai          Category = "thai"
	CategoryMediterranean Category = "mediterranean"
	CategoryFastFood      Category = "fast_food"
	CategoryHealthy       Category = "healthy"
	CategoryVegetarian    Category = "vegetarian"
	CategoryVegan         Category = "vegan"
	CategoryPizza         Category = "pizza"
	CategorySeafood       Category = "seafood"
	CategoryBBQ           Category = "bbq"
	CategoryCoffee        Category = "coffee"
	CategoryDessert       Category = "dessert"
)

// Categories lists every food category in canonical order. The lazy default
// set is synthesized from this list.
var Categories = []Category{
	CategoryItalian, CategoryChinese, CategoryMexican, CategoryAmerican,
	CategoryIndian, CategoryJapanese, CategoryThai, CategoryMediterranean,
	CategoryFastFood, CategoryHealthy, CategoryVegetarian, CategoryVegan,
	CategoryPizza, CategorySeafood, CategoryBBQ, CategoryCoffee, CategoryDessert,
}

func ValidCategory(s string) bool {
	for _, c := range Categories {
		if Category(s) == c {
			return true
		}
	}
	return false
}

// Level is the ordered preference scale. The ordinal is for display and
// scoring only; merge precedence is positional (override beats default),
// never level-based.
type Level string

const (
	LevelLove    Level = "love"
	LevelLike    Level = "like"
	LevelNeutral Level = "neutral"
	LevelDislike Level = "dislike"
	LevelHate    Level = "hate"
)

// Ordinal returns the 5..1 score for a level, 0 for an unknown value.
func (l Level) Ordinal() int {
	switch l {
	case LevelLove:
		return 5
	case LevelLike:
		return 4
	case LevelNeutral:
		return 3
	case LevelDislike:
		return 2
	case LevelHate:
		return 1
	}
	return 0
}

func ValidLevel(s string) bool {
	return Level(s).Ordinal() != 0
}

// Preference is one (category, level) entry. Within a set, category is
// unique: at most one level per category.
type Preference struct {
	Category Category `json:"category"`
	Level    Level    `json:"level"`
}

// Set is a persisted preference set, either the owner's default set or an
// override set scoped to one location.
type Set struct {
	Preferences []Preference `json:"preferences"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// DefaultRecordKey is the store key for an owner's default set.
const DefaultRecordKey = "food_preferences.default"

// OverrideKeyPrefix is the store-key namespace for location override sets.
const OverrideKeyPrefix = "food_preferences.location."

// OverrideRecordKey is the store key for a location's override set.
func OverrideRecordKey(key location.Key) string {
	return OverrideKeyPrefix + string(key)
}
