// Package validation holds the shared request validator with the enum
// validators the API handlers tag their DTOs with.
package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
)

// Validate is a shared validator instance
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	register("system_location_type", func(fl validator.FieldLevel) bool {
		return location.ValidSystemType(fl.Field().String())
	})
	register("location_category", func(fl validator.FieldLevel) bool {
		return location.ValidCategory(fl.Field().String())
	})
	register("location_feature", func(fl validator.FieldLevel) bool {
		return location.ValidFeature(fl.Field().String())
	})
	register("food_category", func(fl validator.FieldLevel) bool {
		return foodpref.ValidCategory(fl.Field().String())
	})
	register("food_level", func(fl validator.FieldLevel) bool {
		return foodpref.ValidLevel(fl.Field().String())
	})
}

func register(tag string, fn validator.Func) {
	if err := Validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
	}
}
