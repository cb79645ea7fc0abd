package models

import (
	"fmt"

	"github.com/jinzhu/gorm"
)

// Recipe represents an ice-cream recipe. Ingredient and supplier details are
// managed elsewhere; the scheduler only needs the identity.
type Recipe struct {
	gorm.Model
	OwnerID  string `gorm:"index;not null"`
	Name     string
	Category string
	Notes    string
}

// MinTubsPerBatch is the smallest yield a recipe/machine pair may record
const MinTubsPerBatch = 0.1

// RecipeMachineYield records how many tubs one batch of a recipe produces on
// a specific machine. At most one row exists per (recipe, machine) pair.
type RecipeMachineYield struct {
	gorm.Model
	OwnerID      string  `gorm:"index;not null"`
	RecipeID     uint    `gorm:"unique_index:idx_recipe_machine_yield"`
	MachineID    uint    `gorm:"unique_index:idx_recipe_machine_yield"`
	TubsPerBatch float64
}

// ValidateYield validates a recipe/machine yield
func ValidateYield(y *RecipeMachineYield) error {
	if y.RecipeID == 0 || y.MachineID == 0 {
		return fmt.Errorf("yield requires both a recipe and a machine")
	}
	if y.TubsPerBatch < MinTubsPerBatch {
		return fmt.Errorf("tubs per batch must be at least %.1f", MinTubsPerBatch)
	}
	return nil
}
