package models

import (
	"math"
	"time"

	"github.com/jinzhu/gorm"
)

// ProductionPlan is a weekly container of blocks and recipe targets
type ProductionPlan struct {
	gorm.Model
	OwnerID          string `gorm:"index;not null"`
	Name             string
	WeekStartDate    time.Time
	Status           PlanStatus   `gorm:"type:varchar(32)"`
	Recipes          []PlanRecipe `gorm:"foreignkey:PlanID"`
	CompletionStatus float64
	Version          int
	Notes            string
}

// PlanRecipe is a production target for one recipe within a plan
type PlanRecipe struct {
	gorm.Model
	PlanID          uint `gorm:"index"`
	RecipeID        uint `gorm:"index"`
	PlannedAmount   float64
	CompletedAmount float64
}

// PlanStatus represents the lifecycle state of a plan
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusArchived  PlanStatus = "archived"
)

// IsValid reports whether the status is a known plan status
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusActive, PlanStatusCompleted, PlanStatusArchived:
		return true
	}
	return false
}

// IsLocked reports whether the plan's blocks are immutable
func (p *ProductionPlan) IsLocked() bool {
	return p.Status == PlanStatusCompleted || p.Status == PlanStatusArchived
}

// ComputeCompletion returns min(100, 100 * completed / planned) over the
// plan's recipes, rounded to one decimal place.
func (p *ProductionPlan) ComputeCompletion() float64 {
	var planned, completed float64
	for _, r := range p.Recipes {
		planned += r.PlannedAmount
		completed += r.CompletedAmount
	}
	if planned <= 0 {
		return 0
	}
	pct := math.Min(100, 100*completed/planned)
	return math.Round(pct*10) / 10
}

// RecipeEntry returns the plan's entry for a recipe, or nil
func (p *ProductionPlan) RecipeEntry(recipeID uint) *PlanRecipe {
	for i := range p.Recipes {
		if p.Recipes[i].RecipeID == recipeID {
			return &p.Recipes[i]
		}
	}
	return nil
}
