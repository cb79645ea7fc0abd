package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint          { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestComputeCompletion(t *testing.T) {
	plan := ProductionPlan{Recipes: []PlanRecipe{
		{RecipeID: 1, PlannedAmount: 10, CompletedAmount: 0},
		{RecipeID: 2, PlannedAmount: 5, CompletedAmount: 5},
	}}
	assert.Equal(t, 33.3, plan.ComputeCompletion())

	plan.Recipes[0].CompletedAmount = 40
	assert.Equal(t, 100.0, plan.ComputeCompletion(), "completion is capped at 100")

	empty := ProductionPlan{}
	assert.Equal(t, 0.0, empty.ComputeCompletion())
}

func TestPlanIsLocked(t *testing.T) {
	for status, locked := range map[PlanStatus]bool{
		PlanStatusDraft:     false,
		PlanStatusActive:    false,
		PlanStatusCompleted: true,
		PlanStatusArchived:  true,
	} {
		plan := ProductionPlan{Status: status}
		assert.Equal(t, locked, plan.IsLocked(), status)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(BlockStatusScheduled, BlockStatusInProgress))
	assert.True(t, CanTransition(BlockStatusScheduled, BlockStatusCancelled))
	assert.True(t, CanTransition(BlockStatusInProgress, BlockStatusCompleted))
	assert.False(t, CanTransition(BlockStatusInProgress, BlockStatusScheduled))
	assert.False(t, CanTransition(BlockStatusCompleted, BlockStatusCancelled))
	assert.False(t, CanTransition(BlockStatusCancelled, BlockStatusScheduled))
}

func TestValidateBlock(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	valid := ProductionBlock{
		BlockType:  BlockTypeProduction,
		Status:     BlockStatusScheduled,
		MachineID:  1,
		EmployeeID: 2,
		RecipeID:   uintPtr(3),
		Quantity:   floatPtr(12),
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
	}
	require.NoError(t, ValidateBlock(&valid))

	noRecipe := valid
	noRecipe.RecipeID = nil
	assert.Error(t, ValidateBlock(&noRecipe))

	backwards := valid
	backwards.EndTime = start
	assert.Error(t, ValidateBlock(&backwards))

	prepWithQuantity := valid
	prepWithQuantity.BlockType = BlockTypePrep
	assert.Error(t, ValidateBlock(&prepWithQuantity))

	unknown := valid
	unknown.Status = "paused"
	assert.Error(t, ValidateBlock(&unknown))
}

func TestBlockOverlaps(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 3, 4, h, 0, 0, 0, time.UTC) }
	block := ProductionBlock{StartTime: at(10), EndTime: at(11)}

	assert.True(t, block.Overlaps(at(9), at(11)))
	assert.True(t, block.Overlaps(at(10), at(12)))
	assert.False(t, block.Overlaps(at(11), at(12)), "touching end")
	assert.False(t, block.Overlaps(at(8), at(10)), "touching start")
}

func TestProductionContribution(t *testing.T) {
	block := ProductionBlock{
		BlockType: BlockTypeProduction,
		RecipeID:  uintPtr(4),
		Quantity:  floatPtr(6),
		Status:    BlockStatusScheduled,
	}

	recipe, planned, completed := block.ProductionContribution()
	assert.Equal(t, uint(4), recipe)
	assert.Equal(t, 6.0, planned)
	assert.Equal(t, 0.0, completed)

	block.Status = BlockStatusCompleted
	_, planned, completed = block.ProductionContribution()
	assert.Equal(t, 6.0, planned)
	assert.Equal(t, 6.0, completed)

	block.Status = BlockStatusCancelled
	_, planned, completed = block.ProductionContribution()
	assert.Zero(t, planned)
	assert.Zero(t, completed)

	cleaning := ProductionBlock{BlockType: BlockTypeCleaning, Status: BlockStatusScheduled}
	recipe, planned, _ = cleaning.ProductionContribution()
	assert.Zero(t, recipe)
	assert.Zero(t, planned)
}

func TestEmployeeCoversWindow(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	e := Employee{Shifts: []Shift{{DayOfWeek: "Monday", StartTime: "08:00", EndTime: "16:00"}}}

	assert.True(t, e.CoversWindow(monday.Add(9*time.Hour), monday.Add(11*time.Hour)))
	assert.False(t, e.CoversWindow(monday.Add(15*time.Hour), monday.Add(17*time.Hour)))
	assert.False(t, e.CoversWindow(monday.Add(33*time.Hour), monday.Add(34*time.Hour)), "tuesday has no shift")

	free := Employee{}
	assert.True(t, free.CoversWindow(monday, monday.Add(time.Hour)))
}

func TestEmployeeIsCertifiedFor(t *testing.T) {
	e := Employee{Certifications: []MachineCertification{{MachineID: 2}, {MachineID: 5}}}
	assert.True(t, e.IsCertifiedFor(5))
	assert.False(t, e.IsCertifiedFor(3))
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)
	assert.Equal(t, "09:30", FormatClock(minutes))

	_, err = ParseClock("9.30")
	assert.Error(t, err)
	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestValidateMachine(t *testing.T) {
	m := Machine{Name: "Carpigiani LB 502", TubCapacity: 4, ProductionTime: 30, Status: MachineStatusAvailable}
	require.NoError(t, ValidateMachine(&m))

	m.TubCapacity = 0
	assert.Error(t, ValidateMachine(&m))
}

func TestChangeSetRoundTripsThroughDriverValue(t *testing.T) {
	changes := ChangeSet{{Field: "status", Old: "scheduled", New: "completed"}}
	value, err := changes.Value()
	require.NoError(t, err)

	var decoded ChangeSet
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 1)
	assert.Equal(t, "status", decoded[0].Field)
	assert.Equal(t, "completed", decoded[0].New)
}
