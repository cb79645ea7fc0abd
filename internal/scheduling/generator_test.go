package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creamery/internal/apperr"
	"creamery/internal/models"
	"creamery/internal/testutil"
)

func TestGenerate_EmptyRecipeListIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	for i := 0; i < 2; i++ {
		result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, f.scheduler.DefaultGenerateOptions())
		require.NoError(t, err)
		assert.Empty(t, result.CreatedBlocks)
		assert.Empty(t, result.UnscheduledRecipes)
	}

	blocks, err := f.store.ListPlanBlocks(ctx, testutil.Owner, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	reloaded, err := f.store.GetPlan(ctx, testutil.Owner, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Version, reloaded.Version)
}

func TestGenerate_SchedulesRecipeWithDefaultYield(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	rosa := testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID)
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.Recipes = []RecipeRequest{{RecipeID: vanilla.ID, PlannedAmount: 10}}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	require.Empty(t, result.UnscheduledRecipes)
	require.Len(t, result.CreatedBlocks, 3)

	prep, production, cleaning := result.CreatedBlocks[0], result.CreatedBlocks[1], result.CreatedBlocks[2]
	assert.Equal(t, models.BlockTypePrep, prep.BlockType)
	assert.True(t, prep.StartTime.Equal(at(0, 8, 0)))
	assert.True(t, prep.EndTime.Equal(at(0, 8, 15)))
	// ceil(10 / 3.0) = 4 batches of 30 minutes
	assert.True(t, production.EndTime.Equal(at(0, 10, 15)))
	assert.True(t, cleaning.EndTime.Equal(at(0, 10, 30)))
	assert.Equal(t, 10.0, *production.Quantity)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, Assignment{RecipeID: vanilla.ID, MachineID: freezer.ID, EmployeeID: rosa.ID}, result.Assignments[0])

	reloaded, err := f.store.GetPlan(ctx, testutil.Owner, plan.ID)
	require.NoError(t, err)
	entry := reloaded.RecipeEntry(vanilla.ID)
	require.NotNil(t, entry)
	assert.Equal(t, 10.0, entry.PlannedAmount)

	blocks, err := f.store.ListPlanBlocks(ctx, testutil.Owner, plan.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{blocks[0].Sequence, blocks[1].Sequence, blocks[2].Sequence})

	assert.Equal(t, []string{EventPlanGenerated}, f.publisher.types())
	assert.Equal(t, 3, f.recorder.created["generator"])
	assert.Equal(t, 1, f.recorder.runs)
}

func TestGenerate_LaterRecipesSeeEarlierCommits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID)
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	mango := testutil.SeedRecipe(t, f.store, "Mango")
	testutil.SeedYield(t, f.store, mango.ID, freezer.ID, 4)
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.IncludePrepBlocks = false
	opts.IncludeCleaningBlocks = false
	opts.Recipes = []RecipeRequest{
		{RecipeID: vanilla.ID, PlannedAmount: 6},
		{RecipeID: mango.ID, PlannedAmount: 8},
		{RecipeID: vanilla.ID, PlannedAmount: 3},
	}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	require.Len(t, result.CreatedBlocks, 3)

	assert.True(t, result.CreatedBlocks[0].StartTime.Equal(at(0, 8, 0)))
	assert.True(t, result.CreatedBlocks[1].StartTime.Equal(at(0, 9, 0)))
	assert.True(t, result.CreatedBlocks[2].StartTime.Equal(at(0, 10, 0)))
	assert.True(t, result.CreatedBlocks[2].EndTime.Equal(at(0, 10, 30)))
	for _, a := range result.Assignments {
		assert.False(t, a.Forced)
	}

	reloaded, err := f.store.GetPlan(ctx, testutil.Owner, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, reloaded.RecipeEntry(vanilla.ID).PlannedAmount)
	assert.Equal(t, 8.0, reloaded.RecipeEntry(mango.ID).PlannedAmount)
}

func TestGenerate_PartialSuccessWithReasons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID)
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	sorbet := testutil.SeedRecipe(t, f.store, "Sorbet")
	testutil.SeedYield(t, f.store, sorbet.ID, freezer.ID, 6)
	marathon := testutil.SeedRecipe(t, f.store, "Marathon")
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.Recipes = []RecipeRequest{
		{RecipeID: 9999, PlannedAmount: 4},
		{RecipeID: sorbet.ID, PlannedAmount: 4},
		{RecipeID: marathon.ID, PlannedAmount: 100},
		{RecipeID: vanilla.ID, PlannedAmount: 3},
	}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)

	reasons := map[uint]string{}
	for _, u := range result.UnscheduledRecipes {
		reasons[u.RecipeID] = u.Reason
		assert.NotEmpty(t, u.Message)
	}
	assert.Equal(t, map[uint]string{
		9999:        ReasonUnknownRecipe,
		sorbet.ID:   ReasonNoSuitableMachine,
		marathon.ID: ReasonNoSlot,
	}, reasons)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, vanilla.ID, result.Assignments[0].RecipeID)
	assert.Len(t, result.CreatedBlocks, 3)
	assert.Equal(t, 1, f.recorder.unscheduled[ReasonNoSlot])
}

func TestGenerate_NoCertifiedEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	other := testutil.SeedMachine(t, f.store, "Other", 2, 30)
	testutil.SeedEmployee(t, f.store, "Rosa", other.ID)
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	testutil.SeedYield(t, f.store, vanilla.ID, freezer.ID, 4)
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.Recipes = []RecipeRequest{{RecipeID: vanilla.ID, PlannedAmount: 4}}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	require.Len(t, result.UnscheduledRecipes, 1)
	assert.Equal(t, ReasonNoCertifiedEmployee, result.UnscheduledRecipes[0].Reason)
	assert.Empty(t, result.CreatedBlocks)
}

func TestGenerate_ForcedAssignmentWhenEveryoneIsBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	churner := testutil.SeedMachine(t, f.store, "Churner", 4, 30)
	rosa := testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID, churner.ID)
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	mango := testutil.SeedRecipe(t, f.store, "Mango")
	testutil.SeedYield(t, f.store, vanilla.ID, freezer.ID, 4)
	testutil.SeedYield(t, f.store, mango.ID, churner.ID, 4)
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.Recipes = []RecipeRequest{
		{RecipeID: vanilla.ID, PlannedAmount: 4},
		{RecipeID: mango.ID, PlannedAmount: 4},
	}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)

	assert.False(t, result.Assignments[0].Forced)
	assert.Equal(t, Assignment{RecipeID: mango.ID, MachineID: churner.ID, EmployeeID: rosa.ID, Forced: true}, result.Assignments[1])
	assert.Equal(t, 1, f.recorder.forced)
}

func TestGenerate_PrefersFreeEmployeeInCallerOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	rosa := testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID)
	theo := testutil.SeedEmployee(t, f.store, "Theo", freezer.ID)
	ida := &models.Employee{
		OwnerID: testutil.Owner, Name: "Ida", Role: models.RoleOperator, Active: true,
		Shifts:         []models.Shift{{DayOfWeek: "tuesday", StartTime: "08:00", EndTime: "17:00"}},
		Certifications: []models.MachineCertification{{MachineID: freezer.ID}},
	}
	require.NoError(t, f.store.CreateEmployee(ctx, ida))
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.EmployeeIDs = []uint{ida.ID, theo.ID, rosa.ID}
	opts.Recipes = []RecipeRequest{{RecipeID: vanilla.ID, PlannedAmount: 3}}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, theo.ID, result.Assignments[0].EmployeeID, "Ida is off shift on Monday")
	assert.False(t, result.Assignments[0].Forced)
}

func TestGenerate_HonoursWorkCalendarOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID)
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.WorkDays = []string{"wednesday"}
	opts.WorkdayStartTime = "10:30"
	opts.PrepDurationMinutes = 20
	opts.IncludeCleaningBlocks = false
	opts.Recipes = []RecipeRequest{{RecipeID: vanilla.ID, PlannedAmount: 3}}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	require.Len(t, result.CreatedBlocks, 2)
	assert.True(t, result.CreatedBlocks[0].StartTime.Equal(at(2, 10, 30)))
	assert.True(t, result.CreatedBlocks[1].StartTime.Equal(at(2, 10, 50)))
	assert.True(t, result.CreatedBlocks[1].EndTime.Equal(at(2, 11, 20)))
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.WorkdayEndTime = "25:00"
	_, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	assert.True(t, apperr.IsValidation(err))

	opts = f.scheduler.DefaultGenerateOptions()
	opts.Recipes = []RecipeRequest{{RecipeID: 1, PlannedAmount: 0}}
	_, err = f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	assert.True(t, apperr.IsValidation(err))

	_, err = f.scheduler.Generate(ctx, testutil.Owner, "rosa", 4242, f.scheduler.DefaultGenerateOptions())
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.store.UpdatePlanStatus(ctx, testutil.Owner, plan.ID, models.PlanStatusArchived)
	require.NoError(t, err)
	_, err = f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, f.scheduler.DefaultGenerateOptions())
	assert.True(t, apperr.IsValidation(err))
}

func TestGenerate_MidDayWeekStartSeesEarlierBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 4, 30)
	rosa := testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID)
	vanilla := testutil.SeedRecipe(t, f.store, "Vanilla")
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	_, err := f.scheduler.CreateBlock(ctx, testutil.Owner, "rosa", BlockRequest{
		PlanID: plan.ID, BlockType: models.BlockTypePrep, MachineID: freezer.ID, EmployeeID: rosa.ID,
		StartTime: at(0, 8, 0), EndTime: at(0, 10, 0),
	})
	require.NoError(t, err)

	opts := f.scheduler.DefaultGenerateOptions()
	opts.WeekStartDate = at(0, 10, 0)
	opts.Recipes = []RecipeRequest{{RecipeID: vanilla.ID, PlannedAmount: 3}}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	require.Empty(t, result.UnscheduledRecipes)
	require.Len(t, result.CreatedBlocks, 3)
	assert.True(t, result.CreatedBlocks[0].StartTime.Equal(at(0, 10, 0)))
	assert.True(t, result.CreatedBlocks[2].EndTime.Equal(at(0, 11, 0)))
}

func TestGenerate_YieldOnlyOnMachineUnderMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	freezer := testutil.SeedMachine(t, f.store, "Freezer", 8, 30)
	churner := testutil.SeedMachine(t, f.store, "Churner", 4, 30)
	testutil.SeedEmployee(t, f.store, "Rosa", freezer.ID, churner.ID)
	sorbet := testutil.SeedRecipe(t, f.store, "Sorbet")
	testutil.SeedYield(t, f.store, sorbet.ID, churner.ID, 4)
	require.NoError(t, f.store.UpdateMachineStatus(ctx, testutil.Owner, churner.ID, models.MachineStatusMaintenance))
	plan := testutil.SeedPlan(t, f.store, "Week 10")

	opts := f.scheduler.DefaultGenerateOptions()
	opts.Recipes = []RecipeRequest{{RecipeID: sorbet.ID, PlannedAmount: 4}}

	result, err := f.scheduler.Generate(ctx, testutil.Owner, "rosa", plan.ID, opts)
	require.NoError(t, err)
	assert.Empty(t, result.CreatedBlocks)
	require.Len(t, result.UnscheduledRecipes, 1)
	assert.Equal(t, ReasonNoSuitableMachine, result.UnscheduledRecipes[0].Reason)
}
