package scheduling

import (
	"context"
	"fmt"
	"math"
	"time"

	"creamery/internal/apperr"
	"creamery/internal/database"
	"creamery/internal/models"
)

// Reasons a recipe is left out of a generated schedule
const (
	ReasonUnknownRecipe       = "unknown_recipe"
	ReasonNoSuitableMachine   = "no_suitable_machine"
	ReasonNoSlot              = "no_slot"
	ReasonNoCertifiedEmployee = "no_certified_employee"
	ReasonConflict            = "conflict"
	ReasonPersistFailed       = "persist_failed"
)

// RecipeRequest asks for plannedAmount tubs of a recipe
type RecipeRequest struct {
	RecipeID      uint    `json:"recipeId" validate:"required"`
	PlannedAmount float64 `json:"plannedAmount" validate:"gt=0"`
}

// GenerateOptions controls a generation run. Use DefaultGenerateOptions and
// override fields; a zero WeekStartDate means the plan's week.
type GenerateOptions struct {
	WeekStartDate           time.Time       `json:"weekStartDate"`
	Recipes                 []RecipeRequest `json:"recipes" validate:"dive"`
	IncludePrepBlocks       bool            `json:"includePrepBlocks"`
	IncludeCleaningBlocks   bool            `json:"includeCleaningBlocks"`
	PrepDurationMinutes     int             `json:"prepDurationMinutes" validate:"gte=0"`
	CleaningDurationMinutes int             `json:"cleaningDurationMinutes" validate:"gte=0"`
	WorkdayStartTime        string          `json:"workdayStartTime" validate:"required"`
	WorkdayEndTime          string          `json:"workdayEndTime" validate:"required"`
	WorkDays                []string        `json:"workDays" validate:"min=1"`
	EmployeeIDs             []uint          `json:"employeeIds"`
}

// DefaultGenerateOptions returns the options implied by the scheduling policy
func (s *Scheduler) DefaultGenerateOptions() GenerateOptions {
	days := make([]string, len(s.policy.WorkDays))
	copy(days, s.policy.WorkDays)
	return GenerateOptions{
		Recipes:                 []RecipeRequest{},
		IncludePrepBlocks:       true,
		IncludeCleaningBlocks:   true,
		PrepDurationMinutes:     s.policy.PrepDurationMinutes,
		CleaningDurationMinutes: s.policy.CleaningDurationMinutes,
		WorkdayStartTime:        s.policy.WorkdayStart,
		WorkdayEndTime:          s.policy.WorkdayEnd,
		WorkDays:                days,
	}
}

// UnscheduledRecipe is a recipe the generator could not place
type UnscheduledRecipe struct {
	RecipeID      uint    `json:"recipeId"`
	PlannedAmount float64 `json:"plannedAmount"`
	Reason        string  `json:"reason"`
	Message       string  `json:"message"`
}

// Assignment records who runs a recipe's blocks. Forced is set when every
// certified employee was busy and the first one was double-booked.
type Assignment struct {
	RecipeID   uint `json:"recipeId"`
	MachineID  uint `json:"machineId"`
	EmployeeID uint `json:"employeeId"`
	Forced     bool `json:"forced"`
}

// GenerateResult is the outcome of a generation run
type GenerateResult struct {
	PlanID             uint                     `json:"planId"`
	CreatedBlocks      []models.ProductionBlock `json:"-"`
	UnscheduledRecipes []UnscheduledRecipe      `json:"unscheduledRecipes"`
	Assignments        []Assignment             `json:"assignments"`
}

type generation struct {
	owner     string
	actor     string
	plan      *models.ProductionPlan
	weekStart time.Time
	calendar  WorkCalendar
	compose   ComposeOptions
	opts      GenerateOptions
	machines  []models.Machine
	staff     []models.Employee
}

// Generate schedules each requested recipe in order, committing every
// recipe's blocks before the next one is searched. Recipes that cannot be
// placed are reported in the result; they never undo earlier commits.
func (s *Scheduler) Generate(ctx context.Context, owner, actor string, planID uint, opts GenerateOptions) (*GenerateResult, error) {
	started := s.now()
	if err := s.validate.Struct(opts); err != nil {
		return nil, apperr.Validation("invalid generation options: %v", err)
	}
	calendar, err := NewWorkCalendar(opts.WorkDays, opts.WorkdayStartTime, opts.WorkdayEndTime)
	if err != nil {
		return nil, err
	}

	plan, err := s.store.GetPlan(ctx, owner, planID)
	if err != nil {
		return nil, err
	}
	if plan.IsLocked() {
		return nil, apperr.Validation("plan %d is %s and can no longer change", plan.ID, plan.Status)
	}

	g := &generation{
		owner:     owner,
		actor:     actor,
		plan:      plan,
		weekStart: plan.WeekStartDate,
		calendar:  calendar,
		compose:   ComposeOptions{IncludePrep: opts.IncludePrepBlocks, IncludeCleaning: opts.IncludeCleaningBlocks},
		opts:      opts,
	}
	if !opts.WeekStartDate.IsZero() {
		g.weekStart = opts.WeekStartDate
	}
	g.weekStart = startOfDay(g.weekStart.UTC())

	result := &GenerateResult{
		PlanID:             plan.ID,
		CreatedBlocks:      []models.ProductionBlock{},
		UnscheduledRecipes: []UnscheduledRecipe{},
		Assignments:        []Assignment{},
	}
	if len(opts.Recipes) == 0 {
		return result, nil
	}

	if g.machines, err = s.store.ListMachines(ctx, owner, database.MachineFilter{Status: models.MachineStatusAvailable}); err != nil {
		return nil, err
	}
	if g.staff, err = s.candidateStaff(ctx, owner, opts.EmployeeIDs); err != nil {
		return nil, err
	}

	for _, req := range opts.Recipes {
		blocks, assignment, skipped, err := s.scheduleRecipe(ctx, g, req)
		if err != nil {
			return nil, err
		}
		if skipped != nil {
			s.metrics.RecipeUnscheduled(skipped.Reason)
			s.log.Info("recipe left unscheduled", "owner", owner, "plan_id", planID,
				"recipe_id", req.RecipeID, "reason", skipped.Reason, "message", skipped.Message)
			result.UnscheduledRecipes = append(result.UnscheduledRecipes, *skipped)
			continue
		}
		for _, b := range blocks {
			result.CreatedBlocks = append(result.CreatedBlocks, *b)
		}
		result.Assignments = append(result.Assignments, assignment)
	}

	s.metrics.BlocksCreated("generator", len(result.CreatedBlocks))
	s.metrics.GenerationFinished(s.now().Sub(started).Seconds())
	s.publisher.Publish(owner, EventPlanGenerated, result)
	s.log.Info("generated schedule", "owner", owner, "plan_id", planID,
		"blocks", len(result.CreatedBlocks), "unscheduled", len(result.UnscheduledRecipes))
	return result, nil
}

// candidateStaff returns active employees in caller order, or by id when no
// order is given.
func (s *Scheduler) candidateStaff(ctx context.Context, owner string, ids []uint) ([]models.Employee, error) {
	if len(ids) == 0 {
		return s.store.ListEmployees(ctx, owner, database.EmployeeFilter{ActiveOnly: true})
	}
	staff := make([]models.Employee, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, err := s.store.GetEmployee(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		if e.Active {
			staff = append(staff, *e)
		}
	}
	return staff, nil
}

func (s *Scheduler) scheduleRecipe(ctx context.Context, g *generation, req RecipeRequest) ([]*models.ProductionBlock, Assignment, *UnscheduledRecipe, error) {
	skip := func(reason, format string, args ...interface{}) ([]*models.ProductionBlock, Assignment, *UnscheduledRecipe, error) {
		return nil, Assignment{}, &UnscheduledRecipe{
			RecipeID:      req.RecipeID,
			PlannedAmount: req.PlannedAmount,
			Reason:        reason,
			Message:       fmt.Sprintf(format, args...),
		}, nil
	}

	if _, err := s.store.GetRecipe(ctx, g.owner, req.RecipeID); err != nil {
		if apperr.IsNotFound(err) {
			return skip(ReasonUnknownRecipe, "recipe %d does not exist", req.RecipeID)
		}
		return nil, Assignment{}, nil, err
	}

	yields, err := s.store.ListYieldsForRecipe(ctx, g.owner, req.RecipeID)
	if err != nil {
		return nil, Assignment{}, nil, err
	}
	selection, ok := s.selector.SelectBest(g.machines, yields)
	if !ok {
		return skip(ReasonNoSuitableMachine, "no available machine can produce recipe %d", req.RecipeID)
	}
	machine := selection.Machine

	batches := int(math.Ceil(req.PlannedAmount / selection.TubsPerBatch))
	durations := Durations{
		Batches:           batches,
		ProductionMinutes: batches * selection.ProductionTime,
		PrepMinutes:       g.opts.PrepDurationMinutes,
		CleaningMinutes:   g.opts.CleaningDurationMinutes,
	}
	durations.TotalMinutes = durations.Required(g.compose)

	unlock := s.locks.Lock(generationLockKeys(g.staff, machine.ID)...)
	defer unlock()

	weekEnd := g.weekStart.AddDate(0, 0, 7)
	existing, err := s.store.ListLiveBlocks(ctx, g.owner, database.BlockFilter{MachineID: machine.ID, From: g.weekStart, To: weekEnd})
	if err != nil {
		return nil, Assignment{}, nil, err
	}
	slots := FindSlots(g.weekStart, g.calendar, durations.TotalMinutes, existing, machine.ID)
	if len(slots) == 0 {
		return skip(ReasonNoSlot, "machine %q has no %d-minute opening in the week of %s",
			machine.Name, durations.TotalMinutes, g.weekStart.Format("2006-01-02"))
	}
	slot := slots[0]

	assignment, ok, err := s.assignEmployee(ctx, g, machine.ID, slot.Start, slot.End)
	if err != nil {
		return nil, Assignment{}, nil, err
	}
	if !ok {
		return skip(ReasonNoCertifiedEmployee, "no active employee is certified for machine %q", machine.Name)
	}
	assignment.RecipeID = req.RecipeID

	report, err := s.conflicts.Check(ctx, g.owner, machine.ID, 0, slot.Start, slot.End, 0)
	if err != nil {
		return nil, Assignment{}, nil, err
	}
	if report.HasConflict {
		s.metrics.ConflictRejected(string(ResourceMachine))
		return skip(ReasonConflict, "slot at %s on machine %q is no longer free", slot.Start.Format(time.RFC3339), machine.Name)
	}

	base := BlockBase{PlanID: g.plan.ID, MachineID: machine.ID, EmployeeID: assignment.EmployeeID, Actor: g.actor}
	set := ComposeBlockSet(slot.Start, durations, base, ProductionSpec{RecipeID: req.RecipeID, Quantity: req.PlannedAmount}, g.compose)
	blocks := set.Blocks()
	if _, err := s.store.ApplyBlockChanges(ctx, g.owner, g.plan.ID, creates(blocks)); err != nil {
		s.log.Error("committing generated blocks failed", "owner", g.owner, "plan_id", g.plan.ID, "recipe_id", req.RecipeID, "error", err)
		return skip(ReasonPersistFailed, "saving blocks failed: %v", err)
	}

	if assignment.Forced {
		s.metrics.ForcedAssignment()
		s.log.Warn("double-booked employee", "owner", g.owner, "plan_id", g.plan.ID,
			"recipe_id", req.RecipeID, "employee_id", assignment.EmployeeID, "start", slot.Start)
	}
	return blocks, assignment, nil, nil
}

// generationLockKeys covers the machine and every employee who could be
// assigned to it, so the slot search, the employee checks and the commit see
// the same state.
func generationLockKeys(staff []models.Employee, machineID uint) []string {
	keys := []string{machineKey(machineID)}
	for _, e := range staff {
		if e.Active && e.IsCertifiedFor(machineID) {
			keys = append(keys, employeeKey(e.ID))
		}
	}
	return keys
}

// assignEmployee picks the first certified employee who is on shift and free
// over [start, end). When all of them are busy the first is returned with
// Forced set. ok is false when nobody is certified for the machine.
func (s *Scheduler) assignEmployee(ctx context.Context, g *generation, machineID uint, start, end time.Time) (Assignment, bool, error) {
	var certified []models.Employee
	for _, e := range g.staff {
		if e.Active && e.IsCertifiedFor(machineID) {
			certified = append(certified, e)
		}
	}
	if len(certified) == 0 {
		return Assignment{}, false, nil
	}

	for _, e := range certified {
		if !e.CoversWindow(start, end) {
			continue
		}
		report, err := s.conflicts.Check(ctx, g.owner, 0, e.ID, start, end, 0)
		if err != nil {
			return Assignment{}, false, err
		}
		if !report.HasConflict {
			return Assignment{MachineID: machineID, EmployeeID: e.ID}, true, nil
		}
	}
	return Assignment{MachineID: machineID, EmployeeID: certified[0].ID, Forced: true}, true, nil
}
