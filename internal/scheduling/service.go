package scheduling

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"creamery/internal/apperr"
	"creamery/internal/config"
	"creamery/internal/database"
	"creamery/internal/logger"
	"creamery/internal/models"
)

// Scheduler places production work on machines and staff for one owner at a time
type Scheduler struct {
	store     Store
	policy    config.SchedulingConfig
	yields    *YieldCatalog
	selector  *MachineSelector
	conflicts *ConflictChecker
	locks     *ResourceLocks
	validate  *validator.Validate
	publisher Publisher
	metrics   Recorder
	log       *logger.Logger
	now       func() time.Time
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithPublisher sends schedule events to p
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithRecorder sends scheduling metrics to r
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.metrics = r }
}

// WithLogger sets the scheduler's logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler wires the scheduling components over store using policy for defaults
func NewScheduler(store Store, policy config.SchedulingConfig, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     store,
		policy:    policy,
		yields:    NewYieldCatalog(store, policy.DefaultYield),
		selector:  NewMachineSelector(policy.DefaultYield),
		conflicts: NewConflictChecker(store),
		locks:     NewResourceLocks(),
		validate:  validator.New(),
		publisher: nopPublisher{},
		metrics:   nopRecorder{},
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "scheduler")
	return s
}

// Yields exposes the yield catalog
func (s *Scheduler) Yields() *YieldCatalog {
	return s.yields
}

// CalculateProductionTime sizes a run of quantity tubs on a machine
func (s *Scheduler) CalculateProductionTime(ctx context.Context, owner string, machineID uint, quantity float64) (Durations, error) {
	machine, err := s.store.GetMachine(ctx, owner, machineID)
	if err != nil {
		return Durations{}, err
	}
	return ComputeDurations(machine, quantity)
}

// CheckAvailability reports whether both resources are free over [start, end)
func (s *Scheduler) CheckAvailability(ctx context.Context, owner string, machineID, employeeID uint, start, end time.Time, excludeBlockID uint) (bool, error) {
	report, err := s.conflicts.Check(ctx, owner, machineID, employeeID, start, end, excludeBlockID)
	if err != nil {
		return false, err
	}
	return !report.HasConflict, nil
}

// Conflicts runs a full conflict check, for callers that need the details
func (s *Scheduler) Conflicts(ctx context.Context, owner string, machineID, employeeID uint, start, end time.Time, excludeBlockID uint) (ConflictReport, error) {
	return s.conflicts.Check(ctx, owner, machineID, employeeID, start, end, excludeBlockID)
}

// SuggestRequest asks whether a run fits at a preferred start time
type SuggestRequest struct {
	MachineID      uint      `json:"machineId" validate:"required"`
	EmployeeID     uint      `json:"employeeId" validate:"required"`
	RecipeID       uint      `json:"recipeId"`
	Quantity       float64   `json:"quantity" validate:"gt=0"`
	PreferredStart time.Time `json:"preferredStartTime" validate:"required"`
}

// Suggestion is the outcome of SuggestSchedule. Blocks are only set on success.
type Suggestion struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Durations Durations       `json:"durations"`
	Set       BlockSet        `json:"-"`
	Conflicts *ConflictReport `json:"conflicts,omitempty"`
}

// SuggestSchedule composes a full block set at the preferred start and
// checks it for conflicts. Nothing is persisted and no other time is tried.
func (s *Scheduler) SuggestSchedule(ctx context.Context, owner string, req SuggestRequest) (*Suggestion, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.Validation("invalid suggestion request: %v", err)
	}
	machine, employee, err := s.certifiedPair(ctx, owner, req.MachineID, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if req.RecipeID != 0 {
		if _, err := s.store.GetRecipe(ctx, owner, req.RecipeID); err != nil {
			return nil, err
		}
	}

	durations, err := ComputeDurations(machine, req.Quantity)
	if err != nil {
		return nil, err
	}
	base := BlockBase{MachineID: machine.ID, EmployeeID: employee.ID}
	set := ComposeBlockSet(req.PreferredStart, durations, base,
		ProductionSpec{RecipeID: req.RecipeID, Quantity: req.Quantity},
		ComposeOptions{IncludePrep: true, IncludeCleaning: true})

	start, end := set.Window()
	report, err := s.conflicts.Check(ctx, owner, machine.ID, employee.ID, start, end, 0)
	if err != nil {
		return nil, err
	}
	if report.HasConflict {
		return &Suggestion{
			Success:   false,
			Message:   "the preferred start time conflicts with existing blocks",
			Durations: durations,
			Conflicts: &report,
		}, nil
	}
	return &Suggestion{Success: true, Durations: durations, Set: set}, nil
}

// ProductionSetRequest places a full run at an exact start time
type ProductionSetRequest struct {
	PlanID     uint      `json:"planId" validate:"required"`
	MachineID  uint      `json:"machineId" validate:"required"`
	EmployeeID uint      `json:"employeeId" validate:"required"`
	RecipeID   uint      `json:"recipeId" validate:"required"`
	Quantity   float64   `json:"quantity" validate:"gt=0"`
	StartTime  time.Time `json:"startTime" validate:"required"`
	Notes      string    `json:"notes"`
}

// CreateProductionSet composes prep, production and cleaning at the
// requested start and commits them together, or not at all.
func (s *Scheduler) CreateProductionSet(ctx context.Context, owner, actor string, req ProductionSetRequest) (BlockSet, error) {
	if err := s.validate.Struct(req); err != nil {
		return BlockSet{}, apperr.Validation("invalid production set request: %v", err)
	}
	if err := s.editablePlan(ctx, owner, req.PlanID); err != nil {
		return BlockSet{}, err
	}
	machine, employee, err := s.certifiedPair(ctx, owner, req.MachineID, req.EmployeeID)
	if err != nil {
		return BlockSet{}, err
	}
	if _, err := s.store.GetRecipe(ctx, owner, req.RecipeID); err != nil {
		return BlockSet{}, err
	}

	durations, err := ComputeDurations(machine, req.Quantity)
	if err != nil {
		return BlockSet{}, err
	}
	base := BlockBase{PlanID: req.PlanID, MachineID: machine.ID, EmployeeID: employee.ID, Actor: actor, Notes: req.Notes}
	set := ComposeBlockSet(req.StartTime, durations, base,
		ProductionSpec{RecipeID: req.RecipeID, Quantity: req.Quantity},
		ComposeOptions{IncludePrep: true, IncludeCleaning: true})

	unlock := s.locks.Lock(machineKey(machine.ID), employeeKey(employee.ID))
	defer unlock()

	start, end := set.Window()
	if err := s.rejectConflicts(ctx, owner, machine.ID, employee.ID, start, end, 0); err != nil {
		return BlockSet{}, err
	}
	if _, err := s.store.ApplyBlockChanges(ctx, owner, req.PlanID, creates(set.Blocks())); err != nil {
		return BlockSet{}, err
	}

	s.metrics.BlocksCreated("production_set", len(set.Blocks()))
	s.publisher.Publish(owner, EventBlockCreated, set.Blocks())
	s.log.Info("created production set", "owner", owner, "plan_id", req.PlanID,
		"machine_id", machine.ID, "employee_id", employee.ID, "start", start, "end", end)
	return set, nil
}

// certifiedPair loads a machine and employee and checks the certification
func (s *Scheduler) certifiedPair(ctx context.Context, owner string, machineID, employeeID uint) (*models.Machine, *models.Employee, error) {
	machine, err := s.store.GetMachine(ctx, owner, machineID)
	if err != nil {
		return nil, nil, err
	}
	employee, err := s.store.GetEmployee(ctx, owner, employeeID)
	if err != nil {
		return nil, nil, err
	}
	if !employee.IsCertifiedFor(machine.ID) {
		return nil, nil, apperr.Certification(employee.ID, machine.ID)
	}
	return machine, employee, nil
}

func (s *Scheduler) editablePlan(ctx context.Context, owner string, planID uint) error {
	plan, err := s.store.GetPlan(ctx, owner, planID)
	if err != nil {
		return err
	}
	if plan.IsLocked() {
		return apperr.Validation("plan %d is %s and can no longer change", plan.ID, plan.Status)
	}
	return nil
}

// rejectConflicts turns a conflicting report into a Conflict error
func (s *Scheduler) rejectConflicts(ctx context.Context, owner string, machineID, employeeID uint, start, end time.Time, excludeBlockID uint) error {
	report, err := s.conflicts.Check(ctx, owner, machineID, employeeID, start, end, excludeBlockID)
	if err != nil {
		return err
	}
	if !report.HasConflict {
		return nil
	}
	if len(report.MachineConflicts) > 0 {
		s.metrics.ConflictRejected(string(ResourceMachine))
	}
	if len(report.EmployeeConflicts) > 0 {
		s.metrics.ConflictRejected(string(ResourceEmployee))
	}
	s.log.Info("rejected conflicting window", "owner", owner, "machine_id", machineID, "employee_id", employeeID,
		"machine_conflicts", len(report.MachineConflicts), "employee_conflicts", len(report.EmployeeConflicts))
	return apperr.Conflict("the requested window overlaps existing blocks", report)
}

func creates(blocks []*models.ProductionBlock) []database.BlockChange {
	changes := make([]database.BlockChange, 0, len(blocks))
	for _, b := range blocks {
		changes = append(changes, database.BlockChange{After: b})
	}
	return changes
}
