package scheduling

import (
	"context"
	"time"

	"creamery/internal/apperr"
	"creamery/internal/database"
	"creamery/internal/models"
)

// BlockRequest creates a single block by hand
type BlockRequest struct {
	PlanID     uint             `json:"planId" validate:"required"`
	BlockType  models.BlockType `json:"blockType" validate:"required"`
	MachineID  uint             `json:"machineId" validate:"required"`
	EmployeeID uint             `json:"employeeId" validate:"required"`
	RecipeID   *uint            `json:"recipeId"`
	Quantity   *float64         `json:"quantity"`
	StartTime  time.Time        `json:"startTime" validate:"required"`
	EndTime    time.Time        `json:"endTime" validate:"required"`
	Notes      string           `json:"notes"`
}

// BlockUpdate changes the non-nil fields of a block
type BlockUpdate struct {
	StartTime  *time.Time          `json:"startTime"`
	EndTime    *time.Time          `json:"endTime"`
	MachineID  *uint               `json:"machineId"`
	EmployeeID *uint               `json:"employeeId"`
	RecipeID   *uint               `json:"recipeId"`
	Quantity   *float64            `json:"quantity"`
	Status     *models.BlockStatus `json:"status"`
	Notes      *string             `json:"notes"`
}

// CreateBlock validates and commits one block, updating plan bookkeeping
func (s *Scheduler) CreateBlock(ctx context.Context, owner, actor string, req BlockRequest) (*models.ProductionBlock, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.Validation("invalid block request: %v", err)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, apperr.Validation("end time must be after start time")
	}
	spec, err := SpecFor(req.BlockType, req.RecipeID, req.Quantity)
	if err != nil {
		return nil, err
	}
	if err := s.editablePlan(ctx, owner, req.PlanID); err != nil {
		return nil, err
	}
	machine, employee, err := s.certifiedPair(ctx, owner, req.MachineID, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if production, ok := spec.(ProductionSpec); ok {
		if _, err := s.store.GetRecipe(ctx, owner, production.RecipeID); err != nil {
			return nil, err
		}
	}

	block := ComposeBlock(req.StartTime, req.EndTime,
		BlockBase{PlanID: req.PlanID, MachineID: machine.ID, EmployeeID: employee.ID, Actor: actor, Notes: req.Notes}, spec)

	unlock := s.locks.Lock(machineKey(machine.ID), employeeKey(employee.ID))
	defer unlock()

	if err := s.rejectConflicts(ctx, owner, machine.ID, employee.ID, block.StartTime, block.EndTime, 0); err != nil {
		return nil, err
	}
	if _, err := s.store.ApplyBlockChanges(ctx, owner, req.PlanID, []database.BlockChange{{After: block}}); err != nil {
		return nil, err
	}

	s.metrics.BlocksCreated("manual", 1)
	s.publisher.Publish(owner, EventBlockCreated, []*models.ProductionBlock{block})
	return block, nil
}

// UpdateBlock applies an update to a live block. Moves are conflict and
// certification checked; status changes follow the block lifecycle.
func (s *Scheduler) UpdateBlock(ctx context.Context, owner, actor string, id uint, update BlockUpdate) (*models.ProductionBlock, error) {
	before, err := s.store.GetBlock(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if before.Status.IsTerminal() {
		return nil, apperr.Validation("block %d is %s and can no longer change", before.ID, before.Status)
	}

	after := *before
	applyUpdate(&after, update)
	after.LastModifiedBy = actor

	if after.Status != before.Status {
		if !after.Status.IsValid() {
			return nil, apperr.Validation("unknown block status %q", after.Status)
		}
		if !models.CanTransition(before.Status, after.Status) {
			return nil, apperr.Validation("block %d cannot move from %s to %s", before.ID, before.Status, after.Status)
		}
	}
	if !after.EndTime.After(after.StartTime) {
		return nil, apperr.Validation("end time must be after start time")
	}
	if _, err := SpecFor(after.BlockType, after.RecipeID, after.Quantity); err != nil {
		return nil, err
	}

	resourcesMoved := after.MachineID != before.MachineID || after.EmployeeID != before.EmployeeID
	if resourcesMoved {
		if _, _, err := s.certifiedPair(ctx, owner, after.MachineID, after.EmployeeID); err != nil {
			return nil, err
		}
	}
	if after.RecipeID != nil && (before.RecipeID == nil || *after.RecipeID != *before.RecipeID) {
		if _, err := s.store.GetRecipe(ctx, owner, *after.RecipeID); err != nil {
			return nil, err
		}
	}

	keys := []string{machineKey(before.MachineID), employeeKey(before.EmployeeID), machineKey(after.MachineID), employeeKey(after.EmployeeID)}
	unlock := s.locks.Lock(keys...)
	defer unlock()

	windowMoved := resourcesMoved || !after.StartTime.Equal(before.StartTime) || !after.EndTime.Equal(before.EndTime)
	if windowMoved && after.IsLive() {
		if err := s.rejectConflicts(ctx, owner, after.MachineID, after.EmployeeID, after.StartTime, after.EndTime, after.ID); err != nil {
			return nil, err
		}
	}

	changes := DiffFields(before, &after, TrackedBlockFields)
	if len(changes) == 0 {
		return before, nil
	}
	revision := &models.BlockRevision{ChangedBy: actor, Changes: changes}
	if _, err := s.store.ApplyBlockChanges(ctx, owner, before.PlanID, []database.BlockChange{{Before: before, After: &after, Revision: revision}}); err != nil {
		return nil, err
	}

	s.publisher.Publish(owner, EventBlockUpdated, &after)
	s.log.Debug("updated block", "owner", owner, "block_id", after.ID, "changes", len(changes))
	return &after, nil
}

// TransitionBlock moves a block to a new status
func (s *Scheduler) TransitionBlock(ctx context.Context, owner, actor string, id uint, status models.BlockStatus) (*models.ProductionBlock, error) {
	if !status.IsValid() {
		return nil, apperr.Validation("unknown block status %q", status)
	}
	return s.UpdateBlock(ctx, owner, actor, id, BlockUpdate{Status: &status})
}

// DeleteBlock removes a block and reverses its planned amount. Completed
// blocks are kept as production history.
func (s *Scheduler) DeleteBlock(ctx context.Context, owner, actor string, id uint) error {
	block, err := s.store.GetBlock(ctx, owner, id)
	if err != nil {
		return err
	}
	if block.Status == models.BlockStatusCompleted {
		return apperr.Validation("block %d is completed and cannot be deleted", block.ID)
	}
	if _, err := s.store.ApplyBlockChanges(ctx, owner, block.PlanID, []database.BlockChange{{Before: block}}); err != nil {
		return err
	}

	s.publisher.Publish(owner, EventBlockDeleted, block)
	s.log.Info("deleted block", "owner", owner, "block_id", block.ID, "plan_id", block.PlanID, "by", actor)
	return nil
}

func applyUpdate(b *models.ProductionBlock, u BlockUpdate) {
	if u.StartTime != nil {
		b.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		b.EndTime = *u.EndTime
	}
	if u.MachineID != nil {
		b.MachineID = *u.MachineID
	}
	if u.EmployeeID != nil {
		b.EmployeeID = *u.EmployeeID
	}
	if u.RecipeID != nil {
		recipeID := *u.RecipeID
		b.RecipeID = &recipeID
	}
	if u.Quantity != nil {
		quantity := *u.Quantity
		b.Quantity = &quantity
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	if u.Notes != nil {
		b.Notes = *u.Notes
	}
}
