package database

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jinzhu/gorm"

	"creamery/internal/apperr"
	"creamery/internal/models"
)

// BlockChange is one block write. Before is nil for a create and After is nil
// for a delete. Revision, when set, is recorded against the written block.
type BlockChange struct {
	Before   *models.ProductionBlock
	After    *models.ProductionBlock
	Revision *models.BlockRevision
}

type amountDelta struct {
	planned   float64
	completed float64
}

// ApplyBlockChanges writes a set of block changes to one plan in a single
// transaction. New blocks are appended to the plan's block list, the plan's
// recipe entries absorb the planned/completed deltas of every production
// block, and completion status and version are recomputed. Either all of it
// is committed or none of it is.
func (s *Store) ApplyBlockChanges(ctx context.Context, owner string, planID uint, changes []BlockChange) (*models.ProductionPlan, error) {
	var plan *models.ProductionPlan
	err := s.inTransaction(func(tx *gorm.DB) error {
		var err error
		plan, err = getPlan(tx, owner, planID)
		if err != nil {
			return err
		}
		if plan.IsLocked() {
			return apperr.Validation("plan %d is %s and can no longer change", plan.ID, plan.Status)
		}

		sequence, err := maxSequence(tx, planID)
		if err != nil {
			return err
		}

		deltas := make(map[uint]*amountDelta)
		for _, change := range changes {
			if err := writeBlockChange(tx, owner, planID, &sequence, change); err != nil {
				return err
			}
			accumulate(deltas, change.Before, -1)
			accumulate(deltas, change.After, 1)
		}

		if err := applyDeltas(tx, plan, deltas); err != nil {
			return err
		}

		plan.CompletionStatus = plan.ComputeCompletion()
		plan.Version++
		return tx.Model(&models.ProductionPlan{}).Where("id = ?", plan.ID).Updates(map[string]interface{}{
			"completion_status": plan.CompletionStatus,
			"version":           plan.Version,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("applied block changes", "owner", owner, "plan_id", planID, "changes", len(changes), "version", plan.Version)
	return plan, nil
}

func writeBlockChange(tx *gorm.DB, owner string, planID uint, sequence *int, change BlockChange) error {
	switch {
	case change.Before == nil && change.After == nil:
		return apperr.Validation("empty block change")

	case change.Before == nil:
		block := change.After
		block.OwnerID = owner
		block.PlanID = planID
		normalizeTimes(block)
		if err := models.ValidateBlock(block); err != nil {
			return apperr.Validation("%s", err.Error())
		}
		*sequence++
		block.Sequence = *sequence
		if err := tx.Create(block).Error; err != nil {
			return fmt.Errorf("creating block: %w", err)
		}

	case change.After == nil:
		if change.Before.PlanID != planID {
			return apperr.Validation("block %d does not belong to plan %d", change.Before.ID, planID)
		}
		if err := tx.Delete(change.Before).Error; err != nil {
			return fmt.Errorf("deleting block %d: %w", change.Before.ID, err)
		}

	default:
		block := change.After
		if block.ID != change.Before.ID {
			return apperr.Validation("block change must keep the block id")
		}
		if block.PlanID != planID || change.Before.PlanID != planID {
			return apperr.Validation("blocks cannot move between plans")
		}
		block.OwnerID = owner
		normalizeTimes(block)
		if err := models.ValidateBlock(block); err != nil {
			return apperr.Validation("%s", err.Error())
		}
		if err := tx.Save(block).Error; err != nil {
			return fmt.Errorf("saving block %d: %w", block.ID, err)
		}
	}

	if change.Revision != nil && change.After != nil {
		return recordRevision(tx, owner, planID, change.After.ID, change.Revision)
	}
	return nil
}

func recordRevision(tx *gorm.DB, owner string, planID, blockID uint, revision *models.BlockRevision) error {
	var count int
	if err := tx.Model(&models.BlockRevision{}).Where("block_id = ?", blockID).Count(&count).Error; err != nil {
		return fmt.Errorf("counting revisions for block %d: %w", blockID, err)
	}
	revision.OwnerID = owner
	revision.PlanID = planID
	revision.BlockID = blockID
	revision.Version = count + 1
	if err := tx.Create(revision).Error; err != nil {
		return fmt.Errorf("recording revision for block %d: %w", blockID, err)
	}
	return nil
}

func maxSequence(tx *gorm.DB, planID uint) (int, error) {
	var max int
	row := tx.Unscoped().Model(&models.ProductionBlock{}).
		Where("plan_id = ?", planID).
		Select("COALESCE(MAX(sequence), 0)").Row()
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("reading block sequence for plan %d: %w", planID, err)
	}
	return max, nil
}

func accumulate(deltas map[uint]*amountDelta, block *models.ProductionBlock, sign float64) {
	if block == nil {
		return
	}
	recipeID, planned, completed := block.ProductionContribution()
	if recipeID == 0 || (planned == 0 && completed == 0) {
		return
	}
	d, ok := deltas[recipeID]
	if !ok {
		d = &amountDelta{}
		deltas[recipeID] = d
	}
	d.planned += sign * planned
	d.completed += sign * completed
}

func applyDeltas(tx *gorm.DB, plan *models.ProductionPlan, deltas map[uint]*amountDelta) error {
	recipeIDs := make([]uint, 0, len(deltas))
	for id := range deltas {
		recipeIDs = append(recipeIDs, id)
	}
	sort.Slice(recipeIDs, func(i, j int) bool { return recipeIDs[i] < recipeIDs[j] })

	for _, recipeID := range recipeIDs {
		d := deltas[recipeID]
		if d.planned == 0 && d.completed == 0 {
			continue
		}
		entry := plan.RecipeEntry(recipeID)
		if entry == nil {
			entry = &models.PlanRecipe{
				PlanID:          plan.ID,
				RecipeID:        recipeID,
				PlannedAmount:   math.Max(0, d.planned),
				CompletedAmount: math.Max(0, d.completed),
			}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("adding recipe %d to plan %d: %w", recipeID, plan.ID, err)
			}
			plan.Recipes = append(plan.Recipes, *entry)
			continue
		}
		entry.PlannedAmount = math.Max(0, entry.PlannedAmount+d.planned)
		entry.CompletedAmount = math.Max(0, entry.CompletedAmount+d.completed)
		if err := tx.Save(entry).Error; err != nil {
			return fmt.Errorf("updating recipe %d on plan %d: %w", recipeID, plan.ID, err)
		}
	}
	return nil
}

func normalizeTimes(b *models.ProductionBlock) {
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
}
