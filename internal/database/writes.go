package database

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"

	"creamery/internal/apperr"
	"creamery/internal/models"
)

func (s *Store) CreateMachine(ctx context.Context, m *models.Machine) error {
	if m.Status == "" {
		m.Status = models.MachineStatusAvailable
	}
	if err := models.ValidateMachine(m); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	if err := s.db.Create(m).Error; err != nil {
		return fmt.Errorf("creating machine: %w", err)
	}
	return nil
}

// UpdateMachineStatus changes a machine's operational status
func (s *Store) UpdateMachineStatus(ctx context.Context, owner string, id uint, status models.MachineStatus) error {
	if !status.IsValid() {
		return apperr.Validation("unknown machine status %q", status)
	}
	machine, err := s.GetMachine(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.db.Model(machine).Update("status", string(status)).Error; err != nil {
		return fmt.Errorf("updating machine %d status: %w", id, err)
	}
	return nil
}

// CreateEmployee stores an employee together with their shifts and certifications
func (s *Store) CreateEmployee(ctx context.Context, e *models.Employee) error {
	if err := models.ValidateEmployee(e); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	if err := s.db.Create(e).Error; err != nil {
		return fmt.Errorf("creating employee: %w", err)
	}
	return nil
}

func (s *Store) CreateRecipe(ctx context.Context, r *models.Recipe) error {
	if r.Name == "" {
		return apperr.Validation("recipe name is required")
	}
	if err := s.db.Create(r).Error; err != nil {
		return fmt.Errorf("creating recipe: %w", err)
	}
	return nil
}

// UpsertYield creates or replaces the yield for a recipe/machine pair
func (s *Store) UpsertYield(ctx context.Context, y *models.RecipeMachineYield) error {
	if err := models.ValidateYield(y); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	existing, err := s.GetYield(ctx, y.OwnerID, y.RecipeID, y.MachineID)
	switch {
	case apperr.IsNotFound(err):
		if err := s.db.Create(y).Error; err != nil {
			return fmt.Errorf("creating yield: %w", err)
		}
		return nil
	case err != nil:
		return err
	}
	y.ID = existing.ID
	y.CreatedAt = existing.CreatedAt
	if err := s.db.Model(existing).Update("tubs_per_batch", y.TubsPerBatch).Error; err != nil {
		return fmt.Errorf("updating yield: %w", err)
	}
	return nil
}

func (s *Store) CreatePlan(ctx context.Context, p *models.ProductionPlan) error {
	if p.Status == "" {
		p.Status = models.PlanStatusDraft
	}
	if !p.Status.IsValid() {
		return apperr.Validation("unknown plan status %q", p.Status)
	}
	if p.WeekStartDate.IsZero() {
		return apperr.Validation("plan week start date is required")
	}
	p.WeekStartDate = p.WeekStartDate.UTC()
	p.CompletionStatus = p.ComputeCompletion()
	p.Version = 1
	if err := s.db.Create(p).Error; err != nil {
		return fmt.Errorf("creating plan: %w", err)
	}
	return nil
}

// UpdatePlanStatus moves a plan through its lifecycle and bumps its version
func (s *Store) UpdatePlanStatus(ctx context.Context, owner string, id uint, status models.PlanStatus) (*models.ProductionPlan, error) {
	if !status.IsValid() {
		return nil, apperr.Validation("unknown plan status %q", status)
	}
	var plan *models.ProductionPlan
	err := s.inTransaction(func(tx *gorm.DB) error {
		var err error
		plan, err = getPlan(tx, owner, id)
		if err != nil {
			return err
		}
		if plan.Status == models.PlanStatusArchived && status != models.PlanStatusArchived {
			return apperr.Validation("archived plans cannot be reopened")
		}
		plan.Status = status
		plan.Version++
		return tx.Model(&models.ProductionPlan{}).Where("id = ?", plan.ID).Updates(map[string]interface{}{
			"status":  string(plan.Status),
			"version": plan.Version,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// inTransaction runs fn inside a transaction, rolling back on any error
func (s *Store) inTransaction(fn func(tx *gorm.DB) error) (err error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("beginning transaction: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
