package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"

	"creamery/internal/apperr"
	"creamery/internal/logger"
	"creamery/internal/models"
)

// Store is the gorm-backed persistence layer for machines, staff, recipes,
// plans and blocks. Every query is scoped to an owning account.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewStore creates a store over an open, migrated database
func NewStore(db *gorm.DB, baseLog *logger.Logger) *Store {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Store{db: db, log: baseLog.With("component", "store")}
}

// DB exposes the underlying connection
func (s *Store) DB() *gorm.DB {
	return s.db
}

// MachineFilter narrows ListMachines
type MachineFilter struct {
	Status      models.MachineStatus
	MinCapacity int
}

// EmployeeFilter narrows ListEmployees
type EmployeeFilter struct {
	ActiveOnly   bool
	CertifiedFor uint
}

// BlockFilter narrows ListLiveBlocks. Zero values are ignored; From/To keep
// blocks whose window intersects [From, To).
type BlockFilter struct {
	MachineID  uint
	EmployeeID uint
	From       time.Time
	To         time.Time
}

func (s *Store) GetMachine(ctx context.Context, owner string, id uint) (*models.Machine, error) {
	var machine models.Machine
	if err := s.db.Where("owner_id = ? AND id = ?", owner, id).First(&machine).Error; err != nil {
		return nil, notFoundOr(err, "machine", id)
	}
	return &machine, nil
}

func (s *Store) ListMachines(ctx context.Context, owner string, filter MachineFilter) ([]models.Machine, error) {
	query := s.db.Where("owner_id = ?", owner)
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.MinCapacity > 0 {
		query = query.Where("tub_capacity >= ?", filter.MinCapacity)
	}
	var machines []models.Machine
	if err := query.Order("id asc").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	return machines, nil
}

func (s *Store) GetEmployee(ctx context.Context, owner string, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := s.db.Preload("Shifts").Preload("Certifications").
		Where("owner_id = ? AND id = ?", owner, id).First(&employee).Error
	if err != nil {
		return nil, notFoundOr(err, "employee", id)
	}
	return &employee, nil
}

// ListEmployees returns employees ordered by id
func (s *Store) ListEmployees(ctx context.Context, owner string, filter EmployeeFilter) ([]models.Employee, error) {
	query := s.db.Preload("Shifts").Preload("Certifications").Where("employees.owner_id = ?", owner)
	if filter.ActiveOnly {
		query = query.Where("employees.active = ?", true)
	}
	if filter.CertifiedFor != 0 {
		query = query.Where(
			"employees.id IN (SELECT employee_id FROM machine_certifications WHERE machine_id = ? AND deleted_at IS NULL)",
			filter.CertifiedFor,
		)
	}
	var employees []models.Employee
	if err := query.Order("employees.id asc").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	return employees, nil
}

func (s *Store) GetRecipe(ctx context.Context, owner string, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.Where("owner_id = ? AND id = ?", owner, id).First(&recipe).Error; err != nil {
		return nil, notFoundOr(err, "recipe", id)
	}
	return &recipe, nil
}

// GetYield returns the explicit yield for a recipe/machine pair
func (s *Store) GetYield(ctx context.Context, owner string, recipeID, machineID uint) (*models.RecipeMachineYield, error) {
	var y models.RecipeMachineYield
	err := s.db.Where("owner_id = ? AND recipe_id = ? AND machine_id = ?", owner, recipeID, machineID).First(&y).Error
	if err != nil {
		return nil, notFoundOr(err, "yield", fmt.Sprintf("recipe=%d machine=%d", recipeID, machineID))
	}
	return &y, nil
}

// ListYieldsForRecipe returns every explicit yield for a recipe, ordered by machine
func (s *Store) ListYieldsForRecipe(ctx context.Context, owner string, recipeID uint) ([]models.RecipeMachineYield, error) {
	var yields []models.RecipeMachineYield
	err := s.db.Where("owner_id = ? AND recipe_id = ?", owner, recipeID).Order("machine_id asc").Find(&yields).Error
	if err != nil {
		return nil, fmt.Errorf("listing yields for recipe %d: %w", recipeID, err)
	}
	return yields, nil
}

func (s *Store) GetPlan(ctx context.Context, owner string, id uint) (*models.ProductionPlan, error) {
	return getPlan(s.db, owner, id)
}

func getPlan(db *gorm.DB, owner string, id uint) (*models.ProductionPlan, error) {
	var plan models.ProductionPlan
	err := db.Preload("Recipes", func(db *gorm.DB) *gorm.DB { return db.Order("plan_recipes.id asc") }).
		Where("owner_id = ? AND id = ?", owner, id).First(&plan).Error
	if err != nil {
		return nil, notFoundOr(err, "plan", id)
	}
	return &plan, nil
}

// ListPlanBlocks returns the plan's blocks in list order
func (s *Store) ListPlanBlocks(ctx context.Context, owner string, planID uint) ([]models.ProductionBlock, error) {
	var blocks []models.ProductionBlock
	err := s.db.Where("owner_id = ? AND plan_id = ?", owner, planID).Order("sequence asc, id asc").Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("listing blocks for plan %d: %w", planID, err)
	}
	return blocks, nil
}

func (s *Store) GetBlock(ctx context.Context, owner string, id uint) (*models.ProductionBlock, error) {
	var block models.ProductionBlock
	if err := s.db.Where("owner_id = ? AND id = ?", owner, id).First(&block).Error; err != nil {
		return nil, notFoundOr(err, "block", id)
	}
	return &block, nil
}

// ListLiveBlocks returns non-terminal blocks matching the filter, ordered by start
func (s *Store) ListLiveBlocks(ctx context.Context, owner string, filter BlockFilter) ([]models.ProductionBlock, error) {
	query := s.db.Where("owner_id = ? AND status NOT IN (?)", owner, terminalStatuses())
	if filter.MachineID != 0 {
		query = query.Where("machine_id = ?", filter.MachineID)
	}
	if filter.EmployeeID != 0 {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if !filter.To.IsZero() {
		query = query.Where("start_time < ?", filter.To.UTC())
	}
	if !filter.From.IsZero() {
		query = query.Where("end_time > ?", filter.From.UTC())
	}
	var blocks []models.ProductionBlock
	if err := query.Order("start_time asc, id asc").Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("listing live blocks: %w", err)
	}
	return blocks, nil
}

// ListRevisions returns the change history of a block, oldest first
func (s *Store) ListRevisions(ctx context.Context, owner string, blockID uint) ([]models.BlockRevision, error) {
	var revisions []models.BlockRevision
	err := s.db.Where("owner_id = ? AND block_id = ?", owner, blockID).Order("version asc").Find(&revisions).Error
	if err != nil {
		return nil, fmt.Errorf("listing revisions for block %d: %w", blockID, err)
	}
	return revisions, nil
}

// PlanNames maps plan ids to names for the given ids
func (s *Store) PlanNames(ctx context.Context, owner string, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var plans []models.ProductionPlan
	if err := s.db.Where("owner_id = ? AND id IN (?)", owner, ids).Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("loading plan names: %w", err)
	}
	for _, p := range plans {
		names[p.ID] = p.Name
	}
	return names, nil
}

func terminalStatuses() []string {
	statuses := make([]string, 0, len(models.TerminalBlockStatuses))
	for _, status := range models.TerminalBlockStatuses {
		statuses = append(statuses, string(status))
	}
	return statuses
}

func notFoundOr(err error, entity string, id interface{}) error {
	if gorm.IsRecordNotFoundError(err) {
		return apperr.NotFound(entity, id)
	}
	return fmt.Errorf("loading %s %v: %w", entity, id, err)
}
