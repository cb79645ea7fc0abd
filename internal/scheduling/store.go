package scheduling

import (
	"context"

	"creamery/internal/database"
	"creamery/internal/models"
)

// Store is the persistence the scheduler reads resources from and commits
// blocks through. *database.Store satisfies it.
type Store interface {
	GetMachine(ctx context.Context, owner string, id uint) (*models.Machine, error)
	ListMachines(ctx context.Context, owner string, filter database.MachineFilter) ([]models.Machine, error)
	GetEmployee(ctx context.Context, owner string, id uint) (*models.Employee, error)
	ListEmployees(ctx context.Context, owner string, filter database.EmployeeFilter) ([]models.Employee, error)
	GetRecipe(ctx context.Context, owner string, id uint) (*models.Recipe, error)
	GetYield(ctx context.Context, owner string, recipeID, machineID uint) (*models.RecipeMachineYield, error)
	ListYieldsForRecipe(ctx context.Context, owner string, recipeID uint) ([]models.RecipeMachineYield, error)
	GetPlan(ctx context.Context, owner string, id uint) (*models.ProductionPlan, error)
	GetBlock(ctx context.Context, owner string, id uint) (*models.ProductionBlock, error)
	ListLiveBlocks(ctx context.Context, owner string, filter database.BlockFilter) ([]models.ProductionBlock, error)
	PlanNames(ctx context.Context, owner string, ids []uint) (map[uint]string, error)
	ApplyBlockChanges(ctx context.Context, owner string, planID uint, changes []database.BlockChange) (*models.ProductionPlan, error)
}

// Publisher receives schedule events for connected clients
type Publisher interface {
	Publish(owner string, eventType string, payload interface{})
}

// Recorder receives scheduling metrics
type Recorder interface {
	BlocksCreated(source string, n int)
	RecipeUnscheduled(reason string)
	ConflictRejected(resource string)
	ForcedAssignment()
	GenerationFinished(seconds float64)
}

// Event types published after commits
const (
	EventBlockCreated  = "block.created"
	EventBlockUpdated  = "block.updated"
	EventBlockDeleted  = "block.deleted"
	EventPlanGenerated = "plan.generated"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, interface{}) {}

type nopRecorder struct{}

func (nopRecorder) BlocksCreated(string, int) {}
func (nopRecorder) RecipeUnscheduled(string) {}
func (nopRecorder) ConflictRejected(string) {}
func (nopRecorder) ForcedAssignment() {}
func (nopRecorder) GenerationFinished(float64) {}
