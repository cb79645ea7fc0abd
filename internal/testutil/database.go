package testutil

import (
	"context"
	"testing"
	"time"

	"creamery/internal/database"
	"creamery/internal/logger"
	"creamery/internal/models"
)

// Owner is the account every seed helper writes under
const Owner = "test-shop"

// NewTestStore opens a migrated in-memory SQLite store that is closed when the test ends
func NewTestStore(tb testing.TB) *database.Store {
	tb.Helper()

	db, err := database.Open("sqlite3", ":memory:")
	if err != nil {
		tb.Fatalf("opening test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrating test database: %v", err)
	}
	tb.Cleanup(func() {
		db.Close()
	})

	return database.NewStore(db, logger.Nop())
}

// Monday is the week start used across scheduling tests
func Monday() time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
}

func SeedMachine(tb testing.TB, store *database.Store, name string, capacity, productionTime int) *models.Machine {
	tb.Helper()
	m := &models.Machine{
		OwnerID:        Owner,
		Name:           name,
		TubCapacity:    capacity,
		ProductionTime: productionTime,
		Status:         models.MachineStatusAvailable,
	}
	if err := store.CreateMachine(context.Background(), m); err != nil {
		tb.Fatalf("seed machine: %v", err)
	}
	return m
}

// SeedEmployee creates an active operator certified for the given machines
func SeedEmployee(tb testing.TB, store *database.Store, name string, machineIDs ...uint) *models.Employee {
	tb.Helper()
	e := &models.Employee{
		OwnerID: Owner,
		Name:    name,
		Role:    models.RoleOperator,
		Active:  true,
	}
	for _, id := range machineIDs {
		e.Certifications = append(e.Certifications, models.MachineCertification{
			MachineID:         id,
			CertificationDate: Monday().AddDate(0, -1, 0),
		})
	}
	if err := store.CreateEmployee(context.Background(), e); err != nil {
		tb.Fatalf("seed employee: %v", err)
	}
	return e
}

func SeedRecipe(tb testing.TB, store *database.Store, name string) *models.Recipe {
	tb.Helper()
	r := &models.Recipe{OwnerID: Owner, Name: name}
	if err := store.CreateRecipe(context.Background(), r); err != nil {
		tb.Fatalf("seed recipe: %v", err)
	}
	return r
}

func SeedYield(tb testing.TB, store *database.Store, recipeID, machineID uint, tubsPerBatch float64) *models.RecipeMachineYield {
	tb.Helper()
	y := &models.RecipeMachineYield{OwnerID: Owner, RecipeID: recipeID, MachineID: machineID, TubsPerBatch: tubsPerBatch}
	if err := store.UpsertYield(context.Background(), y); err != nil {
		tb.Fatalf("seed yield: %v", err)
	}
	return y
}

func SeedPlan(tb testing.TB, store *database.Store, name string) *models.ProductionPlan {
	tb.Helper()
	p := &models.ProductionPlan{OwnerID: Owner, Name: name, WeekStartDate: Monday(), Status: models.PlanStatusActive}
	if err := store.CreatePlan(context.Background(), p); err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}
