package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"creamery/internal/models"
)

// Seed describes starting data for one owner. Entities reference each other
// by name.
type Seed struct {
	Owner     string         `yaml:"owner"`
	Machines  []SeedMachine  `yaml:"machines"`
	Employees []SeedEmployee `yaml:"employees"`
	Recipes   []SeedRecipe   `yaml:"recipes"`
	Yields    []SeedYield    `yaml:"yields"`
	Plans     []SeedPlan     `yaml:"plans"`
}

type SeedMachine struct {
	Name           string `yaml:"name"`
	TubCapacity    int    `yaml:"tub_capacity"`
	ProductionTime int    `yaml:"production_time"`
	Status         string `yaml:"status"`
}

type SeedEmployee struct {
	Name           string      `yaml:"name"`
	Role           string      `yaml:"role"`
	Active         *bool       `yaml:"active"`
	Shifts         []SeedShift `yaml:"shifts"`
	Certifications []string    `yaml:"certifications"` // machine names
}

type SeedShift struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type SeedRecipe struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type SeedYield struct {
	Recipe       string  `yaml:"recipe"`
	Machine      string  `yaml:"machine"`
	TubsPerBatch float64 `yaml:"tubs_per_batch"`
}

type SeedPlan struct {
	Name      string `yaml:"name"`
	WeekStart string `yaml:"week_start"` // YYYY-MM-DD
	Status    string `yaml:"status"`
}

// LoadSeed reads a seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &seed, nil
}

// ApplySeed inserts the seed's entities for owner when the owner has no
// machines yet. It returns false when the owner was already seeded.
func (s *Store) ApplySeed(ctx context.Context, owner string, seed *Seed) (bool, error) {
	if seed.Owner != "" {
		owner = seed.Owner
	}
	var count int
	if err := s.db.Model(&models.Machine{}).Where("owner_id = ?", owner).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking existing machines: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	machines := make(map[string]uint, len(seed.Machines))
	for _, sm := range seed.Machines {
		m := models.Machine{
			OwnerID:        owner,
			Name:           sm.Name,
			TubCapacity:    sm.TubCapacity,
			ProductionTime: sm.ProductionTime,
			Status:         models.MachineStatus(sm.Status),
		}
		if err := s.CreateMachine(ctx, &m); err != nil {
			return false, fmt.Errorf("seeding machine %q: %w", sm.Name, err)
		}
		machines[sm.Name] = m.ID
	}

	for _, se := range seed.Employees {
		e := models.Employee{
			OwnerID: owner,
			Name:    se.Name,
			Role:    models.EmployeeRole(se.Role),
			Active:  se.Active == nil || *se.Active,
		}
		for _, shift := range se.Shifts {
			e.Shifts = append(e.Shifts, models.Shift{DayOfWeek: shift.Day, StartTime: shift.Start, EndTime: shift.End})
		}
		for _, name := range se.Certifications {
			id, ok := machines[name]
			if !ok {
				return false, fmt.Errorf("employee %q certified for unknown machine %q", se.Name, name)
			}
			e.Certifications = append(e.Certifications, models.MachineCertification{
				MachineID:         id,
				CertificationDate: time.Now().UTC(),
			})
		}
		if err := s.CreateEmployee(ctx, &e); err != nil {
			return false, fmt.Errorf("seeding employee %q: %w", se.Name, err)
		}
	}

	recipes := make(map[string]uint, len(seed.Recipes))
	for _, sr := range seed.Recipes {
		r := models.Recipe{OwnerID: owner, Name: sr.Name, Category: sr.Category}
		if err := s.CreateRecipe(ctx, &r); err != nil {
			return false, fmt.Errorf("seeding recipe %q: %w", sr.Name, err)
		}
		recipes[sr.Name] = r.ID
	}

	for _, sy := range seed.Yields {
		recipeID, ok := recipes[sy.Recipe]
		if !ok {
			return false, fmt.Errorf("yield references unknown recipe %q", sy.Recipe)
		}
		machineID, ok := machines[sy.Machine]
		if !ok {
			return false, fmt.Errorf("yield references unknown machine %q", sy.Machine)
		}
		y := models.RecipeMachineYield{OwnerID: owner, RecipeID: recipeID, MachineID: machineID, TubsPerBatch: sy.TubsPerBatch}
		if err := s.UpsertYield(ctx, &y); err != nil {
			return false, fmt.Errorf("seeding yield %s/%s: %w", sy.Recipe, sy.Machine, err)
		}
	}

	for _, sp := range seed.Plans {
		week, err := time.Parse("2006-01-02", sp.WeekStart)
		if err != nil {
			return false, fmt.Errorf("plan %q has malformed week_start %q", sp.Name, sp.WeekStart)
		}
		p := models.ProductionPlan{
			OwnerID:       owner,
			Name:          sp.Name,
			WeekStartDate: week,
			Status:        models.PlanStatus(sp.Status),
		}
		if err := s.CreatePlan(ctx, &p); err != nil {
			return false, fmt.Errorf("seeding plan %q: %w", sp.Name, err)
		}
	}

	s.log.Info("seeded owner", "owner", owner,
		"machines", len(seed.Machines), "employees", len(seed.Employees),
		"recipes", len(seed.Recipes), "plans", len(seed.Plans))
	return true, nil
}
