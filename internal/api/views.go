package api

import (
	"time"

	"creamery/internal/models"
	"creamery/internal/scheduling"
)

type MachineView struct {
	ID                 uint                 `json:"id"`
	Name               string               `json:"name"`
	TubCapacity        int                  `json:"tubCapacity"`
	ProductionTime     int                  `json:"productionTime"`
	Status             models.MachineStatus `json:"status"`
	AssignedEmployeeID *uint                `json:"assignedEmployeeId,omitempty"`
	Notes              string               `json:"notes,omitempty"`
}

func machineView(m *models.Machine) MachineView {
	return MachineView{
		ID:                 m.ID,
		Name:               m.Name,
		TubCapacity:        m.TubCapacity,
		ProductionTime:     m.ProductionTime,
		Status:             m.Status,
		AssignedEmployeeID: m.AssignedEmployeeID,
		Notes:              m.Notes,
	}
}

type ShiftView struct {
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type EmployeeView struct {
	ID                uint                `json:"id"`
	Name              string              `json:"name"`
	Role              models.EmployeeRole `json:"role"`
	Active            bool                `json:"active"`
	Shifts            []ShiftView         `json:"shifts"`
	CertifiedMachines []uint              `json:"certifiedMachines"`
}

func employeeView(e *models.Employee) EmployeeView {
	view := EmployeeView{
		ID:                e.ID,
		Name:              e.Name,
		Role:              e.Role,
		Active:            e.Active,
		Shifts:            make([]ShiftView, 0, len(e.Shifts)),
		CertifiedMachines: make([]uint, 0, len(e.Certifications)),
	}
	for _, s := range e.Shifts {
		view.Shifts = append(view.Shifts, ShiftView{DayOfWeek: s.DayOfWeek, StartTime: s.StartTime, EndTime: s.EndTime})
	}
	for _, c := range e.Certifications {
		view.CertifiedMachines = append(view.CertifiedMachines, c.MachineID)
	}
	return view
}

type BlockView struct {
	ID             uint               `json:"id"`
	PlanID         uint               `json:"planId"`
	Sequence       int                `json:"sequence"`
	BlockType      models.BlockType   `json:"blockType"`
	MachineID      uint               `json:"machineId"`
	EmployeeID     uint               `json:"employeeId"`
	RecipeID       *uint              `json:"recipeId,omitempty"`
	Quantity       *float64           `json:"quantity,omitempty"`
	StartTime      time.Time          `json:"startTime"`
	EndTime        time.Time          `json:"endTime"`
	Status         models.BlockStatus `json:"status"`
	Notes          string             `json:"notes,omitempty"`
	CreatedBy      string             `json:"createdBy,omitempty"`
	LastModifiedBy string             `json:"lastModifiedBy,omitempty"`
}

func blockView(b *models.ProductionBlock) BlockView {
	return BlockView{
		ID:             b.ID,
		PlanID:         b.PlanID,
		Sequence:       b.Sequence,
		BlockType:      b.BlockType,
		MachineID:      b.MachineID,
		EmployeeID:     b.EmployeeID,
		RecipeID:       b.RecipeID,
		Quantity:       b.Quantity,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		Status:         b.Status,
		Notes:          b.Notes,
		CreatedBy:      b.CreatedBy,
		LastModifiedBy: b.LastModifiedBy,
	}
}

func blockViews(blocks []models.ProductionBlock) []BlockView {
	views := make([]BlockView, 0, len(blocks))
	for i := range blocks {
		views = append(views, blockView(&blocks[i]))
	}
	return views
}

func blockPtrViews(blocks []*models.ProductionBlock) []BlockView {
	views := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		views = append(views, blockView(b))
	}
	return views
}

// BlockSetView is a prep/production/cleaning run; absent phases are null
type BlockSetView struct {
	PrepBlock       *BlockView `json:"prepBlock"`
	ProductionBlock *BlockView `json:"productionBlock"`
	CleaningBlock   *BlockView `json:"cleaningBlock"`
}

func blockSetView(set scheduling.BlockSet) BlockSetView {
	var view BlockSetView
	if set.Prep != nil {
		v := blockView(set.Prep)
		view.PrepBlock = &v
	}
	if set.Production != nil {
		v := blockView(set.Production)
		view.ProductionBlock = &v
	}
	if set.Cleaning != nil {
		v := blockView(set.Cleaning)
		view.CleaningBlock = &v
	}
	return view
}

type PlanRecipeView struct {
	RecipeID        uint    `json:"recipeId"`
	PlannedAmount   float64 `json:"plannedAmount"`
	CompletedAmount float64 `json:"completedAmount"`
}

type PlanView struct {
	ID               uint              `json:"id"`
	Name             string            `json:"name"`
	WeekStartDate    time.Time         `json:"weekStartDate"`
	Status           models.PlanStatus `json:"status"`
	CompletionStatus float64           `json:"completionStatus"`
	Version          int               `json:"version"`
	Notes            string            `json:"notes,omitempty"`
	Recipes          []PlanRecipeView  `json:"recipes"`
	Blocks           []BlockView       `json:"blocks,omitempty"`
}

func planView(p *models.ProductionPlan, blocks []models.ProductionBlock) PlanView {
	view := PlanView{
		ID:               p.ID,
		Name:             p.Name,
		WeekStartDate:    p.WeekStartDate,
		Status:           p.Status,
		CompletionStatus: p.CompletionStatus,
		Version:          p.Version,
		Notes:            p.Notes,
		Recipes:          make([]PlanRecipeView, 0, len(p.Recipes)),
	}
	for _, r := range p.Recipes {
		view.Recipes = append(view.Recipes, PlanRecipeView{
			RecipeID:        r.RecipeID,
			PlannedAmount:   r.PlannedAmount,
			CompletedAmount: r.CompletedAmount,
		})
	}
	if blocks != nil {
		view.Blocks = blockViews(blocks)
	}
	return view
}

type RevisionView struct {
	Version   int              `json:"version"`
	ChangedBy string           `json:"changedBy"`
	ChangedAt time.Time        `json:"changedAt"`
	Changes   models.ChangeSet `json:"changes"`
}

func revisionViews(revisions []models.BlockRevision) []RevisionView {
	views := make([]RevisionView, 0, len(revisions))
	for _, r := range revisions {
		views = append(views, RevisionView{
			Version:   r.Version,
			ChangedBy: r.ChangedBy,
			ChangedAt: r.CreatedAt,
			Changes:   r.Changes,
		})
	}
	return views
}

type GenerateView struct {
	PlanID             uint                           `json:"planId"`
	CreatedBlocks      []BlockView                    `json:"createdBlocks"`
	UnscheduledRecipes []scheduling.UnscheduledRecipe `json:"unscheduledRecipes"`
	Assignments        []scheduling.Assignment        `json:"assignments"`
}

func generateView(r *scheduling.GenerateResult) GenerateView {
	view := GenerateView{
		PlanID:             r.PlanID,
		CreatedBlocks:      blockViews(r.CreatedBlocks),
		UnscheduledRecipes: r.UnscheduledRecipes,
		Assignments:        r.Assignments,
	}
	if view.UnscheduledRecipes == nil {
		view.UnscheduledRecipes = []scheduling.UnscheduledRecipe{}
	}
	if view.Assignments == nil {
		view.Assignments = []scheduling.Assignment{}
	}
	return view
}

type SuggestionView struct {
	Success   bool                       `json:"success"`
	Message   string                     `json:"message,omitempty"`
	Durations scheduling.Durations       `json:"durations"`
	Blocks    *BlockSetView              `json:"blocks,omitempty"`
	Conflicts *scheduling.ConflictReport `json:"conflicts,omitempty"`
}

func suggestionView(s *scheduling.Suggestion) SuggestionView {
	view := SuggestionView{
		Success:   s.Success,
		Message:   s.Message,
		Durations: s.Durations,
		Conflicts: s.Conflicts,
	}
	if s.Success {
		set := blockSetView(s.Set)
		view.Blocks = &set
	}
	return view
}
