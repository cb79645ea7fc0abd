package scheduling

import (
	"context"
	"time"

	"creamery/internal/apperr"
	"creamery/internal/database"
	"creamery/internal/models"
)

// Resource names the kind of resource a conflict was found on
type Resource string

const (
	ResourceMachine  Resource = "machine"
	ResourceEmployee Resource = "employee"
)

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Touching
// endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// Conflict describes an existing block that collides with a proposed window
type Conflict struct {
	BlockID   uint             `json:"blockId"`
	PlanID    uint             `json:"planId"`
	PlanName  string           `json:"planName"`
	BlockType models.BlockType `json:"blockType"`
	StartTime time.Time        `json:"startTime"`
	EndTime   time.Time        `json:"endTime"`
	Resource  Resource         `json:"resource"`
}

// ConflictReport lists collisions per resource
type ConflictReport struct {
	HasConflict       bool       `json:"hasConflict"`
	MachineConflicts  []Conflict `json:"machineConflicts"`
	EmployeeConflicts []Conflict `json:"employeeConflicts"`
}

func newConflictReport() ConflictReport {
	return ConflictReport{MachineConflicts: []Conflict{}, EmployeeConflicts: []Conflict{}}
}

// FindConflicts returns the live blocks that overlap [start, end), skipping
// excludeBlockID.
func FindConflicts(blocks []models.ProductionBlock, start, end time.Time, excludeBlockID uint, resource Resource) []Conflict {
	conflicts := []Conflict{}
	for _, b := range blocks {
		if excludeBlockID != 0 && b.ID == excludeBlockID {
			continue
		}
		if !b.IsLive() || !Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			BlockID:   b.ID,
			PlanID:    b.PlanID,
			BlockType: b.BlockType,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Resource:  resource,
		})
	}
	return conflicts
}

// ConflictChecker looks up live commitments of a machine and an employee
type ConflictChecker struct {
	store Store
}

func NewConflictChecker(store Store) *ConflictChecker {
	return &ConflictChecker{store: store}
}

// Check reports every live block on machineID or employeeID that overlaps
// [start, end). A zero id skips that resource.
func (c *ConflictChecker) Check(ctx context.Context, owner string, machineID, employeeID uint, start, end time.Time, excludeBlockID uint) (ConflictReport, error) {
	report := newConflictReport()
	if !end.After(start) {
		return report, apperr.Validation("end time %s must be after start time %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	if machineID != 0 {
		blocks, err := c.store.ListLiveBlocks(ctx, owner, database.BlockFilter{MachineID: machineID, From: start, To: end})
		if err != nil {
			return report, err
		}
		report.MachineConflicts = FindConflicts(blocks, start, end, excludeBlockID, ResourceMachine)
	}
	if employeeID != 0 {
		blocks, err := c.store.ListLiveBlocks(ctx, owner, database.BlockFilter{EmployeeID: employeeID, From: start, To: end})
		if err != nil {
			return report, err
		}
		report.EmployeeConflicts = FindConflicts(blocks, start, end, excludeBlockID, ResourceEmployee)
	}

	report.HasConflict = len(report.MachineConflicts) > 0 || len(report.EmployeeConflicts) > 0
	if !report.HasConflict {
		return report, nil
	}
	return report, c.attachPlanNames(ctx, owner, &report)
}

func (c *ConflictChecker) attachPlanNames(ctx context.Context, owner string, report *ConflictReport) error {
	seen := make(map[uint]bool)
	var ids []uint
	for _, list := range [][]Conflict{report.MachineConflicts, report.EmployeeConflicts} {
		for _, conflict := range list {
			if !seen[conflict.PlanID] {
				seen[conflict.PlanID] = true
				ids = append(ids, conflict.PlanID)
			}
		}
	}
	names, err := c.store.PlanNames(ctx, owner, ids)
	if err != nil {
		return err
	}
	for i := range report.MachineConflicts {
		report.MachineConflicts[i].PlanName = names[report.MachineConflicts[i].PlanID]
	}
	for i := range report.EmployeeConflicts {
		report.EmployeeConflicts[i].PlanName = names[report.EmployeeConflicts[i].PlanID]
	}
	return nil
}
