package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

// ProductionBlock is a scheduled interval of work on one machine with one
// assigned employee. RecipeID and Quantity are set only on production blocks.
type ProductionBlock struct {
	gorm.Model
	OwnerID        string      `gorm:"index;not null"`
	PlanID         uint        `gorm:"index"`
	Sequence       int         // position in the plan's ordered block list
	BlockType      BlockType   `gorm:"type:varchar(32)"`
	MachineID      uint        `gorm:"index"`
	EmployeeID     uint        `gorm:"index"`
	RecipeID       *uint
	Quantity       *float64
	StartTime      time.Time
	EndTime        time.Time
	Status         BlockStatus `gorm:"type:varchar(32);index"`
	Notes          string
	CreatedBy      string
	LastModifiedBy string
}

// BlockType represents the kind of work a block holds
type BlockType string

const (
	BlockTypePrep       BlockType = "prep"
	BlockTypeProduction BlockType = "production"
	BlockTypeCleaning   BlockType = "cleaning"
)

// IsValid reports whether the type is a known block type
func (t BlockType) IsValid() bool {
	switch t {
	case BlockTypePrep, BlockTypeProduction, BlockTypeCleaning:
		return true
	}
	return false
}

// BlockStatus represents the status of a production block
type BlockStatus string

const (
	BlockStatusScheduled  BlockStatus = "scheduled"
	BlockStatusInProgress BlockStatus = "in-progress"
	BlockStatusCompleted  BlockStatus = "completed"
	BlockStatusCancelled  BlockStatus = "cancelled"
)

// IsValid reports whether the status is a known block status
func (s BlockStatus) IsValid() bool {
	switch s {
	case BlockStatusScheduled, BlockStatusInProgress, BlockStatusCompleted, BlockStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s BlockStatus) IsTerminal() bool {
	return s == BlockStatusCompleted || s == BlockStatusCancelled
}

// TerminalBlockStatuses lists the statuses that no longer occupy resources
var TerminalBlockStatuses = []BlockStatus{BlockStatusCompleted, BlockStatusCancelled}

var blockTransitions = map[BlockStatus][]BlockStatus{
	BlockStatusScheduled:  {BlockStatusInProgress, BlockStatusCompleted, BlockStatusCancelled},
	BlockStatusInProgress: {BlockStatusCompleted, BlockStatusCancelled},
}

// CanTransition reports whether a block may move from one status to another
func CanTransition(from, to BlockStatus) bool {
	for _, next := range blockTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateBlock validates a production block before it is written
func ValidateBlock(b *ProductionBlock) error {
	if !b.BlockType.IsValid() {
		return fmt.Errorf("unknown block type %q", b.BlockType)
	}
	if !b.Status.IsValid() {
		return fmt.Errorf("unknown block status %q", b.Status)
	}
	if !b.EndTime.After(b.StartTime) {
		return fmt.Errorf("block must end after it starts")
	}
	if b.MachineID == 0 {
		return fmt.Errorf("block machine is required")
	}
	if b.EmployeeID == 0 {
		return fmt.Errorf("block employee is required")
	}
	if b.BlockType == BlockTypeProduction {
		if b.RecipeID == nil || *b.RecipeID == 0 || b.Quantity == nil {
			return fmt.Errorf("production blocks require a recipe and a quantity")
		}
		if *b.Quantity <= 0 {
			return fmt.Errorf("production quantity must be greater than 0")
		}
	} else if b.RecipeID != nil || b.Quantity != nil {
		return fmt.Errorf("%s blocks cannot carry a recipe or quantity", b.BlockType)
	}
	return nil
}

// IsLive reports whether the block still occupies its machine and employee
func (b *ProductionBlock) IsLive() bool {
	return !b.Status.IsTerminal()
}

// Overlaps reports whether the block's window intersects [start, end).
// Touching endpoints do not overlap.
func (b *ProductionBlock) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// Duration returns the length of the block
func (b *ProductionBlock) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// ProductionContribution returns the planned and completed amounts the block
// adds to its plan's recipe entry in its current state.
func (b *ProductionBlock) ProductionContribution() (recipeID uint, planned, completed float64) {
	if b.BlockType != BlockTypeProduction || b.RecipeID == nil || b.Quantity == nil {
		return 0, 0, 0
	}
	switch b.Status {
	case BlockStatusScheduled, BlockStatusInProgress:
		return *b.RecipeID, *b.Quantity, 0
	case BlockStatusCompleted:
		return *b.RecipeID, *b.Quantity, *b.Quantity
	}
	return *b.RecipeID, 0, 0
}
