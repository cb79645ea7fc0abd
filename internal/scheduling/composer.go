package scheduling

import (
	"math"
	"time"

	"creamery/internal/apperr"
	"creamery/internal/models"
)

const (
	minPrepMinutes     = 15
	minCleaningMinutes = 20
)

// Durations are the minutes a production run occupies a machine
type Durations struct {
	Batches           int `json:"batches"`
	ProductionMinutes int `json:"productionMinutes"`
	PrepMinutes       int `json:"recommendedPrepMinutes"`
	CleaningMinutes   int `json:"recommendedCleaningMinutes"`
	TotalMinutes      int `json:"totalMinutes"`
}

// ComputeDurations sizes a run of quantity tubs on machine. Prep and cleaning
// scale with tub capacity and have fixed floors.
func ComputeDurations(machine *models.Machine, quantity float64) (Durations, error) {
	if machine == nil {
		return Durations{}, apperr.Validation("machine is required")
	}
	if err := models.ValidateMachine(machine); err != nil {
		return Durations{}, apperr.Validation("%s", err.Error())
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return Durations{}, apperr.Validation("quantity must be positive, got %v", quantity)
	}

	d := Durations{
		Batches:         int(math.Ceil(quantity / float64(machine.TubCapacity))),
		PrepMinutes:     maxInt(minPrepMinutes, int(math.Round(float64(machine.TubCapacity)*2.5))),
		CleaningMinutes: maxInt(minCleaningMinutes, int(math.Round(float64(machine.TubCapacity)*3))),
	}
	d.ProductionMinutes = d.Batches * machine.ProductionTime
	d.TotalMinutes = d.ProductionMinutes + d.PrepMinutes + d.CleaningMinutes
	return d, nil
}

// Required is the machine time needed when only the included phases are laid out
func (d Durations) Required(opts ComposeOptions) int {
	total := d.ProductionMinutes
	if opts.IncludePrep {
		total += d.PrepMinutes
	}
	if opts.IncludeCleaning {
		total += d.CleaningMinutes
	}
	return total
}

// BlockSpec carries the fields specific to one kind of block. It is
// implemented by PrepSpec, ProductionSpec and CleaningSpec only.
type BlockSpec interface {
	Type() models.BlockType
	apply(b *models.ProductionBlock)
}

type PrepSpec struct{}

func (PrepSpec) Type() models.BlockType { return models.BlockTypePrep }
func (PrepSpec) apply(*models.ProductionBlock) {}

// ProductionSpec is the recipe and tub count a production block makes
type ProductionSpec struct {
	RecipeID uint
	Quantity float64
}

func (ProductionSpec) Type() models.BlockType { return models.BlockTypeProduction }

func (s ProductionSpec) apply(b *models.ProductionBlock) {
	recipeID, quantity := s.RecipeID, s.Quantity
	b.RecipeID = &recipeID
	b.Quantity = &quantity
}

type CleaningSpec struct{}

func (CleaningSpec) Type() models.BlockType { return models.BlockTypeCleaning }
func (CleaningSpec) apply(*models.ProductionBlock) {}

// SpecFor builds the spec matching a block type from loosely typed input.
// Production requires a recipe and a positive quantity; the other types
// must carry neither.
func SpecFor(blockType models.BlockType, recipeID *uint, quantity *float64) (BlockSpec, error) {
	switch blockType {
	case models.BlockTypeProduction:
		if recipeID == nil || *recipeID == 0 {
			return nil, apperr.Validation("production blocks require a recipe")
		}
		if quantity == nil || *quantity <= 0 {
			return nil, apperr.Validation("production blocks require a positive quantity")
		}
		return ProductionSpec{RecipeID: *recipeID, Quantity: *quantity}, nil
	case models.BlockTypePrep, models.BlockTypeCleaning:
		if recipeID != nil || quantity != nil {
			return nil, apperr.Validation("%s blocks cannot carry a recipe or quantity", blockType)
		}
		if blockType == models.BlockTypePrep {
			return PrepSpec{}, nil
		}
		return CleaningSpec{}, nil
	default:
		return nil, apperr.Validation("unknown block type %q", blockType)
	}
}

// BlockBase holds the fields shared by every block of a set
type BlockBase struct {
	PlanID     uint
	MachineID  uint
	EmployeeID uint
	Actor      string
	Notes      string
}

// ComposeBlock builds a single scheduled block over [start, end)
func ComposeBlock(start, end time.Time, base BlockBase, spec BlockSpec) *models.ProductionBlock {
	b := &models.ProductionBlock{
		PlanID:         base.PlanID,
		BlockType:      spec.Type(),
		MachineID:      base.MachineID,
		EmployeeID:     base.EmployeeID,
		StartTime:      start,
		EndTime:        end,
		Status:         models.BlockStatusScheduled,
		Notes:          base.Notes,
		CreatedBy:      base.Actor,
		LastModifiedBy: base.Actor,
	}
	spec.apply(b)
	return b
}

// ComposeOptions selects which optional phases a block set includes
type ComposeOptions struct {
	IncludePrep     bool
	IncludeCleaning bool
}

// BlockSet is a prep, production and cleaning run laid out back to back
type BlockSet struct {
	Prep       *models.ProductionBlock
	Production *models.ProductionBlock
	Cleaning   *models.ProductionBlock
}

// Blocks returns the set's blocks in time order
func (s BlockSet) Blocks() []*models.ProductionBlock {
	blocks := make([]*models.ProductionBlock, 0, 3)
	for _, b := range []*models.ProductionBlock{s.Prep, s.Production, s.Cleaning} {
		if b != nil {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Window is the interval covered by the whole set
func (s BlockSet) Window() (time.Time, time.Time) {
	blocks := s.Blocks()
	if len(blocks) == 0 {
		return time.Time{}, time.Time{}
	}
	return blocks[0].StartTime, blocks[len(blocks)-1].EndTime
}

// ComposeBlockSet lays out prep, production and cleaning from start with no
// gaps. Only the production block carries the recipe and quantity.
func ComposeBlockSet(start time.Time, d Durations, base BlockBase, production ProductionSpec, opts ComposeOptions) BlockSet {
	var set BlockSet
	cursor := start
	if opts.IncludePrep {
		end := cursor.Add(minutes(d.PrepMinutes))
		set.Prep = ComposeBlock(cursor, end, base, PrepSpec{})
		cursor = end
	}

	end := cursor.Add(minutes(d.ProductionMinutes))
	set.Production = ComposeBlock(cursor, end, base, production)
	cursor = end

	if opts.IncludeCleaning {
		set.Cleaning = ComposeBlock(cursor, cursor.Add(minutes(d.CleaningMinutes)), base, CleaningSpec{})
	}
	return set
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
