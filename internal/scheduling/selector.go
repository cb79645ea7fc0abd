package scheduling

import (
	"sort"

	"creamery/internal/models"
)

// Selection is the machine chosen to produce a recipe
type Selection struct {
	Machine        models.Machine
	TubsPerBatch   float64
	ProductionTime int
	YieldSource    YieldSource
}

// MachineSelector picks the most efficient machine for a recipe
type MachineSelector struct {
	defaultYield float64
}

func NewMachineSelector(defaultYield float64) *MachineSelector {
	return &MachineSelector{defaultYield: defaultYield}
}

// SelectBest chooses among candidates using the recipe's explicit yields.
//
// A recipe with no yields at all runs on the largest machine at the default
// yield. Otherwise only candidate machines holding a yield row qualify, and of
// those only machines whose tub capacity holds a full batch. The pair with the
// greatest tubsPerBatch/productionTime wins and ties go to the lowest machine
// id. The second return is false when nothing qualifies.
func (s *MachineSelector) SelectBest(candidates []models.Machine, yields []models.RecipeMachineYield) (Selection, bool) {
	machines := make([]models.Machine, len(candidates))
	copy(machines, candidates)
	sort.Slice(machines, func(i, j int) bool { return machines[i].ID < machines[j].ID })

	if len(yields) == 0 {
		return s.largest(machines)
	}

	byID := make(map[uint]models.Machine, len(machines))
	for _, m := range machines {
		byID[m.ID] = m
	}
	ordered := make([]models.RecipeMachineYield, len(yields))
	copy(ordered, yields)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MachineID < ordered[j].MachineID })

	var (
		best      Selection
		bestScore float64
		found     bool
	)
	for _, y := range ordered {
		m, ok := byID[y.MachineID]
		if !ok || m.ProductionTime <= 0 || float64(m.TubCapacity) < y.TubsPerBatch {
			continue
		}
		score := y.TubsPerBatch / float64(m.ProductionTime)
		if !found || score > bestScore {
			best = Selection{Machine: m, TubsPerBatch: y.TubsPerBatch, ProductionTime: m.ProductionTime, YieldSource: YieldExplicit}
			bestScore = score
			found = true
		}
	}
	return best, found
}

func (s *MachineSelector) largest(machines []models.Machine) (Selection, bool) {
	var (
		best  models.Machine
		found bool
	)
	for _, m := range machines {
		if m.ProductionTime <= 0 {
			continue
		}
		if !found || m.TubCapacity > best.TubCapacity {
			best = m
			found = true
		}
	}
	if !found {
		return Selection{}, false
	}
	return Selection{Machine: best, TubsPerBatch: s.defaultYield, ProductionTime: best.ProductionTime, YieldSource: YieldDefault}, true
}
