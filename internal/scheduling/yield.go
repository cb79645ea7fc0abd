package scheduling

import (
	"context"

	"creamery/internal/apperr"
)

// YieldSource tells whether a yield came from a stored row or from policy
type YieldSource string

const (
	YieldExplicit YieldSource = "explicit"
	YieldDefault  YieldSource = "default"
)

// Yield is the number of tubs one batch of a recipe produces on a machine
type Yield struct {
	TubsPerBatch float64     `json:"tubsPerBatch"`
	Source       YieldSource `json:"source"`
}

// YieldCatalog resolves recipe/machine yields, falling back to the default
// policy value when no row exists for the pair.
type YieldCatalog struct {
	store        Store
	defaultYield float64
}

func NewYieldCatalog(store Store, defaultYield float64) *YieldCatalog {
	return &YieldCatalog{store: store, defaultYield: defaultYield}
}

// Lookup never reports a missing row as an error; only store failures propagate.
func (c *YieldCatalog) Lookup(ctx context.Context, owner string, recipeID, machineID uint) (Yield, error) {
	row, err := c.store.GetYield(ctx, owner, recipeID, machineID)
	switch {
	case apperr.IsNotFound(err):
		return Yield{TubsPerBatch: c.defaultYield, Source: YieldDefault}, nil
	case err != nil:
		return Yield{}, err
	}
	return Yield{TubsPerBatch: row.TubsPerBatch, Source: YieldExplicit}, nil
}
