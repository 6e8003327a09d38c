package commission

import (
	"fmt"
	"sync"

	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

// Tier maps an amount bracket to a platform fee percentage. MaxAmount < 0
// marks the unbounded catch-all bracket; only the last tier may carry it.
type Tier struct {
	MinAmount  int64 `yaml:"min_amount" json:"minAmount"`
	MaxAmount  int64 `yaml:"max_amount" json:"maxAmount"`
	Percentage int   `yaml:"percentage" json:"percentage"`
}

// DefaultTiers is the platform's standard commission table.
func DefaultTiers() []Tier {
	return []Tier{
		{MinAmount: 0, MaxAmount: 999, Percentage: 15},
		{MinAmount: 1000, MaxAmount: 4999, Percentage: 10},
		{MinAmount: 5000, MaxAmount: 9999, Percentage: 7},
		{MinAmount: 10000, MaxAmount: 49999, Percentage: 5},
		{MinAmount: 50000, MaxAmount: -1, Percentage: 3},
	}
}

// Calculator resolves tiered commission percentages. It is safe for
// concurrent use; Reload swaps the table atomically.
type Calculator struct {
	mu    sync.RWMutex
	tiers []Tier
}

func NewCalculator(tiers []Tier) (*Calculator, error) {
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}
	return &Calculator{tiers: tiers}, nil
}

// ValidateTiers rejects tables that are empty, unordered, overlapping, have
// gaps, carry out-of-range percentages, or are not terminated by an
// unbounded tier.
func ValidateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return cerr.NewError(cerr.InvalidArgument, "commission tier table is empty", nil)
	}
	if tiers[0].MinAmount != 0 {
		return cerr.NewError(cerr.InvalidArgument, "first commission tier must start at 0", nil)
	}
	for i, t := range tiers {
		if t.Percentage < 0 || t.Percentage > 100 {
			return cerr.NewError(cerr.InvalidArgument,
				fmt.Sprintf("tier %d: percentage %d out of range", i, t.Percentage), nil)
		}
		last := i == len(tiers)-1
		if last {
			if t.MaxAmount >= 0 {
				return cerr.NewError(cerr.InvalidArgument, "last commission tier must be unbounded", nil)
			}
			continue
		}
		if t.MaxAmount < t.MinAmount {
			return cerr.NewError(cerr.InvalidArgument,
				fmt.Sprintf("tier %d: max %d below min %d", i, t.MaxAmount, t.MinAmount), nil)
		}
		if tiers[i+1].MinAmount != t.MaxAmount+1 {
			return cerr.NewError(cerr.InvalidArgument,
				fmt.Sprintf("tier %d and %d overlap or leave a gap", i, i+1), nil)
		}
	}
	return nil
}

// Reload replaces the tier table. Invalid tables are rejected and the
// previous table stays in effect.
func (c *Calculator) Reload(tiers []Tier) error {
	if err := ValidateTiers(tiers); err != nil {
		return err
	}
	c.mu.Lock()
	c.tiers = tiers
	c.mu.Unlock()
	return nil
}

// PercentageFor returns the percentage of the first tier whose range contains
// amount. Negative amounts are clamped to 0. The last tier is the catch-all.
func (c *Calculator) PercentageFor(amount int64) int {
	if amount < 0 {
		amount = 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tiers {
		if amount >= t.MinAmount && (t.MaxAmount < 0 || amount <= t.MaxAmount) {
			return t.Percentage
		}
	}
	return c.tiers[len(c.tiers)-1].Percentage
}

// CommissionOn returns the platform's charge on amount, rounded half up.
func (c *Calculator) CommissionOn(amount int64) int64 {
	if amount < 0 {
		amount = 0
	}
	pct := int64(c.PercentageFor(amount))
	return (amount*pct + 50) / 100
}

// NetEarnings returns what the student keeps of amount.
func (c *Calculator) NetEarnings(amount int64) int64 {
	if amount < 0 {
		amount = 0
	}
	return amount - c.CommissionOn(amount)
}

// Tiers returns a copy of the active table.
func (c *Calculator) Tiers() []Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tier, len(c.tiers))
	copy(out, c.tiers)
	return out
}
