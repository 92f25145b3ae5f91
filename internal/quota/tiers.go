package quota

import (
	"encoding/json"
	"sort"
)

// Limit is a daily allowance: a finite count or unlimited.
type Limit struct {
	Value     int64
	Unlimited bool
}

// Finite returns a finite limit.
func Finite(v int64) Limit {
	if v < 0 {
		v = 0
	}
	return Limit{Value: v}
}

// Unlimited returns the unlimited allowance.
func Unlimited() Limit { return Limit{Unlimited: true} }

// MarshalJSON renders unlimited as null and finite limits as numbers.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Unlimited {
		return []byte("null"), nil
	}
	return json.Marshal(l.Value)
}

// TierTable maps tiers to daily allowances. It is read-only after construction.
type TierTable struct {
	limits   map[int]Limit
	fallback Limit
}

// NewTierTable builds a table from config values where nil means unlimited.
// Tiers without an entry resolve to the lowest configured tier.
func NewTierTable(raw map[int]*int64) TierTable {
	limits := make(map[int]Limit, len(raw))
	tiers := make([]int, 0, len(raw))
	for tier, value := range raw {
		if tier < 0 {
			continue
		}
		if value == nil {
			limits[tier] = Unlimited()
		} else {
			limits[tier] = Finite(*value)
		}
		tiers = append(tiers, tier)
	}
	fallback := Finite(0)
	if len(tiers) > 0 {
		sort.Ints(tiers)
		fallback = limits[tiers[0]]
	}
	return TierTable{limits: limits, fallback: fallback}
}

// Resolve returns the allowance for tier.
func (t TierTable) Resolve(tier int) Limit {
	if limit, ok := t.limits[tier]; ok {
		return limit
	}
	return t.fallback
}
