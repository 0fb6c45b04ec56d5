/*
Package commission holds the pure arithmetic of the incentive plan.

PURPOSE:
  Given a seller's aggregated numbers, decide the tier, the multiplier, the
  global accelerator and the final commission. Nothing here touches storage,
  the clock or a logger; every function is deterministic.

KEY CONCEPTS:
  - Tier:        one of eight contiguous half-open bands over percentualMeta
  - Accelerator: flat bonus multiplier driven by the team's global quota
  - Ladder:      checkpoints toward the global quota with targets and shortfalls
  - Badge:       achievement tag derived from percentualMeta and daily volume
  - Plan:        commissionable-base percentages and excluded product prefixes

COMMISSION FORMULA:

  comissaoPrevista = round(comissaoBase * (multiplier + accelerator))

  The accelerator rides on the tier multiplier. Tier 0 (below 75% of quota)
  has nothing to accelerate, so a seller there earns zero whatever the team
  achieved.

SEE ALSO:
  - ladder.go, badge.go, plan.go, quota.go
  - aggregate/seller.go: applies these functions to SellerStats
*/
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// TIERS
// =============================================================================

// Tier is one band of the multiplier table. Min is inclusive; the band ends
// where the next one starts.
type Tier struct {
	Level      int             `json:"nivel"`
	Name       string          `json:"nome"`
	Min        decimal.Decimal `json:"minimo"`
	Multiplier decimal.Decimal `json:"multiplicador"`
}

func tier(level int, name string, minPct int64, mult string) Tier {
	return Tier{
		Level:      level,
		Name:       name,
		Min:        decimal.NewFromInt(minPct),
		Multiplier: decimal.RequireFromString(mult),
	}
}

// tiers is ordered by Min ascending and covers [0, ∞) without gaps.
var tiers = []Tier{
	tier(0, "Sem comissão", 0, "0"),
	tier(1, "Bronze", 75, "0.5"),
	tier(2, "Prata", 100, "1.0"),
	tier(3, "Ouro", 125, "1.5"),
	tier(4, "Platina", 150, "2.0"),
	tier(5, "Diamante", 175, "2.5"),
	tier(6, "Elite", 200, "3.0"),
	tier(7, "Lendário", 250, "3.5"),
}

// Tiers returns a copy of the tier table.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// DetermineTier maps a quota percentage to its band. Negative input, which only
// comes from bad data, falls to the lowest tier.
func DetermineTier(percentualMeta decimal.Decimal) Tier {
	for i := len(tiers) - 1; i > 0; i-- {
		if percentualMeta.GreaterThanOrEqual(tiers[i].Min) {
			return tiers[i]
		}
	}
	return tiers[0]
}

// =============================================================================
// GLOBAL ACCELERATOR
// =============================================================================

var (
	AcceleratorNone  = decimal.Zero
	AcceleratorMeta  = decimal.RequireFromString("0.25")
	AcceleratorSuper = decimal.RequireFromString("0.5")

	pct75  = decimal.NewFromInt(75)
	pct100 = decimal.NewFromInt(100)
)

// GlobalAccelerator returns 0.5 at or above 100% of the global quota, 0.25 from
// 75% and 0 below.
func GlobalAccelerator(percentualMetaGlobal decimal.Decimal) decimal.Decimal {
	switch {
	case percentualMetaGlobal.GreaterThanOrEqual(pct100):
		return AcceleratorSuper
	case percentualMetaGlobal.GreaterThanOrEqual(pct75):
		return AcceleratorMeta
	}
	return AcceleratorNone
}

// ResolveAccelerator combines the global quota and the super quota. The levels
// do not stack: hitting the super quota is a flat 0.5, never 0.25 + 0.5.
func ResolveAccelerator(percentualMeta decimal.Decimal, superMetaBatida bool) decimal.Decimal {
	if superMetaBatida {
		return AcceleratorSuper
	}
	return GlobalAccelerator(percentualMeta)
}

// FinalCommission returns round(base * (multiplier + accelerator)) in cents.
// The accelerator only applies on top of a positive multiplier.
func FinalCommission(base money.Cents, multiplier, accelerator decimal.Decimal) money.Cents {
	if !multiplier.IsPositive() {
		return 0
	}
	return base.MulFraction(multiplier.Add(accelerator))
}
