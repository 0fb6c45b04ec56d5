package commission

import "github.com/shopspring/decimal"

type Badge string

const (
	BadgeMeta100      Badge = "meta_100"
	BadgeSuperMeta150 Badge = "super_meta_150"
	BadgeLendario     Badge = "lendario"
	BadgeHatTrick     Badge = "hat_trick"
	BadgeImparavel    Badge = "imparavel"
	BadgeDominante    Badge = "dominante"
)

var (
	pct150 = decimal.NewFromInt(150)
	pct250 = decimal.NewFromInt(250)
)

// Badges derives achievement tags from the quota percentage and the day of each
// contract (YYYY-MM-DD, one entry per contract). Daily badges look at the
// busiest single day, not the month total.
func Badges(percentualMeta decimal.Decimal, contractDays []string) []Badge {
	var out []Badge
	if percentualMeta.GreaterThanOrEqual(pct100) {
		out = append(out, BadgeMeta100)
	}
	if percentualMeta.GreaterThanOrEqual(pct150) {
		out = append(out, BadgeSuperMeta150)
	}
	if percentualMeta.GreaterThanOrEqual(pct250) {
		out = append(out, BadgeLendario)
	}

	perDay := make(map[string]int, len(contractDays))
	best := 0
	for _, d := range contractDays {
		perDay[d]++
		if perDay[d] > best {
			best = perDay[d]
		}
	}
	if best >= 3 {
		out = append(out, BadgeHatTrick)
	}
	if best >= 5 {
		out = append(out, BadgeImparavel)
	}
	if best >= 10 {
		out = append(out, BadgeDominante)
	}
	return out
}
