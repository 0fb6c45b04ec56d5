package commission

import (
	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/money"
)

// LadderCheckpoints are the global-quota percentages shown on the escalator.
var LadderCheckpoints = []int64{75, 100, 125, 150, 175, 200, 250}

// Step is one checkpoint of the escalator ladder.
type Step struct {
	Percentual int64       `json:"percentual"`
	Alvo       money.Cents `json:"alvoCent"`
	Falta      money.Cents `json:"faltaCent"`
	Atingido   bool        `json:"atingido"`
}

// BuildLadder computes target and shortfall for every checkpoint, always in
// ascending order.
func BuildLadder(meta, realizado money.Cents) []Step {
	hundred := decimal.NewFromInt(100)
	steps := make([]Step, 0, len(LadderCheckpoints))
	for _, p := range LadderCheckpoints {
		target := meta.MulFraction(decimal.NewFromInt(p).Div(hundred))
		falta := target - realizado
		if falta < 0 {
			falta = 0
		}
		steps = append(steps, Step{
			Percentual: p,
			Alvo:       target,
			Falta:      falta,
			Atingido:   realizado >= target,
		})
	}
	return steps
}

// NextStep returns the first checkpoint not yet reached, or nil when all are.
func NextStep(steps []Step) *Step {
	for i := range steps {
		if !steps[i].Atingido {
			return &steps[i]
		}
	}
	return nil
}
