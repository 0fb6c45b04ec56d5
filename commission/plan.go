package commission

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// DefaultExcludedProducts never count toward realized value or commission.
var DefaultExcludedProducts = []string{"Empréstimo Garantia Veículo"}

// Plan holds the configurable parameters of the commission plan.
//
// A contract's commissionable amount is liquido * BasePct, and the seller's
// share of that is * SellerPct. Both steps round to cents.
type Plan struct {
	BasePct          decimal.Decimal
	SellerPct        decimal.Decimal
	ExcludedProducts []string
	InvalidStages    []string
}

func DefaultPlan() Plan {
	return Plan{
		BasePct:          decimal.RequireFromString("0.06"),
		SellerPct:        decimal.RequireFromString("0.10"),
		ExcludedProducts: DefaultExcludedProducts,
		InvalidStages:    contract.DefaultInvalidStages,
	}
}

// IsExcludedProduct is a case-sensitive prefix match on the normalized product,
// so "Empréstimo Garantia Veículo - Ref." is excluded too.
func (p Plan) IsExcludedProduct(produto string) bool {
	for _, prefix := range p.ExcludedProducts {
		if prefix != "" && strings.HasPrefix(produto, prefix) {
			return true
		}
	}
	return false
}

// SellerCommission is the pre-acceleration commission one contract earns.
func (p Plan) SellerCommission(liquido money.Cents) money.Cents {
	return liquido.MulFraction(p.BasePct).MulFraction(p.SellerPct)
}

// Filter keeps the contracts that may count at all, in input order: a valid
// stage and a product outside the excluded list.
func (p Plan) Filter(contracts []contract.Contract) []contract.Contract {
	stages := contract.NewStageFilter(p.InvalidStages)
	out := make([]contract.Contract, 0, len(contracts))
	for _, c := range contracts {
		if stages.Valid(c.EtapaPipeline) && !p.IsExcludedProduct(c.Produto) {
			out = append(out, c)
		}
	}
	return out
}
