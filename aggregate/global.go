package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// GlobalQuotaStats is the team-level quota view.
type GlobalQuotaStats struct {
	MetaValor             money.Cents       `json:"metaValorCent"`
	SuperMetaValor        money.Cents       `json:"superMetaValorCent"`
	Realizado             money.Cents       `json:"realizadoCent"`
	PercentualMeta        decimal.Decimal   `json:"percentualMeta"`
	PercentualSuperMeta   decimal.Decimal   `json:"percentualSuperMeta"`
	Acelerador            decimal.Decimal   `json:"acelerador"`
	MetaGlobalBatida      bool              `json:"metaGlobalBatida"`
	SuperMetaGlobalBatida bool              `json:"superMetaGlobalBatida"`
	Escada                []commission.Step `json:"escada"`
}

var pct100 = decimal.NewFromInt(100)

// Global sums every eligible contract against the month's global quotas.
func Global(contracts []contract.Contract, quotas commission.Quotas, plan commission.Plan) GlobalQuotaStats {
	var realizado money.Cents
	for _, c := range plan.Filter(contracts) {
		realizado += c.LiquidoLiberado
	}

	g := GlobalQuotaStats{
		MetaValor:           quotas.Global,
		SuperMetaValor:      quotas.SuperGlobal,
		Realizado:           realizado,
		PercentualMeta:      money.Percent(realizado, quotas.Global),
		PercentualSuperMeta: money.Percent(realizado, quotas.SuperGlobal),
		Escada:              commission.BuildLadder(quotas.Global, realizado),
	}
	g.MetaGlobalBatida = quotas.Global > 0 && g.PercentualMeta.GreaterThanOrEqual(pct100)
	g.SuperMetaGlobalBatida = quotas.SuperGlobal > 0 && g.PercentualSuperMeta.GreaterThanOrEqual(pct100)
	g.Acelerador = commission.ResolveAccelerator(g.PercentualMeta, g.SuperMetaGlobalBatida)
	return g
}
