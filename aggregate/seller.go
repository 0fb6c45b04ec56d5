/*
Package aggregate projects canonical contracts into the views the dashboard shows.

PURPOSE:
  Every function takes the current contract set and returns fresh values. There
  is no cached or incremental state: a call recomputes from what it is given.

KEY CONCEPTS:
  - SellerStats:      per-seller realized value, quota, tier and commission
  - GlobalQuotaStats: team totals, accelerator and escalator ladder
  - Row:              generic per-dimension totals with take rate and share
  - Point/Delta:      daily series and rolling-window change

EXCLUSIONS:
  Contracts with an invalid stage or an excluded product are filtered before any
  sum, at seller and global level alike. They never reach a seller's contract
  list.

ORDERING:
  Rankings sort by commission descending, then realized value descending, then
  input order. Output is deterministic for a given input.
*/
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// SELLER STATS
// =============================================================================

// Rate is a commission-over-net-value summary of a contract subset, using the
// commission recorded on each contract.
type Rate struct {
	Contratos int             `json:"contratos"`
	Liquido   money.Cents     `json:"liquidoCent"`
	Comissao  money.Cents     `json:"comissaoCent"`
	TakeRate  decimal.Decimal `json:"takeRate"`
}

func rateOf(contracts []contract.Contract, keep func(contract.Contract) bool) Rate {
	var r Rate
	for _, c := range contracts {
		if keep != nil && !keep(c) {
			continue
		}
		r.Contratos++
		r.Liquido += c.LiquidoLiberado
		r.Comissao += c.ComissaoTotal
	}
	r.TakeRate = money.Ratio(r.Comissao, r.Liquido)
	return r
}

func confirmed(c contract.Contract) bool { return !c.Provisional() }

// SellerStats is the per-seller projection for one period. Never persisted.
type SellerStats struct {
	Vendedor         string              `json:"vendedor"`
	Realizado        money.Cents         `json:"realizadoCent"`
	Meta             money.Cents         `json:"metaCent"`
	PercentualMeta   decimal.Decimal     `json:"percentualMeta"`
	Tier             commission.Tier     `json:"tier"`
	ComissaoBase     money.Cents         `json:"comissaoBaseCent"`
	Acelerador       decimal.Decimal     `json:"acelerador"`
	ComissaoPrevista money.Cents         `json:"comissaoPrevistaCent"`
	Contratos        []contract.Contract `json:"contratos"`
	Badges           []commission.Badge  `json:"badges"`

	// Todos covers every contract; Confirmados drops the provisional ones
	// (commission computed from a percentage or missing).
	Todos       Rate `json:"todos"`
	Confirmados Rate `json:"confirmados"`
}

// Options tunes projections that have a provisional/confirmed toggle.
type Options struct {
	IncludeProvisional bool
}

// TeamRate summarizes every contract, or only the confirmed ones.
func TeamRate(contracts []contract.Contract, opts Options) Rate {
	if opts.IncludeProvisional {
		return rateOf(contracts, nil)
	}
	return rateOf(contracts, confirmed)
}

// Rate returns the take-rate summary selected by opts.
func (s SellerStats) Rate(opts Options) Rate {
	if opts.IncludeProvisional {
		return s.Todos
	}
	return s.Confirmados
}

// BySeller groups eligible contracts by seller and computes tier and
// pre-accelerator commission. Sellers appear in order of first contract; sellers
// with a quota but no contracts follow, sorted by name.
func BySeller(contracts []contract.Contract, quotas commission.Quotas, plan commission.Plan) []SellerStats {
	eligible := plan.Filter(contracts)

	var order []string
	groups := make(map[string][]contract.Contract)
	for _, c := range eligible {
		if _, seen := groups[c.VendedorNome]; !seen {
			order = append(order, c.VendedorNome)
		}
		groups[c.VendedorNome] = append(groups[c.VendedorNome], c)
	}

	var idle []string
	for name := range quotas.Sellers {
		if _, seen := groups[name]; !seen {
			idle = append(idle, name)
		}
	}
	sort.Strings(idle)
	order = append(order, idle...)

	out := make([]SellerStats, 0, len(order))
	for _, name := range order {
		out = append(out, sellerStats(name, groups[name], quotas.Seller(name), plan))
	}
	return out
}

func sellerStats(name string, contracts []contract.Contract, meta money.Cents, plan commission.Plan) SellerStats {
	s := SellerStats{
		Vendedor:   name,
		Meta:       meta,
		Acelerador: decimal.Zero,
		Contratos:  contracts,
	}
	if s.Contratos == nil {
		s.Contratos = []contract.Contract{}
	}

	days := make([]string, 0, len(contracts))
	for _, c := range contracts {
		s.Realizado += c.LiquidoLiberado
		s.ComissaoBase += plan.SellerCommission(c.LiquidoLiberado)
		days = append(days, c.Day())
	}
	s.PercentualMeta = money.Percent(s.Realizado, s.Meta)
	s.Tier = commission.DetermineTier(s.PercentualMeta)
	s.ComissaoPrevista = commission.FinalCommission(s.ComissaoBase, s.Tier.Multiplier, decimal.Zero)
	s.Badges = commission.Badges(s.PercentualMeta, days)
	if s.Badges == nil {
		s.Badges = []commission.Badge{}
	}
	s.Todos = rateOf(contracts, nil)
	s.Confirmados = rateOf(contracts, confirmed)
	return s
}

// ApplyGlobalAccelerator recomputes ComissaoPrevista with the team accelerator.
// The input is not modified.
func ApplyGlobalAccelerator(stats []SellerStats, accelerator decimal.Decimal) []SellerStats {
	out := make([]SellerStats, len(stats))
	for i, s := range stats {
		s.Acelerador = accelerator
		s.ComissaoPrevista = commission.FinalCommission(s.ComissaoBase, s.Tier.Multiplier, accelerator)
		out[i] = s
	}
	return out
}

// RankSellers orders by ComissaoPrevista, then Realizado, both descending; ties
// keep input order. The input is not modified.
func RankSellers(stats []SellerStats) []SellerStats {
	out := make([]SellerStats, len(stats))
	copy(out, stats)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ComissaoPrevista != out[j].ComissaoPrevista {
			return out[i].ComissaoPrevista > out[j].ComissaoPrevista
		}
		return out[i].Realizado > out[j].Realizado
	})
	return out
}
