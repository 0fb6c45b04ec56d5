package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// TIME SERIES
// =============================================================================

// Point is one day of the series.
type Point struct {
	Dia       string          `json:"dia"` // YYYY-MM-DD
	Contratos int             `json:"contratos"`
	Liquido   money.Cents     `json:"liquidoCent"`
	Comissao  money.Cents     `json:"comissaoCent"`
	TakeRate  decimal.Decimal `json:"takeRate"`
}

// DailySeries groups by payment day in ascending date order. When from and to
// are both set, every day in [from, to) is present, zero-filled if needed.
func DailySeries(contracts []contract.Contract, from, to time.Time) []Point {
	byDay := make(map[string]*Point)
	for _, c := range contracts {
		d := c.Day()
		p, ok := byDay[d]
		if !ok {
			p = &Point{Dia: d}
			byDay[d] = p
		}
		p.Contratos++
		p.Liquido += c.LiquidoLiberado
		p.Comissao += c.ComissaoTotal
	}
	if !from.IsZero() && !to.IsZero() {
		for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
			key := d.Format("2006-01-02")
			if _, ok := byDay[key]; !ok {
				byDay[key] = &Point{Dia: key}
			}
		}
	}

	out := make([]Point, 0, len(byDay))
	for _, p := range byDay {
		p.TakeRate = money.Ratio(p.Comissao, p.Liquido)
		out = append(out, *p)
	}
	// ISO dates sort lexically
	sort.Slice(out, func(i, j int) bool { return out[i].Dia < out[j].Dia })
	return out
}

// Delta compares the most recent window with the one before it.
type Delta struct {
	Janela   int             `json:"janela"`
	Atual    money.Cents     `json:"atualCent"`
	Anterior money.Cents     `json:"anteriorCent"`
	Variacao decimal.Decimal `json:"variacao"` // percent change, 0 when Anterior is 0
}

// RollingDelta sums the last window points against the prior window points.
// Short series shrink the prior window first.
func RollingDelta(points []Point, window int, value func(Point) money.Cents) Delta {
	d := Delta{Janela: window, Variacao: decimal.Zero}
	if window <= 0 {
		return d
	}
	n := len(points)
	for i := n - 1; i >= 0 && i >= n-window; i-- {
		d.Atual += value(points[i])
	}
	for i := n - window - 1; i >= 0 && i >= n-2*window; i-- {
		d.Anterior += value(points[i])
	}
	if d.Anterior != 0 {
		d.Variacao = money.Percent(d.Atual-d.Anterior, d.Anterior)
	}
	return d
}

// LiquidoOf and ComissaoOf select a Point value for RollingDelta.
func LiquidoOf(p Point) money.Cents  { return p.Liquido }
func ComissaoOf(p Point) money.Cents { return p.Comissao }

// FilterMonth keeps contracts paid within the month, in input order.
func FilterMonth(contracts []contract.Contract, m commission.Month) []contract.Contract {
	f := contract.Filter{From: m.Start(), To: m.End()}
	out := make([]contract.Contract, 0, len(contracts))
	for _, c := range contracts {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}
