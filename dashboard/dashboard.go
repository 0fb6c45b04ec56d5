/*
Package dashboard composes storage and aggregation into per-month views.

PURPOSE:
  One call loads the month's contracts and quotas, drops ineligible contracts,
  and runs every projection the dashboard needs. Nothing is cached: each Build
  reflects the store at call time.

PIPELINE:
  1. List contracts paid in [month start, next month start)
  2. Quality report over every contract of the month
  3. Eligible = valid stage and not an excluded product
  4. Global stats -> accelerator
  5. Seller stats -> accelerator -> ranking
  6. Dimension tables and daily series over the display set

DISPLAY SET:
  Options.IncludeProvisional decides whether contracts with a computed or
  missing commission enter the dimension tables, the series and the team take
  rate. Seller and global realized values always use every eligible contract.
*/
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/incentive-engine/aggregate"
	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
)

// ErrUnknownDimension is returned for dimension names without a key function.
var ErrUnknownDimension = errors.New("unknown dimension")

// TableDimensions are the dimension tables included in a full view.
var TableDimensions = []string{"produto", "etapa", "tipo_operacao", "vendedor"}

const deltaWindow = 7

type Options = aggregate.Options

// View is everything the dashboard renders for one month.
type View struct {
	Mes        commission.Month           `json:"mes"`
	GeradoEm   time.Time                  `json:"geradoEm"`
	Vendedores []aggregate.SellerStats    `json:"vendedores"`
	Global     aggregate.GlobalQuotaStats `json:"global"`
	TakeRate   aggregate.Rate             `json:"takeRate"`
	Dimensoes  map[string][]aggregate.Row `json:"dimensoes"`
	Serie      []aggregate.Point          `json:"serie"`
	Variacao   Variacao                   `json:"variacao"`
	Qualidade  contract.QualityReport     `json:"qualidade"`
}

// Variacao is the rolling 7-day change of net value and commission.
type Variacao struct {
	Liquido  aggregate.Delta `json:"liquido"`
	Comissao aggregate.Delta `json:"comissao"`
}

// Service builds views from the stores.
type Service struct {
	contracts contract.Store
	quotas    commission.QuotaStore
	plan      commission.Plan
	now       func() time.Time
}

func NewService(contracts contract.Store, quotas commission.QuotaStore, plan commission.Plan) *Service {
	return &Service{contracts: contracts, quotas: quotas, plan: plan, now: time.Now}
}

// month holds the loaded inputs shared by every projection.
type month struct {
	all      []contract.Contract
	eligible []contract.Contract
	quotas   commission.Quotas
}

func (s *Service) load(ctx context.Context, m commission.Month) (month, error) {
	all, err := s.contracts.List(ctx, contract.Filter{From: m.Start(), To: m.End()})
	if err != nil {
		return month{}, fmt.Errorf("list contracts for %s: %w", m, err)
	}
	q, err := s.quotas.Quotas(ctx, m)
	if err != nil {
		return month{}, fmt.Errorf("load quotas for %s: %w", m, err)
	}
	return month{all: all, eligible: s.plan.Filter(all), quotas: q}, nil
}

func displaySet(eligible []contract.Contract, opts Options) []contract.Contract {
	if opts.IncludeProvisional {
		return eligible
	}
	out := make([]contract.Contract, 0, len(eligible))
	for _, c := range eligible {
		if !c.Provisional() {
			out = append(out, c)
		}
	}
	return out
}

// Build computes the full view for a month.
func (s *Service) Build(ctx context.Context, m commission.Month, opts Options) (*View, error) {
	data, err := s.load(ctx, m)
	if err != nil {
		return nil, err
	}

	global := aggregate.Global(data.eligible, data.quotas, s.plan)
	sellers := aggregate.RankSellers(aggregate.ApplyGlobalAccelerator(
		aggregate.BySeller(data.eligible, data.quotas, s.plan), global.Acelerador))

	shown := displaySet(data.eligible, opts)
	tables := make(map[string][]aggregate.Row, len(TableDimensions))
	for _, name := range TableDimensions {
		key, _ := aggregate.Dimension(name)
		tables[name] = aggregate.ByDimension(shown, key)
	}
	serie := aggregate.DailySeries(shown, m.Start(), m.End())
	elapsed := elapsedDays(serie, m, s.now())

	return &View{
		Mes:        m,
		GeradoEm:   s.now().UTC(),
		Vendedores: sellers,
		Global:     global,
		TakeRate:   aggregate.TeamRate(data.eligible, opts),
		Dimensoes:  tables,
		Serie:      serie,
		Variacao: Variacao{
			Liquido:  aggregate.RollingDelta(elapsed, deltaWindow, aggregate.LiquidoOf),
			Comissao: aggregate.RollingDelta(elapsed, deltaWindow, aggregate.ComissaoOf),
		},
		Qualidade: contract.Quality(data.all),
	}, nil
}

// elapsedDays drops the zero-filled tail of the series so the rolling window
// ends on the last day with contracts, or on today while m is the current month.
func elapsedDays(serie []aggregate.Point, m commission.Month, now time.Time) []aggregate.Point {
	today := ""
	if commission.MonthOf(now) == m {
		today = now.UTC().Format("2006-01-02")
	}
	end := 0
	for i, p := range serie {
		if p.Contratos > 0 || p.Dia <= today {
			end = i + 1
		}
	}
	return serie[:end]
}

// Sellers returns the ranked, accelerated seller stats.
func (s *Service) Sellers(ctx context.Context, m commission.Month) ([]aggregate.SellerStats, error) {
	data, err := s.load(ctx, m)
	if err != nil {
		return nil, err
	}
	global := aggregate.Global(data.eligible, data.quotas, s.plan)
	return aggregate.RankSellers(aggregate.ApplyGlobalAccelerator(
		aggregate.BySeller(data.eligible, data.quotas, s.plan), global.Acelerador)), nil
}

// Global returns the team quota stats.
func (s *Service) Global(ctx context.Context, m commission.Month) (aggregate.GlobalQuotaStats, error) {
	data, err := s.load(ctx, m)
	if err != nil {
		return aggregate.GlobalQuotaStats{}, err
	}
	return aggregate.Global(data.eligible, data.quotas, s.plan), nil
}

// Dimension returns one dimension table by name.
func (s *Service) Dimension(ctx context.Context, m commission.Month, name string, opts Options) ([]aggregate.Row, error) {
	key, ok := aggregate.Dimension(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
	}
	data, err := s.load(ctx, m)
	if err != nil {
		return nil, err
	}
	return aggregate.ByDimension(displaySet(data.eligible, opts), key), nil
}

// Series returns the zero-filled daily series of the month.
func (s *Service) Series(ctx context.Context, m commission.Month, opts Options) ([]aggregate.Point, error) {
	data, err := s.load(ctx, m)
	if err != nil {
		return nil, err
	}
	return aggregate.DailySeries(displaySet(data.eligible, opts), m.Start(), m.End()), nil
}

// Quality returns the flag counts over every contract of the month.
func (s *Service) Quality(ctx context.Context, m commission.Month) (contract.QualityReport, error) {
	data, err := s.load(ctx, m)
	if err != nil {
		return contract.QualityReport{}, err
	}
	return contract.Quality(data.all), nil
}
