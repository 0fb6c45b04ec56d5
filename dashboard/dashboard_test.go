package dashboard_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/dashboard"
	"github.com/warp/incentive-engine/money"
	"github.com/warp/incentive-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const march = commission.Month("2025-03")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	at := func(month time.Month, d int) time.Time { return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC) }

	for _, c := range []contract.Contract{
		{IDContrato: "c1", DataPagamento: at(time.March, 3), LiquidoLiberado: 600000, ComissaoTotal: 30000,
			VendedorNome: "Ana", Produto: "Consignado", EtapaPipeline: "Pago", TipoOperacao: "Novo"},
		{IDContrato: "c2", DataPagamento: at(time.March, 20), LiquidoLiberado: 200000, ComissaoTotal: 10000, ComissaoCalculada: true,
			VendedorNome: "Ana", Produto: "Cartão", EtapaPipeline: "Pago", TipoOperacao: "Novo"},
		{IDContrato: "c3", DataPagamento: at(time.March, 5), LiquidoLiberado: 300000,
			VendedorNome: "Bia", Produto: "FGTS", EtapaPipeline: "Pago", TipoOperacao: "Refin"},
		{IDContrato: "c4", DataPagamento: at(time.March, 6), LiquidoLiberado: 999999, ComissaoTotal: 5000,
			VendedorNome: "Ana", Produto: "Empréstimo Garantia Veículo", EtapaPipeline: "Pago"},
		{IDContrato: "c5", DataPagamento: at(time.March, 7), LiquidoLiberado: 999999, ComissaoTotal: 5000,
			VendedorNome: "Bia", Produto: "FGTS", EtapaPipeline: "Cancelado"},
		{IDContrato: "c6", DataPagamento: at(time.April, 1), LiquidoLiberado: 999999, ComissaoTotal: 5000,
			VendedorNome: "Ana", Produto: "FGTS", EtapaPipeline: "Pago"},
	} {
		require.NoError(t, store.Replace(ctx, c, contract.Snapshot{Hash: c.IDContrato}))
	}
	require.NoError(t, store.SetQuotas(ctx, commission.Quotas{
		Month:   march,
		Global:  1200000,
		Sellers: map[string]money.Cents{"Ana": 1000000, "Bia": 200000, "Caio": 100000},
	}))
	return store
}

func newService(t *testing.T) *dashboard.Service {
	store := seed(t)
	return dashboard.NewService(store, store, commission.DefaultPlan())
}

// =============================================================================
// BUILD TESTS
// =============================================================================

func TestBuild_SellersRankedWithGlobalAccelerator(t *testing.T) {
	// GIVEN: Ana at 80% (Bronze), Bia at 150% (Platina), Caio idle, team at 91.67%
	// WHEN: Building the March view
	// THEN: The 0.25 accelerator rides on each tier and Bia ranks first

	view, err := newService(t).Build(context.Background(), march, dashboard.Options{})
	require.NoError(t, err)

	require.Len(t, view.Vendedores, 3)
	bia, ana, caio := view.Vendedores[0], view.Vendedores[1], view.Vendedores[2]

	assert.Equal(t, "Bia", bia.Vendedor)
	assert.Equal(t, "Platina", bia.Tier.Name)
	assert.Equal(t, money.Cents(1800), bia.ComissaoBase)
	assert.Equal(t, money.Cents(4050), bia.ComissaoPrevista)

	assert.Equal(t, "Ana", ana.Vendedor)
	assert.True(t, ana.PercentualMeta.Equal(dec("80")))
	assert.Equal(t, money.Cents(800000), ana.Realizado, "excluded product and invalid stage are dropped")
	assert.Equal(t, money.Cents(3600), ana.ComissaoPrevista)

	assert.Equal(t, "Caio", caio.Vendedor)
	assert.Equal(t, money.Cents(0), caio.ComissaoPrevista)

	assert.Equal(t, money.Cents(1100000), view.Global.Realizado)
	assert.True(t, view.Global.Acelerador.Equal(commission.AcceleratorMeta))
	assert.False(t, view.Global.MetaGlobalBatida)
}

func TestBuild_ProvisionalToggle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	confirmed, err := svc.Build(ctx, march, dashboard.Options{})
	require.NoError(t, err)
	all, err := svc.Build(ctx, march, dashboard.Options{IncludeProvisional: true})
	require.NoError(t, err)

	assert.Equal(t, 1, confirmed.TakeRate.Contratos)
	assert.True(t, confirmed.TakeRate.TakeRate.Equal(dec("0.05")))
	assert.Len(t, confirmed.Dimensoes["produto"], 1)

	assert.Equal(t, 3, all.TakeRate.Contratos)
	assert.Equal(t, money.Cents(1100000), all.TakeRate.Liquido)
	assert.Len(t, all.Dimensoes["produto"], 3)

	// seller realized never depends on the toggle
	assert.Equal(t, confirmed.Vendedores[1].Realizado, all.Vendedores[1].Realizado)
}

func TestBuild_SeriesAndQuality(t *testing.T) {
	view, err := newService(t).Build(context.Background(), march, dashboard.Options{IncludeProvisional: true})
	require.NoError(t, err)

	require.Len(t, view.Serie, 31)
	assert.Equal(t, "2025-03-01", view.Serie[0].Dia)
	assert.Equal(t, money.Cents(600000), view.Serie[2].Liquido)
	assert.Equal(t, money.Cents(200000), view.Serie[19].Liquido)

	// the window ends on Mar 20, the last day with contracts: Mar 14..20 vs Mar 7..13
	assert.Equal(t, money.Cents(200000), view.Variacao.Liquido.Atual)
	assert.Equal(t, money.Cents(0), view.Variacao.Liquido.Anterior)
	assert.True(t, view.Variacao.Liquido.Variacao.IsZero())

	assert.Equal(t, 5, view.Qualidade.Total)
	assert.Equal(t, 1, view.Qualidade.ComissaoCalculada)
	assert.Equal(t, 1, view.Qualidade.ComissaoZero)

	for _, name := range dashboard.TableDimensions {
		assert.Contains(t, view.Dimensoes, name)
	}
}

// twoWeeks stores one contract per day on Mar 1..14: 1000.00 a day in the
// first week, 2000.00 a day in the second.
func twoWeeks(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	for d := 1; d <= 14; d++ {
		liquido := money.Cents(100000)
		if d > 7 {
			liquido = 200000
		}
		c := contract.Contract{
			IDContrato:      fmt.Sprintf("d%02d", d),
			DataPagamento:   time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC),
			LiquidoLiberado: liquido,
			ComissaoTotal:   5000,
			VendedorNome:    "Ana",
			Produto:         "Consignado",
			EtapaPipeline:   "Pago",
		}
		require.NoError(t, store.Replace(context.Background(), c, contract.Snapshot{Hash: c.IDContrato}))
	}
	return store
}

func TestBuild_RollingDeltaEndsOnLastActiveDay(t *testing.T) {
	// GIVEN: Contracts on Mar 1..14 only, viewed after March is over
	// WHEN: Building the March view
	// THEN: The delta compares Mar 8..14 with Mar 1..7, not the empty tail

	store := twoWeeks(t)
	view, err := dashboard.NewService(store, store, commission.DefaultPlan()).
		Build(context.Background(), march, dashboard.Options{IncludeProvisional: true})
	require.NoError(t, err)

	assert.Len(t, view.Serie, 31)
	assert.Equal(t, 7, view.Variacao.Liquido.Janela)
	assert.Equal(t, money.Cents(1400000), view.Variacao.Liquido.Atual)
	assert.Equal(t, money.Cents(700000), view.Variacao.Liquido.Anterior)
	assert.True(t, view.Variacao.Liquido.Variacao.Equal(dec("100")))
	assert.Equal(t, money.Cents(35000), view.Variacao.Comissao.Atual)
}

func TestBuild_RollingDeltaEndsTodayInCurrentMonth(t *testing.T) {
	// GIVEN: The same contracts, viewed on Mar 16 with nothing paid since Mar 14
	// WHEN: Building the March view
	// THEN: Mar 15..16 count as real zero days: Mar 10..16 vs Mar 3..9

	store := twoWeeks(t)
	svc := dashboard.NewService(store, store, commission.DefaultPlan())
	dashboard.SetClock(svc, func() time.Time { return time.Date(2025, time.March, 16, 12, 0, 0, 0, time.UTC) })

	view, err := svc.Build(context.Background(), march, dashboard.Options{IncludeProvisional: true})
	require.NoError(t, err)

	assert.Equal(t, money.Cents(1000000), view.Variacao.Liquido.Atual)
	assert.Equal(t, money.Cents(900000), view.Variacao.Liquido.Anterior)
}

func TestBuild_EmptyMonth(t *testing.T) {
	view, err := newService(t).Build(context.Background(), "2024-01", dashboard.Options{})
	require.NoError(t, err)

	assert.Empty(t, view.Vendedores)
	assert.True(t, view.Global.PercentualMeta.IsZero())
	assert.Len(t, view.Serie, 31)
	assert.Equal(t, 0, view.Qualidade.Total)
}

// =============================================================================
// PARTIAL VIEW TESTS
// =============================================================================

func TestDimension_UnknownName(t *testing.T) {
	_, err := newService(t).Dimension(context.Background(), march, "cor", dashboard.Options{})
	assert.ErrorIs(t, err, dashboard.ErrUnknownDimension)
}

func TestDimension_Vendedor(t *testing.T) {
	rows, err := newService(t).Dimension(context.Background(), march, "vendedor", dashboard.Options{IncludeProvisional: true})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "Ana", rows[0].Key)
	assert.Equal(t, money.Cents(40000), rows[0].Comissao)
}

type failingStore struct{ contract.Store }

var errDown = errors.New("store down")

func (failingStore) List(context.Context, contract.Filter) ([]contract.Contract, error) {
	return nil, errDown
}

func TestBuild_StoreErrorWrapped(t *testing.T) {
	quotas := memory.New()
	svc := dashboard.NewService(failingStore{}, quotas, commission.DefaultPlan())

	_, err := svc.Build(context.Background(), march, dashboard.Options{})
	assert.ErrorIs(t, err, errDown)

	_, err = svc.Sellers(context.Background(), march)
	assert.ErrorIs(t, err, errDown)
}
