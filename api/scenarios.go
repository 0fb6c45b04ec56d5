/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built months that populate the store with realistic data
	for demos. Each scenario produces raw source records and quotas, and
	loads them through the regular import path, so normalization, hashing
	and the run log behave exactly as in a real sync.

AVAILABLE SCENARIOS:

	meta-batida:    team above 100% of the global quota, accelerator 0.5
	super-meta:     super quota reached, flat 0.5 accelerator
	abaixo-da-meta: team between 75% and 100%, accelerator 0.25
	dados-sujos:    records exercising every quality flag and rejection

HOW SCENARIOS WORK:
 1. Reset the store (when it supports it)
 2. Set quotas for the target month
 3. Import the raw records through the Syncer

USAGE VIA API:

	POST /api/cenarios/load
	{"cenario": "meta-batida", "mes": "2025-03"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarios' with ID, name, description and build func
 2. Build returns the raw records and quotas for the requested month

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Import path shared with POST /api/contratos/import
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
	"github.com/warp/incentive-engine/source"
)

// Resetter is implemented by stores that can drop all data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ErrUnknownScenario is returned for scenario IDs not in the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	Description string `json:"descricao"`
}

type scenario struct {
	ScenarioDTO
	build func(m commission.Month) ([]contract.RawContract, commission.Quotas)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "meta-batida",
			Name:        "Meta batida",
			Description: "Equipe a 108% da meta global; vendedores em faixas distintas",
		},
		build: buildMetaBatida,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "super-meta",
			Name:        "Super meta",
			Description: "Super meta atingida; acelerador fixo de 0,5",
		},
		build: buildSuperMeta,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "abaixo-da-meta",
			Name:        "Abaixo da meta",
			Description: "Equipe a 80% da meta global; acelerador de 0,25",
		},
		build: buildAbaixoDaMeta,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "dados-sujos",
			Name:        "Dados sujos",
			Description: "Datas divergentes, líquido ausente, comissão calculada e registros rejeitados",
		},
		build: buildDadosSujos,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// LoadScenario resets the store and loads one scenario into a month.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cenario string `json:"cenario"`
		Mes     string `json:"mes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo inválido", err)
		return
	}

	m := commission.MonthOf(h.now())
	if req.Mes != "" {
		parsed, err := commission.ParseMonth(req.Mes)
		if err != nil {
			writeError(w, http.StatusBadRequest, "mês inválido", err)
			return
		}
		m = parsed
	}

	run, err := h.loadScenario(r.Context(), req.Cenario, m)
	switch {
	case errors.Is(err, ErrUnknownScenario):
		writeError(w, http.StatusNotFound, "cenário desconhecido", err)
	case err != nil:
		h.syncFailure(w, r, run, err)
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func (h *Handler) loadScenario(ctx context.Context, id string, m commission.Month) (source.SyncRun, error) {
	s, ok := findScenario(id)
	if !ok {
		return source.SyncRun{}, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	if h.resetter != nil {
		if err := h.resetter.Reset(ctx); err != nil {
			return source.SyncRun{}, fmt.Errorf("reset store: %w", err)
		}
	}

	raws, quotas := s.build(m)
	if err := h.quotas.SetQuotas(ctx, quotas); err != nil {
		return source.SyncRun{}, fmt.Errorf("set quotas: %w", err)
	}
	return h.syncer.Import(ctx, raws)
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

// demoSale is one clean record: confirmed 5% commission, paid stage.
type demoSale struct {
	day      int
	vendedor string
	produto  string
	liquido  money.Cents
}

var demoRate = decimal.RequireFromString("0.05")

func demoRaws(prefix string, m commission.Month, sales []demoSale) []contract.RawContract {
	out := make([]contract.RawContract, len(sales))
	for i, s := range sales {
		out[i] = contract.RawContract{
			ID:                   contract.String(fmt.Sprintf("%s-%s-%02d", prefix, m, i+1)),
			DataPagamento:        contract.String(demoDate(m, s.day)),
			ValorLiquidoLiberado: contract.Number(s.liquido.Decimal()),
			ComissaoValor:        contract.Number(s.liquido.MulFraction(demoRate).Decimal()),
			Vendedor:             contract.Object(contract.Ref{DisplayValue: s.vendedor}),
			Produto:              contract.String(s.produto),
			TipoOperacao:         contract.String("Novo"),
			Etapa:                contract.String("Pago"),
		}
	}
	return out
}

func demoDate(m commission.Month, day int) string {
	return m.Start().AddDate(0, 0, day-1).Format("02/01/2006")
}

func reais(major int64) money.Cents { return money.Cents(major * 100) }

func buildMetaBatida(m commission.Month) ([]contract.RawContract, commission.Quotas) {
	raws := demoRaws("mb", m, []demoSale{
		{2, "Ana Souza", "Consignado", reais(25000)},
		{9, "Ana Souza", "Consignado", reais(20000)},
		{16, "Ana Souza", "Cartão", reais(15000)},
		{3, "Bruno Lima", "FGTS", reais(12000)},
		{10, "Bruno Lima", "Consignado", reais(10000)},
		{4, "Carla Dias", "Cartão", reais(10000)},
		{11, "Carla Dias", "FGTS", reais(8000)},
		{18, "Carla Dias", "Consignado", reais(8000)},
	})
	return raws, commission.Quotas{
		Month:  m,
		Global: reais(100000),
		Sellers: map[string]money.Cents{
			"Ana Souza":  reais(40000),
			"Bruno Lima": reais(30000),
			"Carla Dias": reais(30000),
		},
	}
}

func buildSuperMeta(m commission.Month) ([]contract.RawContract, commission.Quotas) {
	raws := demoRaws("sm", m, []demoSale{
		{1, "Ana Souza", "Consignado", reais(40000)},
		{5, "Ana Souza", "Consignado", reais(30000)},
		{5, "Bruno Lima", "FGTS", reais(25000)},
		{5, "Bruno Lima", "Cartão", reais(15000)},
	})
	return raws, commission.Quotas{
		Month:       m,
		Global:      reais(80000),
		SuperGlobal: reais(100000),
		Sellers: map[string]money.Cents{
			"Ana Souza":  reais(40000),
			"Bruno Lima": reais(40000),
		},
	}
}

func buildAbaixoDaMeta(m commission.Month) ([]contract.RawContract, commission.Quotas) {
	raws := demoRaws("am", m, []demoSale{
		{6, "Ana Souza", "Consignado", reais(60000)},
		{13, "Bruno Lima", "FGTS", reais(50000)},
		{20, "Carla Dias", "Cartão", reais(50000)},
	})
	return raws, commission.Quotas{
		Month:  m,
		Global: reais(200000),
		Sellers: map[string]money.Cents{
			"Ana Souza":  reais(80000),
			"Bruno Lima": reais(60000),
			"Carla Dias": reais(60000),
			"Davi Rocha": reais(20000),
		},
	}
}

func buildDadosSujos(m commission.Month) ([]contract.RawContract, commission.Quotas) {
	id := func(n int) contract.Value { return contract.String(fmt.Sprintf("ds-%s-%02d", m, n)) }
	date := func(day int) contract.Value { return contract.String(demoDate(m, day)) }

	raws := []contract.RawContract{
		{ // payment dates disagree
			ID: id(1), DataPagamento: date(3), DataPagamentoCliente: date(4),
			ValorLiquidoLiberado: contract.String("4.500,00"), ComissaoValor: contract.String("225,00"),
			Vendedor: contract.String("Ana Souza"), Produto: contract.String("Consignado"), Etapa: contract.String("Pago"),
		},
		{ // net value only as operation value
			ID: id(2), DataPagamento: date(7),
			ValorOperacao: contract.String("3.200,00"), ComissaoValor: contract.String("160,00"),
			Vendedor: contract.String("Bruno Lima"), Produto: contract.String("FGTS"), Etapa: contract.String("Pago"),
		},
		{ // commission derived from "6" (6%)
			ID: id(3), DataPagamento: date(8),
			ValorLiquidoLiberado: contract.String("2.000,00"), PercentualComissao: contract.String("6"),
			Vendedor: contract.String("Ana Souza"), Produto: contract.String("Cartão"), Etapa: contract.String("Pago"),
		},
		{ // no seller, no commission
			ID: id(4), DataPagamento: date(12),
			ValorLiquidoLiberado: contract.String("1.000,00"),
			Produto:              contract.String("Consignado"), Etapa: contract.String("Pago"),
		},
		{ // excluded product
			ID: id(5), DataPagamento: date(14),
			ValorLiquidoLiberado: contract.String("50.000,00"), ComissaoValor: contract.String("2.500,00"),
			Vendedor: contract.String("Bruno Lima"), Produto: contract.String("Empréstimo Garantia Veículo"), Etapa: contract.String("Pago"),
		},
		{ // invalid stage
			ID: id(6), DataPagamento: date(15),
			ValorLiquidoLiberado: contract.String("8.000,00"), ComissaoValor: contract.String("400,00"),
			Vendedor: contract.String("Ana Souza"), Produto: contract.String("FGTS"), Etapa: contract.String("Cancelado"),
		},
		{ // rejected: no usable date
			ID: id(7), DataPagamento: contract.String("sem data"),
			ValorLiquidoLiberado: contract.String("9.999,00"),
		},
	}
	return raws, commission.Quotas{
		Month:   m,
		Global:  reais(20000),
		Sellers: map[string]money.Cents{"Ana Souza": reais(10000), "Bruno Lima": reais(10000)},
	}
}
