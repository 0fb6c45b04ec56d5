package contract_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newNormalizer() *contract.Normalizer {
	return contract.NewNormalizer(contract.DefaultSentinels(), zap.NewNop())
}

func baseRaw(id string) contract.RawContract {
	return contract.RawContract{
		ID:                   contract.String(id),
		NumeroContrato:       contract.String("CT-" + id),
		DataPagamento:        contract.String("15/03/2025"),
		ValorLiquidoLiberado: contract.String("R$ 10.000,00"),
		ComissaoValor:        contract.String("600,00"),
		Vendedor:             contract.String("Ana Souza"),
		Produto:              contract.String("Consignado INSS"),
		Etapa:                contract.String("Pago"),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// DATE RESOLUTION
// =============================================================================

func TestNormalize_DateConflictFlagsAndPrefersPrimary(t *testing.T) {
	// GIVEN: The two payment date fields parse to different calendar days
	// WHEN: Normalizing
	// THEN: The primary date wins and the inconsistency flag is set

	raw := baseRaw("c-1")
	raw.DataPagamento = contract.String("15/03/2025")
	raw.DataPagamentoCliente = contract.String("2025-03-14")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.True(t, res.Contract.InconsistenciaDataPagamento)
	assert.Equal(t, day(2025, time.March, 15), res.Contract.DataPagamento)
}

func TestNormalize_AgreeingDatesAreNotFlagged(t *testing.T) {
	raw := baseRaw("c-1")
	raw.DataPagamento = contract.String("05/03/2025 14:30")
	raw.DataPagamentoCliente = contract.String("2025-03-05T09:00:00-03:00")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.False(t, res.Contract.InconsistenciaDataPagamento)
	assert.Equal(t, day(2025, time.March, 5), res.Contract.DataPagamento)
	assert.Equal(t, "2025-03-05", res.Contract.Day())
}

func TestNormalize_SecondaryDateUsedWhenPrimaryMissing(t *testing.T) {
	raw := baseRaw("c-1")
	raw.DataPagamento = contract.Null()
	raw.DataPagamentoCliente = contract.String("2025-02-28")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, day(2025, time.February, 28), res.Contract.DataPagamento)
	assert.False(t, res.Contract.InconsistenciaDataPagamento)
}

func TestNormalize_UnparseableDateRejected(t *testing.T) {
	// GIVEN: Neither date field holds a usable date
	// WHEN: Normalizing
	// THEN: The record is rejected with a RejectedError naming the contract

	raw := baseRaw("c-9")
	raw.DataPagamento = contract.String("ontem")
	raw.DataPagamentoCliente = contract.String("31/31/2025")

	res, err := newNormalizer().Normalize(raw)

	require.Error(t, err)
	assert.True(t, contract.IsRejected(err))
	assert.True(t, errors.Is(err, contract.ErrUnparseablePaymentDate))

	var rej *contract.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "c-9", rej.IDContrato)

	assert.Empty(t, res.Contract.IDContrato, "no contract is produced")
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, contract.WarnRejected, res.Warnings[0].Code)
}

func TestNormalize_MissingIDRejected(t *testing.T) {
	raw := baseRaw("")
	_, err := newNormalizer().Normalize(raw)

	assert.ErrorIs(t, err, contract.ErrMissingID)
}

// =============================================================================
// NET VALUE AND COMMISSION
// =============================================================================

func TestNormalize_LiquidoFallsBackToOperationValue(t *testing.T) {
	// GIVEN: Zero net value and a positive operation amount
	// WHEN: Normalizing
	// THEN: The operation amount is used and the fallback flag is set

	raw := baseRaw("c-2")
	raw.ValorLiquidoLiberado = contract.String("0")
	raw.ValorOperacao = contract.String("R$ 1.500,00")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, money.Cents(150000), res.Contract.LiquidoLiberado)
	assert.True(t, res.Contract.LiquidoFallback)
}

func TestNormalize_NoFallbackWhenPrimaryPositive(t *testing.T) {
	raw := baseRaw("c-2")
	raw.ValorOperacao = contract.String("99999")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, money.Cents(1000000), res.Contract.LiquidoLiberado)
	assert.False(t, res.Contract.LiquidoFallback)
}

func TestNormalize_CommissionComputedFromPercentage(t *testing.T) {
	// GIVEN: No direct commission, 6 (meaning 6%) and a positive net value
	// WHEN: Normalizing
	// THEN: Base = round(liquido * 0.06) and comissaoCalculada is set

	raw := baseRaw("c-3")
	raw.ComissaoValor = contract.Null()
	raw.ValorLiquidoLiberado = contract.NumberString("10000")
	raw.PercentualComissao = contract.NumberString("6")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	c := res.Contract
	assert.Equal(t, money.Cents(60000), c.ComissaoBase)
	assert.True(t, c.ComissaoCalculada)
	assert.True(t, c.PctComissaoBase.Equal(decimal.RequireFromString("0.06")))
	assert.True(t, c.Provisional())
}

func TestNormalize_CommissionCandidatesInPriorityOrder(t *testing.T) {
	raw := baseRaw("c-4")
	raw.ComissaoValor = contract.String("0")
	raw.ValorComissao = contract.String("123,45")
	raw.ComissaoBonus = contract.NumberString("10.5")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	c := res.Contract
	assert.Equal(t, money.Cents(12345), c.ComissaoBase)
	assert.Equal(t, money.Cents(1050), c.ComissaoBonus)
	assert.Equal(t, c.ComissaoBase+c.ComissaoBonus, c.ComissaoTotal)
	assert.False(t, c.ComissaoCalculada)
}

func TestNormalize_NegativeAmountsClampedAndPercentBounded(t *testing.T) {
	raw := baseRaw("c-5")
	raw.ComissaoBonus = contract.String("-50")
	raw.PercentualComissao = contract.String("150%")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, money.Cents(0), res.Contract.ComissaoBonus)
	assert.True(t, res.Contract.PctComissaoBase.Equal(decimal.NewFromInt(1)))
}

func TestNormalize_ZeroValueWarnings(t *testing.T) {
	raw := baseRaw("c-6")
	raw.ValorLiquidoLiberado = contract.String("")
	raw.ComissaoValor = contract.String("abc")

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err, "zero values never block the contract")

	codes := []contract.WarningCode{}
	for _, w := range res.Warnings {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []contract.WarningCode{contract.WarnComissaoZero, contract.WarnLiquidoZero}, codes)
}

// =============================================================================
// DIMENSIONS
// =============================================================================

func TestNormalize_DimensionsFromLookupObjects(t *testing.T) {
	raw := baseRaw("c-7")
	raw.Vendedor = contract.Object(contract.Ref{DisplayValue: "  Ana   Souza ", Name: "ana", ID: "42"})
	raw.Digitador = contract.Object(contract.Ref{Name: "Bruno", ID: "7"})
	raw.Agente = contract.Object(contract.Ref{ID: "agent-3"})

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", res.Contract.VendedorNome)
	assert.Equal(t, "Bruno", res.Contract.DigitadorNome)
	assert.Equal(t, "agent-3", res.Contract.AgenteID)
}

func TestNormalize_AbsentDimensionsUseSentinels(t *testing.T) {
	raw := contract.RawContract{
		ID:            contract.String("c-8"),
		DataPagamento: contract.String("2025-03-01"),
		Vendedor:      contract.String("   "),
	}

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	c := res.Contract
	assert.Equal(t, contract.SemInfo, c.VendedorNome)
	assert.Equal(t, contract.SemInfo, c.DigitadorNome)
	assert.Equal(t, "Sem produto", c.Produto)
	assert.Equal(t, contract.SemInfo, c.TipoOperacao)
	assert.Equal(t, contract.SemInfo, c.AgenteID)
	assert.Equal(t, "Sem estágio", c.EtapaPipeline)
}

func TestNormalize_CustomSentinelsPartiallyConfigured(t *testing.T) {
	n := contract.NewNormalizer(contract.Sentinels{Produto: "N/D"}, nil)
	raw := contract.RawContract{
		ID:            contract.String("c-8"),
		DataPagamento: contract.String("2025-03-01"),
	}

	res, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "N/D", res.Contract.Produto)
	assert.Equal(t, "Sem estágio", res.Contract.EtapaPipeline)
}

// =============================================================================
// HASHING AND JSON
// =============================================================================

func TestHash_IgnoresVolatileFields(t *testing.T) {
	a := baseRaw("c-1")
	b := baseRaw("c-1")
	a.ModifiedTime = contract.String("2025-03-01T10:00:00Z")
	b.ModifiedTime = contract.String("2025-03-02T18:00:00Z")
	b.LastActivityTime = contract.String("2025-03-02T18:00:00Z")

	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHash_ChangesWithContent(t *testing.T) {
	a := baseRaw("c-1")
	b := baseRaw("c-1")
	b.ValorLiquidoLiberado = contract.String("R$ 10.000,01")

	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestRawContract_DecodesHeterogeneousJSON(t *testing.T) {
	payload := `{
		"id": 98765,
		"data_pagamento": "10/03/2025",
		"valor_liquido_liberado": 2500.5,
		"percentual_comissao": "5%",
		"vendedor": {"display_value": "Carla Dias", "ID": "11"},
		"produto": [{"name": "Cartão Benefício"}],
		"etapa": null
	}`

	var raw contract.RawContract
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	res, err := newNormalizer().Normalize(raw)
	require.NoError(t, err)

	c := res.Contract
	assert.Equal(t, "98765", c.IDContrato)
	assert.Equal(t, money.Cents(250050), c.LiquidoLiberado)
	assert.Equal(t, money.Cents(12503), c.ComissaoBase, "5% of 2500.50 rounds half away from zero")
	assert.Equal(t, "Carla Dias", c.VendedorNome)
	assert.Equal(t, "Cartão Benefício", c.Produto)
	assert.Equal(t, "Sem estágio", c.EtapaPipeline)
	assert.NotEmpty(t, res.Payload)
}

// =============================================================================
// BATCH
// =============================================================================

func TestNormalizeBatch_RejectionDoesNotAbort(t *testing.T) {
	bad := baseRaw("c-bad")
	bad.DataPagamento = contract.String("")

	batch := newNormalizer().NormalizeBatch([]contract.RawContract{
		baseRaw("c-1"), bad, baseRaw("c-2"),
	})

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "c-1", batch.Results[0].Contract.IDContrato)
	assert.Equal(t, "c-2", batch.Results[1].Contract.IDContrato)
	require.Len(t, batch.Rejected, 1)
	assert.Equal(t, "c-bad", batch.Rejected[0].IDContrato)
}
