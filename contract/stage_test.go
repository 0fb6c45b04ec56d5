package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/incentive-engine/contract"
)

func TestStageFilter_InvalidStagesExcluded(t *testing.T) {
	f := contract.NewStageFilter(contract.DefaultInvalidStages)

	assert.False(t, f.Valid("Cancelado"))
	assert.False(t, f.Valid("Em Digitação"))
	assert.True(t, f.Valid("Pago"))
	assert.True(t, f.Valid(""), "absence is not invalidity")
	assert.True(t, f.Valid("Sem estágio"))
}

func TestStageFilter_KeepPreservesOrder(t *testing.T) {
	f := contract.NewStageFilter([]string{" Não  Contratado "})
	in := []contract.Contract{
		{IDContrato: "a", EtapaPipeline: "Pago"},
		{IDContrato: "b", EtapaPipeline: "Não Contratado"},
		{IDContrato: "c", EtapaPipeline: "Sem estágio"},
	}

	out := f.Keep(in)

	assert.Equal(t, []string{"a", "c"}, ids(out))
}

func TestFilter_HalfOpenRange(t *testing.T) {
	f := contract.Filter{From: day(2025, time.March, 1), To: day(2025, time.April, 1)}

	assert.True(t, f.Matches(contract.Contract{DataPagamento: day(2025, time.March, 1)}))
	assert.True(t, f.Matches(contract.Contract{DataPagamento: day(2025, time.March, 31)}))
	assert.False(t, f.Matches(contract.Contract{DataPagamento: day(2025, time.April, 1)}))
	assert.False(t, f.Matches(contract.Contract{DataPagamento: day(2025, time.February, 28)}))
	assert.True(t, contract.Filter{}.Matches(contract.Contract{DataPagamento: day(1999, time.January, 1)}))
}

func TestQuality_CountsFlags(t *testing.T) {
	r := contract.Quality([]contract.Contract{
		{InconsistenciaDataPagamento: true, LiquidoLiberado: 100, ComissaoTotal: 10},
		{LiquidoFallback: true, LiquidoLiberado: 100},
		{ComissaoCalculada: true, LiquidoLiberado: 100, ComissaoTotal: 5},
		{},
	})

	assert.Equal(t, contract.QualityReport{
		Total:                       4,
		InconsistenciaDataPagamento: 1,
		LiquidoFallback:             1,
		ComissaoCalculada:           1,
		ComissaoZero:                2,
		LiquidoZero:                 1,
	}, r)
}

func ids(cs []contract.Contract) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.IDContrato
	}
	return out
}
