package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// DIMENSIONS
// =============================================================================

// KeyFunc extracts the grouping key of a contract.
type KeyFunc func(contract.Contract) string

func ByProduto(c contract.Contract) string      { return c.Produto }
func ByEtapa(c contract.Contract) string        { return c.EtapaPipeline }
func ByTipoOperacao(c contract.Contract) string { return c.TipoOperacao }
func ByVendedor(c contract.Contract) string     { return c.VendedorNome }
func ByDigitador(c contract.Contract) string    { return c.DigitadorNome }
func ByAgente(c contract.Contract) string       { return c.AgenteID }
func ByDia(c contract.Contract) string          { return c.Day() }

var dimensions = map[string]KeyFunc{
	"produto":       ByProduto,
	"etapa":         ByEtapa,
	"tipo_operacao": ByTipoOperacao,
	"vendedor":      ByVendedor,
	"digitador":     ByDigitador,
	"agente":        ByAgente,
	"dia":           ByDia,
}

// Dimension looks up a key function by its public name.
func Dimension(name string) (KeyFunc, bool) {
	fn, ok := dimensions[name]
	return fn, ok
}

// DimensionNames lists the supported dimension names, sorted.
func DimensionNames() []string {
	names := make([]string, 0, len(dimensions))
	for n := range dimensions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Row is one group of a dimension table.
type Row struct {
	Key          string          `json:"chave"`
	Contratos    int             `json:"contratos"`
	Liquido      money.Cents     `json:"liquidoCent"`
	Comissao     money.Cents     `json:"comissaoCent"`
	TakeRate     decimal.Decimal `json:"takeRate"`
	Participacao decimal.Decimal `json:"participacao"` // percent of total liquido
}

// ByDimension groups contracts by key. Rows are ranked by commission, then net
// value, then first appearance.
func ByDimension(contracts []contract.Contract, key KeyFunc) []Row {
	index := make(map[string]int)
	var rows []Row
	var total money.Cents
	for _, c := range contracts {
		k := key(c)
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, Row{Key: k})
		}
		rows[i].Contratos++
		rows[i].Liquido += c.LiquidoLiberado
		rows[i].Comissao += c.ComissaoTotal
		total += c.LiquidoLiberado
	}

	for i := range rows {
		rows[i].TakeRate = money.Ratio(rows[i].Comissao, rows[i].Liquido)
		rows[i].Participacao = money.Percent(rows[i].Liquido, total)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Comissao != rows[j].Comissao {
			return rows[i].Comissao > rows[j].Comissao
		}
		return rows[i].Liquido > rows[j].Liquido
	})
	if rows == nil {
		rows = []Row{}
	}
	return rows
}
