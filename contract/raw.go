package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// RawContract is one record from the external contract source. Every field is
// optional and may arrive as a string, a number or a lookup object.
type RawContract struct {
	ID             Value `json:"id"`
	NumeroContrato Value `json:"numero_contrato"`

	// Two representations of the payment date that do not always agree.
	DataPagamento        Value `json:"data_pagamento"`
	DataPagamentoCliente Value `json:"data_pagamento_cliente"`

	ValorLiquidoLiberado Value `json:"valor_liquido_liberado"`
	ValorOperacao        Value `json:"valor_operacao"`

	// Direct commission candidates, in priority order.
	ComissaoValor Value `json:"comissao_valor"`
	ValorComissao Value `json:"valor_comissao"`

	ComissaoBonus      Value `json:"comissao_bonus"`
	PercentualComissao Value `json:"percentual_comissao"`
	PercentualBonus    Value `json:"percentual_bonus"`

	Vendedor     Value `json:"vendedor"`
	Digitador    Value `json:"digitador"`
	Produto      Value `json:"produto"`
	TipoOperacao Value `json:"tipo_operacao"`
	Agente       Value `json:"agente"`
	Etapa        Value `json:"etapa"`

	// Volatile bookkeeping, excluded from the content hash.
	ModifiedTime     Value `json:"modified_time"`
	LastActivityTime Value `json:"last_activity_time"`
}

// volatileFields change on every touch in the source without changing content.
var volatileFields = map[string]bool{
	"modified_time":      true,
	"last_activity_time": true,
}

func (r RawContract) fields() map[string]Value {
	return map[string]Value{
		"id":                     r.ID,
		"numero_contrato":        r.NumeroContrato,
		"data_pagamento":         r.DataPagamento,
		"data_pagamento_cliente": r.DataPagamentoCliente,
		"valor_liquido_liberado": r.ValorLiquidoLiberado,
		"valor_operacao":         r.ValorOperacao,
		"comissao_valor":         r.ComissaoValor,
		"valor_comissao":         r.ValorComissao,
		"comissao_bonus":         r.ComissaoBonus,
		"percentual_comissao":    r.PercentualComissao,
		"percentual_bonus":       r.PercentualBonus,
		"vendedor":               r.Vendedor,
		"digitador":              r.Digitador,
		"produto":                r.Produto,
		"tipo_operacao":          r.TipoOperacao,
		"agente":                 r.Agente,
		"etapa":                  r.Etapa,
		"modified_time":          r.ModifiedTime,
		"last_activity_time":     r.LastActivityTime,
	}
}

// Hash returns a stable SHA-256 over the non-volatile fields in sorted key order.
// Identical source content always yields the identical hash.
func (r RawContract) Hash() string {
	fields := r.fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !volatileFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k].canonical())
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

var marshalPayload = json.Marshal

// Payload serializes the present fields for the audit snapshot.
func (r RawContract) Payload() ([]byte, error) {
	present := make(map[string]Value)
	for k, v := range r.fields() {
		if v.IsPresent() {
			present[k] = v
		}
	}
	return marshalPayload(present)
}
