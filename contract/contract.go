/*
Package contract turns raw external contract records into canonical contracts.

PURPOSE:
  The contract source exports loosely typed records: optional fields, money as
  strings or numbers, users and products as nested lookup objects, and two payment
  date fields that sometimes disagree. This package is the single validating
  boundary. Nothing past Normalize sees a RawContract.

KEY CONCEPTS:
  - Value:       tagged union for one raw field (value.go)
  - RawContract: the source record (raw.go)
  - Contract:    the canonical, immutable entity keyed by IDContrato
  - Snapshot:    content hash + raw payload used for idempotent re-sync
  - Normalizer:  RawContract -> Contract + hash + warnings (normalize.go)
  - Store/Apply: full replace keyed by IDContrato, skipped when the hash matches

INVARIANTS:
  - ComissaoTotal == ComissaoBase + ComissaoBonus
  - every cent field is non-negative
  - every dimensional field is non-empty (sentinel text when absent)
  - a Contract is never partially updated; a hash change replaces it entirely

SEE ALSO:
  - money/money.go: value parsers
  - aggregate/: consumers of canonical contracts
*/
package contract

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// CANONICAL CONTRACT
// =============================================================================

// Contract is the normalized representation of one external contract.
type Contract struct {
	IDContrato     string    `json:"idContrato"`
	NumeroContrato string    `json:"numeroContrato"`
	DataPagamento  time.Time `json:"dataPagamento"` // UTC midnight

	LiquidoLiberado money.Cents `json:"liquidoLiberadoCent"`
	ComissaoBase    money.Cents `json:"comissaoBaseCent"`
	ComissaoBonus   money.Cents `json:"comissaoBonusCent"`
	ComissaoTotal   money.Cents `json:"comissaoTotalCent"`

	PctComissaoBase  decimal.Decimal `json:"pctComissaoBase"`  // fraction
	PctComissaoBonus decimal.Decimal `json:"pctComissaoBonus"` // fraction

	VendedorNome  string `json:"vendedorNome"`
	DigitadorNome string `json:"digitadorNome"`
	Produto       string `json:"produto"`
	TipoOperacao  string `json:"tipoOperacao"`
	AgenteID      string `json:"agenteId"`
	EtapaPipeline string `json:"etapaPipeline"`

	// Quality flags
	InconsistenciaDataPagamento bool `json:"inconsistenciaDataPagamento"`
	LiquidoFallback             bool `json:"liquidoFallback"`
	ComissaoCalculada           bool `json:"comissaoCalculada"`
}

// Day returns the payment date formatted as YYYY-MM-DD.
func (c Contract) Day() string { return c.DataPagamento.Format("2006-01-02") }

// Provisional reports whether the commission is not a confirmed source value:
// either derived from a percentage or missing altogether.
func (c Contract) Provisional() bool {
	return c.ComissaoCalculada || c.ComissaoTotal == 0
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the change-detection record for one contract.
type Snapshot struct {
	IDContrato string
	Hash       string
	Payload    []byte
	SyncedAt   time.Time
}

// =============================================================================
// SENTINELS
// =============================================================================

// Sentinels holds the fallback text written into absent dimensional fields.
type Sentinels struct {
	Vendedor     string `yaml:"vendedor"`
	Digitador    string `yaml:"digitador"`
	Produto      string `yaml:"produto"`
	TipoOperacao string `yaml:"tipo_operacao"`
	Agente       string `yaml:"agente"`
	Etapa        string `yaml:"etapa"`
}

const SemInfo = "Sem info"

// DefaultSentinels returns the standard per-field fallbacks.
func DefaultSentinels() Sentinels {
	return Sentinels{
		Vendedor:     SemInfo,
		Digitador:    SemInfo,
		Produto:      "Sem produto",
		TipoOperacao: SemInfo,
		Agente:       SemInfo,
		Etapa:        "Sem estágio",
	}
}

// withDefaults fills blank entries so a partially configured set still never
// produces an empty dimension.
func (s Sentinels) withDefaults() Sentinels {
	d := DefaultSentinels()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Sentinels{
		Vendedor:     pick(s.Vendedor, d.Vendedor),
		Digitador:    pick(s.Digitador, d.Digitador),
		Produto:      pick(s.Produto, d.Produto),
		TipoOperacao: pick(s.TipoOperacao, d.TipoOperacao),
		Agente:       pick(s.Agente, d.Agente),
		Etapa:        pick(s.Etapa, d.Etapa),
	}
}
