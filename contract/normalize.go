package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// WARNINGS
// =============================================================================

type WarningCode string

const (
	WarnRejected     WarningCode = "rejected"
	WarnComissaoZero WarningCode = "comissao_zero"
	WarnLiquidoZero  WarningCode = "liquido_zero"
)

// Warning is a non-fatal finding attached to a normalization result.
type Warning struct {
	IDContrato string      `json:"idContrato"`
	Code       WarningCode `json:"code"`
	Message    string      `json:"message"`
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Result is the output of normalizing one record.
type Result struct {
	Contract     Contract
	SnapshotHash string
	Payload      []byte
	Warnings     []Warning
}

// Snapshot builds the change-detection record for this result.
func (r Result) Snapshot(syncedAt time.Time) Snapshot {
	return Snapshot{
		IDContrato: r.Contract.IDContrato,
		Hash:       r.SnapshotHash,
		Payload:    r.Payload,
		SyncedAt:   syncedAt,
	}
}

// Normalizer converts raw records into canonical contracts.
type Normalizer struct {
	sentinels Sentinels
	logger    *zap.Logger
}

// NewNormalizer creates a normalizer. A nil logger disables logging.
func NewNormalizer(sentinels Sentinels, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{sentinels: sentinels.withDefaults(), logger: logger}
}

// Normalize converts one record. The returned error is a *RejectedError when the
// record has no usable payment date or no ID; the Result then carries only the
// rejection warning.
func (n *Normalizer) Normalize(raw RawContract) (Result, error) {
	id := raw.ID.Text()
	if id == "" {
		return rejected(id, ErrMissingID), &RejectedError{IDContrato: id, Reason: ErrMissingID}
	}

	// 1. Payment date
	primary, okPrimary := parseDate(raw.DataPagamento)
	secondary, okSecondary := parseDate(raw.DataPagamentoCliente)
	if !okPrimary && !okSecondary {
		return rejected(id, ErrUnparseablePaymentDate), &RejectedError{IDContrato: id, Reason: ErrUnparseablePaymentDate}
	}
	c := Contract{
		IDContrato:     id,
		NumeroContrato: raw.NumeroContrato.Text(),
	}
	switch {
	case okPrimary && okSecondary:
		c.DataPagamento = primary
		c.InconsistenciaDataPagamento = !primary.Equal(secondary)
	case okPrimary:
		c.DataPagamento = primary
	default:
		c.DataPagamento = secondary
	}

	// 2. Net value
	c.LiquidoLiberado = nonNegative(raw.ValorLiquidoLiberado.Cents())
	if c.LiquidoLiberado == 0 {
		if fallback := nonNegative(raw.ValorOperacao.Cents()); fallback > 0 {
			c.LiquidoLiberado = fallback
			c.LiquidoFallback = true
		}
	}

	// 3. Commission
	c.PctComissaoBase = clampFraction(raw.PercentualComissao.Fraction())
	c.PctComissaoBonus = clampFraction(raw.PercentualBonus.Fraction())
	c.ComissaoBase = firstPositive(raw.ComissaoValor.Cents(), raw.ValorComissao.Cents())
	c.ComissaoBonus = nonNegative(raw.ComissaoBonus.Cents())
	if c.ComissaoBase == 0 && c.PctComissaoBase.IsPositive() && c.LiquidoLiberado > 0 {
		c.ComissaoBase = c.LiquidoLiberado.MulFraction(c.PctComissaoBase)
		c.ComissaoCalculada = true
	}
	c.ComissaoTotal = c.ComissaoBase + c.ComissaoBonus

	// 4. Dimensions
	s := n.sentinels
	c.VendedorNome = NormalizeText(raw.Vendedor, s.Vendedor)
	c.DigitadorNome = NormalizeText(raw.Digitador, s.Digitador)
	c.Produto = NormalizeText(raw.Produto, s.Produto)
	c.TipoOperacao = NormalizeText(raw.TipoOperacao, s.TipoOperacao)
	c.AgenteID = NormalizeText(raw.Agente, s.Agente)
	c.EtapaPipeline = NormalizeText(raw.Etapa, s.Etapa)

	// 5. Warnings
	var warnings []Warning
	if c.ComissaoTotal == 0 {
		warnings = append(warnings, Warning{IDContrato: id, Code: WarnComissaoZero, Message: "comissão total zerada"})
	}
	if c.LiquidoLiberado == 0 {
		warnings = append(warnings, Warning{IDContrato: id, Code: WarnLiquidoZero, Message: "valor líquido zerado"})
	}

	// 6. Hash
	payload, err := raw.Payload()
	if err != nil {
		reason := fmt.Errorf("%w: %v", ErrUnserializablePayload, err)
		return rejected(id, reason), &RejectedError{IDContrato: id, Reason: reason}
	}
	return Result{
		Contract:     c,
		SnapshotHash: raw.Hash(),
		Payload:      payload,
		Warnings:     warnings,
	}, nil
}

func rejected(id string, reason error) Result {
	return Result{Warnings: []Warning{{IDContrato: id, Code: WarnRejected, Message: reason.Error()}}}
}

// Batch is the output of normalizing many records.
type Batch struct {
	Results  []Result
	Rejected []*RejectedError
	Warnings []Warning
}

// NormalizeBatch normalizes every record. Rejections are logged and collected;
// they never abort the batch.
func (n *Normalizer) NormalizeBatch(raws []RawContract) Batch {
	var b Batch
	for _, raw := range raws {
		res, err := n.Normalize(raw)
		b.Warnings = append(b.Warnings, res.Warnings...)
		if err != nil {
			rej, _ := err.(*RejectedError)
			b.Rejected = append(b.Rejected, rej)
			n.logger.Warn("contract rejected",
				zap.String("id_contrato", rej.IDContrato),
				zap.Error(rej.Reason))
			continue
		}
		b.Results = append(b.Results, res)
	}
	return b
}

// =============================================================================
// FIELD HELPERS
// =============================================================================

// NormalizeText extracts a dimension from a plain string or lookup object and
// falls back to the sentinel when nothing usable is present.
func NormalizeText(v Value, fallback string) string {
	if s := v.Text(); s != "" {
		return s
	}
	return fallback
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts dd/mm/yyyy (optionally followed by a time) and ISO forms.
// The calendar date as written is returned at UTC midnight.
func parseDate(v Value) (time.Time, bool) {
	s := v.Text()
	if s == "" {
		return time.Time{}, false
	}
	if strings.Contains(s, "/") {
		day := strings.Fields(s)[0]
		t, err := time.Parse("2/1/2006", day)
		if err != nil {
			return time.Time{}, false
		}
		return midnight(t), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), true
		}
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstPositive(values ...money.Cents) money.Cents {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func nonNegative(c money.Cents) money.Cents {
	if c < 0 {
		return 0
	}
	return c
}

var one = decimal.NewFromInt(1)

func clampFraction(f decimal.Decimal) decimal.Decimal {
	if f.IsNegative() {
		return decimal.Zero
	}
	if f.GreaterThan(one) {
		return one
	}
	return f
}
