/*
dto.go - Request and response bodies that differ from the domain types

PURPOSE:
  Most responses serialize domain projections directly (dashboard.View,
  aggregate.SellerStats, source.SyncRun). Only quotas need a wire shape of
  their own: clients send major units as strings or numbers, and the
  response carries both cents and a formatted amount.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - contract/value.go: tagged value decoding reused for quota amounts
*/
package api

import (
	"errors"
	"fmt"
	"sort"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// QUOTAS
// =============================================================================

// QuotasRequest sets every quota of one month. Amounts are major units and
// accept Brazilian or plain notation ("10.000,00", "10000.00", 10000).
type QuotasRequest struct {
	Global      contract.Value            `json:"global"`
	SuperGlobal contract.Value            `json:"super_global"`
	Vendedores  map[string]contract.Value `json:"vendedores"`
}

var (
	errNegativeQuota   = errors.New("quota must not be negative")
	errDuplicateSeller = errors.New("seller quota given twice")
)

func (r QuotasRequest) toQuotas(m commission.Month) (commission.Quotas, error) {
	q := commission.Quotas{
		Month:       m,
		Global:      r.Global.Cents(),
		SuperGlobal: r.SuperGlobal.Cents(),
		Sellers:     make(map[string]money.Cents, len(r.Vendedores)),
	}
	if q.Global < 0 || q.SuperGlobal < 0 {
		return q, errNegativeQuota
	}
	// keys are matched against normalized seller names
	for raw, v := range r.Vendedores {
		name := contract.NormalizeText(contract.String(raw), "")
		if name == "" {
			continue
		}
		if _, dup := q.Sellers[name]; dup {
			return q, fmt.Errorf("%w: %s", errDuplicateSeller, name)
		}
		meta := v.Cents()
		if meta < 0 {
			return q, fmt.Errorf("%w: %s", errNegativeQuota, name)
		}
		q.Sellers[name] = meta
	}
	return q, nil
}

// AmountDTO carries an amount as integer cents and as a fixed two-decimal string.
type AmountDTO struct {
	Cent  money.Cents `json:"cent"`
	Valor string      `json:"valor"`
}

func amount(c money.Cents) AmountDTO { return AmountDTO{Cent: c, Valor: c.String()} }

// SellerQuotaDTO is one seller's quota.
type SellerQuotaDTO struct {
	Vendedor string    `json:"vendedor"`
	Meta     AmountDTO `json:"meta"`
}

// QuotasDTO is the quota set of one month; sellers are sorted by name.
type QuotasDTO struct {
	Mes         string           `json:"mes"`
	Global      AmountDTO        `json:"global"`
	SuperGlobal AmountDTO        `json:"super_global"`
	Vendedores  []SellerQuotaDTO `json:"vendedores"`
}

func toQuotasDTO(q commission.Quotas) QuotasDTO {
	dto := QuotasDTO{
		Mes:         q.Month.String(),
		Global:      amount(q.Global),
		SuperGlobal: amount(q.SuperGlobal),
		Vendedores:  make([]SellerQuotaDTO, 0, len(q.Sellers)),
	}
	for name, meta := range q.Sellers {
		dto.Vendedores = append(dto.Vendedores, SellerQuotaDTO{Vendedor: name, Meta: amount(meta)})
	}
	sort.Slice(dto.Vendedores, func(i, j int) bool {
		return dto.Vendedores[i].Vendedor < dto.Vendedores[j].Vendedor
	})
	return dto
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
