package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/incentive-engine/money"
)

// ErrInvalidMonth is returned for month keys that are not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

// Month is a calendar month key in YYYY-MM form.
type Month string

const monthLayout = "2006-01"

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month(t.Format(monthLayout)), nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month { return Month(t.UTC().Format(monthLayout)) }

// Start is the first instant of the month in UTC.
func (m Month) Start() time.Time {
	t, _ := time.Parse(monthLayout, string(m))
	return t
}

// End is the first instant of the following month.
func (m Month) End() time.Time { return m.Start().AddDate(0, 1, 0) }

func (m Month) String() string { return string(m) }

// =============================================================================
// QUOTAS
// =============================================================================

// Quotas is the monthly target configuration. A seller missing from Sellers has
// quota zero.
type Quotas struct {
	Month       Month                  `json:"mes"`
	Global      money.Cents            `json:"metaGlobalCent"`
	SuperGlobal money.Cents            `json:"superMetaGlobalCent"`
	Sellers     map[string]money.Cents `json:"vendedores"`
}

// Seller returns the quota for one seller, zero when unassigned.
func (q Quotas) Seller(name string) money.Cents { return q.Sellers[name] }

// QuotaStore persists monthly quotas.
type QuotaStore interface {
	// SetQuotas replaces every quota of q.Month.
	SetQuotas(ctx context.Context, q Quotas) error

	// Quotas returns the configuration for a month; an unknown month yields
	// empty quotas, not an error.
	Quotas(ctx context.Context, m Month) (Quotas, error)
}
