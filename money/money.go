/*
Package money converts locale-formatted amounts and percentages into canonical
representations.

PURPOSE:
  External contract feeds send money as "R$ 1.234,56", "1234.56", 1234.56 or
  garbage, and percentages as "6%", "0,06", 6 or 0.06. Everything downstream
  works on integer cents and decimal fractions, never on binary floats.

KEY CONCEPTS:
  - Cents: integer minor units. All sums and comparisons happen here.
  - Fraction: decimal.Decimal where 0.06 means 6%.
  - ParseNumber: the shared locale heuristic (thousands "." stripping, "," as
    decimal separator, leading-number prefix like parseFloat).

LENIENCY:
  Parsers never fail. Anything unrecognized is zero. Callers that need to tell a
  genuine zero from a parse failure use the quality flags produced by the contract
  normalizer, not errors from this package.

KNOWN AMBIGUITIES (kept on purpose, see tests):
  - "1.234" is read as 1234 (thousands separator), never 1.234.
  - Percent values above 1 are divided by 100; exactly 1 stays 1 (100%).

SEE ALSO:
  - contract/value.go: dispatches raw JSON values to these parsers
*/
package money

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CENTS
// =============================================================================

// Cents is an amount in minor currency units.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Decimal returns the amount in major units (e.g. reais).
func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

// String formats the amount in major units with two decimals.
func (c Cents) String() string { return c.Decimal().StringFixed(2) }

// MulFraction multiplies by a fraction and rounds to the nearest cent.
func (c Cents) MulFraction(f decimal.Decimal) Cents {
	return Cents(decimal.NewFromInt(int64(c)).Mul(f).Round(0).IntPart())
}

func (c Cents) IsZero() bool     { return c == 0 }
func (c Cents) IsPositive() bool { return c > 0 }

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// FromMajor converts an amount in major units to cents, rounded. Amounts that
// do not fit in int64 cents are unparseable and yield 0.
func FromMajor(d decimal.Decimal) Cents {
	c := d.Mul(hundred).Round(0)
	if c.GreaterThan(maxCents) || c.LessThan(minCents) {
		return 0
	}
	return Cents(c.IntPart())
}

// Ratio returns num/den, or zero when den is zero.
func Ratio(num, den Cents) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(num)).Div(decimal.NewFromInt(int64(den)))
}

// Percent returns num/den*100, or zero when den is zero.
func Percent(num, den Cents) decimal.Decimal {
	return Ratio(num, den).Mul(hundred)
}

// Sum adds cent amounts.
func Sum(values ...Cents) Cents {
	var total Cents
	for _, v := range values {
		total += v
	}
	return total
}

// =============================================================================
// PARSING
// =============================================================================

var (
	currencyTokens = []string{"US$", "R$", "BRL", "$", "€"}
	leadingNumber  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
)

// ParseCents parses a locale-formatted money string into cents.
// Empty, whitespace-only and non-numeric input yield 0.
func ParseCents(raw string) Cents {
	d, ok := ParseNumber(raw)
	if !ok {
		return 0
	}
	return FromMajor(d)
}

// CentsFromDecimal converts a numeric amount in major units into cents.
func CentsFromDecimal(d decimal.Decimal) Cents { return FromMajor(d) }

// ParseFraction parses a percentage string ("6%", "0,5", "12.5 %") into a fraction.
func ParseFraction(raw string) decimal.Decimal {
	d, ok := ParseNumber(strings.ReplaceAll(raw, "%", ""))
	if !ok {
		return decimal.Zero
	}
	return FractionFromDecimal(d)
}

// FractionFromDecimal applies the dual interpretation: values above 1 are whole
// percentages (6 -> 0.06), values up to and including 1 are already fractions.
func FractionFromDecimal(d decimal.Decimal) decimal.Decimal {
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return d.Div(hundred)
	}
	return d
}

// ParseNumber applies the locale heuristic and returns the leading number.
//
// Steps: drop currency tokens and whitespace, remove every "." followed by exactly
// three digits and then a non-digit or the end, turn remaining "," into ".", then
// read the longest numeric prefix.
func ParseNumber(raw string) (decimal.Decimal, bool) {
	s := raw
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, false
	}

	s = stripThousands(s)
	s = strings.ReplaceAll(s, ",", ".")

	m := leadingNumber.FindString(s)
	if m == "" {
		return decimal.Zero, false
	}
	m = strings.Replace(m, ".e", "e", 1)
	m = strings.Replace(m, ".E", "E", 1)
	m = strings.TrimSuffix(m, ".")
	if strings.HasPrefix(m, "+") {
		m = m[1:]
	}

	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func stripThousands(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '.' && isThousandsDot(s, i) {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isThousandsDot(s string, i int) bool {
	if i+3 >= len(s) {
		return false
	}
	for j := i + 1; j <= i+3; j++ {
		if !isDigit(s[j]) {
			return false
		}
	}
	return i+4 == len(s) || !isDigit(s[i+4])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
