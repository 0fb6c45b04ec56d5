package money_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/incentive-engine/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseCents_LocaleFormats(t *testing.T) {
	cases := []struct {
		in   string
		want money.Cents
	}{
		{"1.234,56", 123456},
		{"1234.56", 123456},
		{"R$ 1.234,56", 123456},
		{"R$ 1.234.567,89", 123456789},
		{"  250,5 ", 25050},
		{"1234", 123400},
		{"0,01", 1},
		{"12abc", 1200},
		{"-5,00", -500},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, money.ParseCents(c.in), "input %q", c.in)
	}
}

func TestParseCents_SameValueDifferentNotation(t *testing.T) {
	assert.Equal(t, money.ParseCents("1.234,56"), money.ParseCents("1234.56"))
	assert.Equal(t, money.Cents(123456), money.ParseCents("1234.56"))
}

func TestParseCents_GarbageIsZero(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "R$", "--", ",", "n/a"} {
		assert.Equal(t, money.Cents(0), money.ParseCents(in), "input %q", in)
	}
}

func TestParseCents_ThreeDigitGroupIsThousands(t *testing.T) {
	// "1.234" could mean 1.234 units; the heuristic always reads it as 1234.
	assert.Equal(t, money.Cents(123400), money.ParseCents("1.234"))
	// Two fractional digits are left alone.
	assert.Equal(t, money.Cents(123), money.ParseCents("1.23"))
	// Four digits after the dot are not a thousands group.
	assert.Equal(t, money.Cents(123), money.ParseCents("1.2345"))
}

func TestParseCents_OutOfRangeIsZero(t *testing.T) {
	assert.Equal(t, money.Cents(0), money.ParseCents("99999999999999999999"))
	assert.Equal(t, money.Cents(0), money.ParseCents("-99999999999999999999"))
	assert.Equal(t, money.Cents(0), money.ParseCents("1e30"))
	assert.Equal(t, money.Cents(0), money.CentsFromDecimal(dec("92233720368547758.08")))

	// the largest representable amount still parses
	assert.Equal(t, money.Cents(math.MaxInt64), money.ParseCents("92233720368547758.07"))
}

func TestCentsFromDecimal_Rounds(t *testing.T) {
	assert.Equal(t, money.Cents(101), money.CentsFromDecimal(dec("1.005")))
	assert.Equal(t, money.Cents(100), money.CentsFromDecimal(dec("1.004")))
	assert.Equal(t, money.Cents(0), money.CentsFromDecimal(decimal.Zero))
}

func TestParseFraction_DualInterpretation(t *testing.T) {
	assert.True(t, dec("0.06").Equal(money.ParseFraction("6%")))
	assert.True(t, dec("0.5").Equal(money.ParseFraction("0,5")))
	assert.True(t, dec("0.04").Equal(money.FractionFromDecimal(dec("4"))))
	assert.True(t, dec("0.125").Equal(money.ParseFraction("12,5 %")))
}

func TestParseFraction_BoundaryAtOne(t *testing.T) {
	// Exactly 1 stays 1 (100%), only values strictly above 1 are divided.
	assert.True(t, dec("1").Equal(money.FractionFromDecimal(dec("1"))))
	assert.True(t, dec("1").Equal(money.ParseFraction("1")))
	assert.True(t, dec("0.0101").Equal(money.ParseFraction("1,01")))
}

func TestParseFraction_ZeroOnGarbage(t *testing.T) {
	for _, in := range []string{"", "%", "abc", "NaN"} {
		assert.True(t, money.ParseFraction(in).IsZero(), "input %q", in)
	}
}

func TestCents_MulFractionAndRatio(t *testing.T) {
	assert.Equal(t, money.Cents(6000), money.Cents(100000).MulFraction(dec("0.06")))
	assert.Equal(t, money.Cents(1), money.Cents(15).MulFraction(dec("0.05")))
	assert.True(t, money.Ratio(50, 0).IsZero())
	assert.True(t, dec("50").Equal(money.Percent(50, 100)))
	assert.Equal(t, "1234.56", money.Cents(123456).String())
}
