package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// VALUE - Tagged union for heterogeneous raw fields
// =============================================================================

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindAbsent Kind = iota // field missing from the payload
	KindNull               // explicit JSON null
	KindString
	KindNumber
	KindBool
	KindObject // lookup object {display_value, name, ID}
)

// Ref is the nested lookup object the source uses for users, products and stages.
type Ref struct {
	DisplayValue string `json:"display_value,omitempty"`
	Name         string `json:"name,omitempty"`
	ID           string `json:"ID,omitempty"`
}

// Value holds one raw field exactly as the source sent it.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	b    bool
	ref  Ref
}

func String(s string) Value          { return Value{kind: KindString, str: s} }
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }
func NumberString(s string) Value    { return Number(decimal.RequireFromString(s)) }
func Object(r Ref) Value             { return Value{kind: KindObject, ref: r} }
func Null() Value                    { return Value{kind: KindNull} }

func (v Value) Kind() Kind                       { return v.kind }
func (v Value) IsPresent() bool                  { return v.kind != KindAbsent && v.kind != KindNull }
func (v Value) Ref() (Ref, bool)                 { return v.ref, v.kind == KindObject }
func (v Value) Decimal() (decimal.Decimal, bool) { return v.num, v.kind == KindNumber }

// Text extracts a display string. Objects resolve display_value, then name, then
// ID. Whitespace is collapsed and trimmed.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return collapse(v.str)
	case KindNumber:
		return v.num.String()
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindObject:
		for _, s := range []string{v.ref.DisplayValue, v.ref.Name, v.ref.ID} {
			if c := collapse(s); c != "" {
				return c
			}
		}
	}
	return ""
}

// Cents parses the value as money. Unparseable input is zero.
func (v Value) Cents() money.Cents {
	switch v.kind {
	case KindNumber:
		return money.CentsFromDecimal(v.num)
	case KindString, KindObject:
		return money.ParseCents(v.Text())
	}
	return 0
}

// Fraction parses the value as a percentage. Unparseable input is zero.
func (v Value) Fraction() decimal.Decimal {
	switch v.kind {
	case KindNumber:
		return money.FractionFromDecimal(v.num)
	case KindString, KindObject:
		return money.ParseFraction(v.Text())
	}
	return decimal.Zero
}

// canonical is the stable form used for content hashing.
func (v Value) canonical() string {
	switch v.kind {
	case KindString:
		return "s:" + v.str
	case KindNumber:
		return "n:" + v.num.String()
	case KindBool:
		return fmt.Sprintf("b:%t", v.b)
	case KindObject:
		return "o:" + v.ref.DisplayValue + "|" + v.ref.Name + "|" + v.ref.ID
	}
	return ""
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

// =============================================================================
// JSON
// =============================================================================

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(x)
	case bool:
		return Value{kind: KindBool, b: x}
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return String(x.String())
		}
		return Number(d)
	case map[string]any:
		return Object(Ref{
			DisplayValue: scalarText(x["display_value"]),
			Name:         scalarText(x["name"]),
			ID:           firstNonEmpty(scalarText(x["ID"]), scalarText(x["id"])),
		})
	case []any:
		// Multi-select lookups arrive as arrays; the first entry wins.
		if len(x) == 0 {
			return Null()
		}
		return fromAny(x[0])
	}
	return Null()
}

func scalarText(raw any) string {
	switch x := raw.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprintf("%t", x)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindObject:
		return json.Marshal(v.ref)
	}
	return []byte("null"), nil
}
