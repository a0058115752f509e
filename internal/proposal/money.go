package proposal

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// Money is a BRL amount as emitted by the model. Known is false when the
// price is missing, null, or given as text such as "sob consulta".
type Money struct {
	Amount decimal.Decimal
	Known  bool
}

// NewMoney returns a known amount.
func NewMoney(d decimal.Decimal) Money { return Money{Amount: d, Known: true} }

// MustMoney parses a decimal literal and panics on error. Intended for tests
// and constants.
func MustMoney(s string) Money { return NewMoney(decimal.RequireFromString(s)) }

// UnmarshalJSON accepts numbers, numeric strings in either notation,
// "R$ 1.234,56" and null.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*m = Money{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if d, ok := ParseBRL(s); ok {
			*m = NewMoney(d)
		}
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return nil
	}
	*m = NewMoney(d)
	return nil
}

// MarshalJSON writes a JSON number with two decimals, or null.
func (m Money) MarshalJSON() ([]byte, error) {
	if !m.Known {
		return []byte("null"), nil
	}
	return []byte(m.Amount.StringFixed(2)), nil
}

// JSONSchema describes Money to the model.
func (Money) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		AnyOf:       []*jsonschema.Schema{{Type: "number"}, {Type: "null"}},
		Description: "Valor unitário em reais. Use null quando o preço for sob consulta.",
	}
}

// Quantity is a unit count that tolerates "2", "2 un" and 2.0.
type Quantity int

var leadingIntRE = regexp.MustCompile(`\d+`)

// UnmarshalJSON parses the first integer found in the value; anything else
// decodes to zero.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = 0
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*q = Quantity(int(f))
		return nil
	}
	if m := leadingIntRE.FindString(s); m != "" {
		n, _ := strconv.Atoi(m)
		*q = Quantity(n)
	}
	return nil
}

// JSONSchema describes Quantity to the model.
func (Quantity) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Minimum: json.Number("1"), Description: "Quantidade de unidades."}
}

// Percent is a discount percentage in [0, 100].
type Percent struct {
	decimal.Decimal
}

// UnmarshalJSON accepts numbers and strings such as "10%" or "7,5".
// Only quoted values go through the Brazilian notation rules; a bare JSON
// number is always a plain decimal.
func (p *Percent) UnmarshalJSON(b []byte) error {
	*p = Percent{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '"' {
		if d, err := decimal.NewFromString(string(b)); err == nil {
			p.Decimal = d
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if d, ok := ParseBRL(s); ok {
		p.Decimal = d
	}
	return nil
}

// MarshalJSON writes the percentage as a plain JSON number.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// JSONSchema describes Percent to the model.
func (Percent) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "number",
		Minimum:     json.Number("0"),
		Maximum:     json.Number("100"),
		Description: "Desconto percentual aplicado ao item (0 a 100).",
	}
}

var hundred = decimal.NewFromInt(100)

// clamp limits the percentage to [0, 100].
func (p Percent) clamp() Percent {
	switch {
	case p.Decimal.IsNegative():
		return Percent{}
	case p.Decimal.GreaterThan(hundred):
		return Percent{hundred}
	}
	return p
}

// ParseBRL parses an amount written the Brazilian way ("R$ 1.234,56"),
// the plain way ("1234.56") or with thousands separators only ("1.234").
// It reports false for empty or non-numeric text.
func ParseBRL(s string) (decimal.Decimal, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "r$")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' && r != '-' && r != '+' {
			return decimal.Zero, false
		}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		// "1.234" and "1.234.567" are thousands; "12.5" and "100.50" are decimals.
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatBRL renders d as "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}
