package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Number is an optional numeric invoice column. The zero value is empty and is
// written as an empty CSV cell and a NULL column.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

var numberCleaner = strings.NewReplacer(
	"₹", "",
	"inr", "",
	"rs.", "",
	"rs", "",
	",", "",
	" ", "",
	"\t", "",
)

// NewNumber wraps a decimal as a populated Number.
func NewNumber(d decimal.Decimal) Number {
	return Number{Value: d, Valid: true}
}

// ParseNumber reads a numeric-looking string such as "₹1,250.00" or "Rs. 90".
// Anything that does not parse yields an empty Number.
func ParseNumber(s string) Number {
	s = numberCleaner.Replace(strings.ToLower(strings.TrimSpace(s)))
	if s == "" {
		return Number{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}
	}
	return NewNumber(d)
}

func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return n.Value.String()
}

// Float returns the value for SQL binding: nil when empty.
func (n Number) Float() any {
	if !n.Valid {
		return nil
	}
	return n.Value.InexactFloat64()
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (n Number) MarshalCSV() (string, error) {
	return n.String(), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (n *Number) UnmarshalCSV(s string) error {
	*n = ParseNumber(s)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Value.String()), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*n = Number{}
		return nil
	}
	*n = ParseNumber(s)
	return nil
}
