package generate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
)

// Form defaults for a manually created invoice.
const (
	DefaultInvoiceNo = "INV/2025/089019"
	DefaultPAN       = "ABCDE1234F"
	DefaultGSTIN     = "16ABCDE8273Z01"
	DefaultItem      = "Power Bank"
	DefaultQty       = 1
	DefaultRate      = 500.0
	DefaultTerms     = "Goods once sold will not be taken back."
)

// Layouts for generated Date and Time values.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Input is the manual invoice form. Nil or blank fields take the form defaults.
type Input struct {
	InvoiceNo    string   `json:"invoice_no,omitempty"`
	Date         string   `json:"date,omitempty"`
	Time         string   `json:"time,omitempty"`
	BuyerName    string   `json:"buyer_name,omitempty"`
	BuyerAddress string   `json:"buyer_address,omitempty"`
	PAN          string   `json:"pan,omitempty"`
	GSTIN        string   `json:"gstin,omitempty"`
	Item         string   `json:"item,omitempty"`
	Qty          *int     `json:"qty,omitempty"`
	Rate         *float64 `json:"rate,omitempty"`
	Terms        string   `json:"terms,omitempty"`
}

// WithDefaults returns a copy of in with every empty field filled. Date and
// Time come from now.
func (in Input) WithDefaults(now time.Time) Input {
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&in.InvoiceNo, DefaultInvoiceNo)
	fill(&in.Date, now.Format(DateLayout))
	fill(&in.Time, now.Format(TimeLayout))
	fill(&in.PAN, DefaultPAN)
	fill(&in.GSTIN, DefaultGSTIN)
	fill(&in.Item, DefaultItem)
	fill(&in.Terms, DefaultTerms)
	if in.Qty == nil {
		q := DefaultQty
		in.Qty = &q
	}
	if in.Rate == nil {
		r := DefaultRate
		in.Rate = &r
	}
	return in
}

// Validate checks the numeric bounds of the form.
func (in Input) Validate() error {
	if in.Qty != nil && *in.Qty < 1 {
		return common.NewAppError("INVALID_INVOICE", "qty must be at least 1", common.ErrValidation)
	}
	if in.Rate != nil && *in.Rate < 0 {
		return common.NewAppError("INVALID_INVOICE", "rate must not be negative", common.ErrValidation)
	}
	if strings.ContainsAny(in.InvoiceNo, `\:*?"<>|`) || strings.Contains(in.InvoiceNo, "..") {
		return common.NewAppError("INVALID_INVOICE", "invoice number contains characters not allowed in a file name", common.ErrValidation)
	}
	return nil
}

const inputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "invoice_no":    {"type": "string", "maxLength": 64},
    "date":          {"type": "string", "maxLength": 32},
    "time":          {"type": "string", "maxLength": 32},
    "buyer_name":    {"type": "string", "maxLength": 256},
    "buyer_address": {"type": "string", "maxLength": 1024},
    "pan":           {"type": "string", "maxLength": 16},
    "gstin":         {"type": "string", "maxLength": 16},
    "item":          {"type": "string", "maxLength": 256},
    "qty":           {"type": "integer", "minimum": 1},
    "rate":          {"type": "number", "minimum": 0},
    "terms":         {"type": "string", "maxLength": 1024}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("invoice-input.json", strings.NewReader(inputSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("invoice-input.json")
	})
	return schema, schemaErr
}

// DecodeInput validates a JSON form payload against the input schema and decodes it.
func DecodeInput(data []byte) (Input, error) {
	s, err := compiledSchema()
	if err != nil {
		return Input{}, fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Input{}, common.NewAppError("INVALID_INVOICE", "payload is not valid JSON", errors.Join(common.ErrInvalidInput, err))
	}
	if err := s.Validate(v); err != nil {
		return Input{}, common.NewAppError("INVALID_INVOICE", err.Error(), common.ErrValidation)
	}

	var in Input
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return Input{}, common.NewAppError("INVALID_INVOICE", "decode payload", errors.Join(common.ErrInvalidInput, err))
	}
	return in, in.Validate()
}
