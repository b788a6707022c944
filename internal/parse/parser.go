package parse

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// Fields maps every invoice column name to its extracted text.
type Fields map[string]string

// Parser applies an ordered rule table to raw document text. A miss on one
// field never affects another.
type Parser struct {
	rules []Rule
	now   func() time.Time
}

type Option func(*Parser)

// WithClock overrides the clock used for the Date and Time defaults.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New returns a Parser over rules; a nil or empty table uses DefaultRules.
func New(rules []Rule, opts ...Option) *Parser {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	p := &Parser{rules: rules, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse never fails. The result holds every column of the invoice schema;
// Source_File is left empty for the caller to attach.
func (p *Parser) Parse(text string) Fields {
	now := p.now()
	out := make(Fields, len(constants.InvoiceColumns))
	for _, col := range constants.InvoiceColumns {
		out[col] = ""
	}
	matched := make(map[string]bool, len(p.rules))
	for _, r := range p.rules {
		if matched[r.Field] {
			continue
		}
		if v := r.find(text); v != "" {
			out[r.Field] = v
			matched[r.Field] = true
		}
	}
	for _, r := range p.rules {
		if !matched[r.Field] && r.Default != nil {
			out[r.Field] = r.Default(now)
			matched[r.Field] = true
		}
	}
	return out
}

// find returns the first non-empty capture not rejected by NotAfter.
func (r Rule) find(text string) string {
	for _, m := range r.Pattern.FindAllStringSubmatchIndex(text, -1) {
		if len(m) < 4 || m[2] < 0 {
			continue
		}
		if r.NotAfter != nil && r.NotAfter.MatchString(text[max(0, m[0]-16):m[0]]) {
			continue
		}
		if v := strings.TrimSpace(text[m[2]:m[3]]); v != "" {
			return v
		}
	}
	return ""
}

// ParseInvoice parses text into a record.
func (p *Parser) ParseInvoice(text string) entity.Invoice {
	return entity.FromFields(p.Parse(text))
}
