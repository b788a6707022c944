package parse

import (
	"regexp"
	"time"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// Placeholder stored in Invoice_No when no invoice number is found.
const UnknownInvoiceNo = "UNKNOWN"

// Layouts used for the Date and Time defaults.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04:05"
)

// Rule extracts one field. Pattern must contain exactly one capture group.
// Default supplies the value when Pattern does not match; nil means "".
// Several rules may target the same field: they are tried in table order and
// the first one that matches wins.
type Rule struct {
	Field   string
	Pattern *regexp.Regexp
	// NotAfter, when set, discards a match whose preceding text ends with it.
	NotAfter *regexp.Regexp
	Default  func(now time.Time) string
}

const (
	money   = `(?:₹|rs\.?|inr)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`
	taxRate = `(?:\(\s*[0-9.]+\s*%\s*\)|@?\s*[0-9.]+\s*%)?`
)

func rx(p string) *regexp.Regexp { return regexp.MustCompile(`(?i)` + p) }

// afterSub matches the "Sub" of "Sub Total" / "Sub-Total".
var afterSub = rx(`\bsub[ \t\-]*$`)

// DefaultRules is the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Field:   constants.FieldInvoiceNo,
			Pattern: rx(`invoice[ \t]*(?:no|number|#)\.?[ \t]*[:\-]?[ \t]*([a-z0-9][a-z0-9/_\-]*)`),
			Default: func(time.Time) string { return UnknownInvoiceNo },
		},
		{
			Field:   constants.FieldDate,
			Pattern: rx(`\bdate\s*[:\-]?\s*([0-9]{1,2}[/.\-][0-9]{1,2}[/.\-][0-9]{2,4}|[0-9]{4}-[0-9]{2}-[0-9]{2})`),
			Default: func(now time.Time) string { return now.Format(DateLayout) },
		},
		{
			Field:   constants.FieldTime,
			Pattern: rx(`\btime\s*[:\-]?\s*([0-9]{1,2}:[0-9]{2}(?::[0-9]{2}(?:\.[0-9]+)?)?(?:\s*[ap]m)?)`),
			Default: func(now time.Time) string { return now.Format(TimeLayout) },
		},
		{Field: constants.FieldBuyerName, Pattern: rx(`buyer[ \t]*name[ \t]*[:\-]?[ \t]*([^:\s][^\n]*)`)},
		{Field: constants.FieldBuyerAddress, Pattern: rx(`buyer[ \t]*address[ \t]*[:\-]?[ \t]*([^:\s][^\n]*)`)},
		{Field: constants.FieldPAN, Pattern: rx(`\bpan\s*(?:no\.?)?\s*[:\-]?\s*([a-z]{5}[0-9]{4}[a-z])`)},
		{Field: constants.FieldGSTIN, Pattern: rx(`\bgstin\s*(?:no\.?)?\s*[:\-]?\s*([0-9]{2}[a-z0-9]{10,13})`)},
		{Field: constants.FieldItem, Pattern: rx(`(?m)\bitem\s*[:\-][ \t]*([^:\s][^\n]*?)[ \t]*(?:\bquantity\b|\bqty\b|$)`)},
		{Field: constants.FieldQty, Pattern: rx(`\b(?:qty|quantity)\s*[:\-]?\s*([0-9]+(?:\.[0-9]+)?)`)},
		{Field: constants.FieldRate, Pattern: rx(`\brate\s*(?:\(₹\))?\s*[:\-]?\s*` + money)},
		// "Amount" not preceded by a word, so "Total Amount" is left to the Total rule.
		{Field: constants.FieldAmount, Pattern: rx(`(?m)(?:^|[0-9.)|]\s*|\s{2,})amount\s*[:\-]?\s*` + money)},
		{Field: constants.FieldCGST, Pattern: rx(`\bcgst\s*` + taxRate + `\s*[:\-]?\s*` + money)},
		{Field: constants.FieldSGST, Pattern: rx(`\bsgst\s*` + taxRate + `\s*[:\-]?\s*` + money)},
		// Labelled grand totals first, then a bare "Total" that is not a subtotal.
		{
			Field:    constants.FieldTotal,
			Pattern:  rx(`\b(?:grand\s*total|total\s*amount(?:\s*(?:payable|due))?|amount\s*(?:payable|due))\s*[:\-]?\s*` + money),
			NotAfter: afterSub,
		},
		{
			Field:    constants.FieldTotal,
			Pattern:  rx(`\btotal\s*(?:payable|due)?\s*[:\-]?\s*` + money),
			NotAfter: afterSub,
		},
		{Field: constants.FieldTerms, Pattern: rx(`\bterms(?:\s*(?:&|and)\s*conditions)?\s*[:\-][ \t]*([^:\s][^\n]*)`)},
	}
}
