package entity

import (
	"github.com/joseph-ayodele/invoice-intake/constants"
)

// Invoice is one structured invoice row. Field order matches constants.InvoiceColumns
// and drives the CSV header order.
type Invoice struct {
	InvoiceNo    string `csv:"Invoice_No" json:"Invoice_No"`
	Date         string `csv:"Date" json:"Date"`
	Time         string `csv:"Time" json:"Time"`
	BuyerName    string `csv:"Buyer_Name" json:"Buyer_Name"`
	BuyerAddress string `csv:"Buyer_Address" json:"Buyer_Address"`
	PAN          string `csv:"PAN" json:"PAN"`
	GSTIN        string `csv:"GSTIN" json:"GSTIN"`
	Item         string `csv:"Item" json:"Item"`
	Qty          Number `csv:"Qty" json:"Qty"`
	Rate         Number `csv:"Rate" json:"Rate"`
	Amount       Number `csv:"Amount" json:"Amount"`
	CGST         Number `csv:"CGST" json:"CGST"`
	SGST         Number `csv:"SGST" json:"SGST"`
	Total        Number `csv:"Total" json:"Total"`
	Terms        string `csv:"Terms" json:"Terms"`
	SourceFile   string `csv:"Source_File" json:"Source_File"`
}

// FromFields builds an Invoice from a column-name keyed mapping. Missing keys
// and unparsable numbers become empty values.
func FromFields(f map[string]string) Invoice {
	return Invoice{
		InvoiceNo:    f[constants.FieldInvoiceNo],
		Date:         f[constants.FieldDate],
		Time:         f[constants.FieldTime],
		BuyerName:    f[constants.FieldBuyerName],
		BuyerAddress: f[constants.FieldBuyerAddress],
		PAN:          f[constants.FieldPAN],
		GSTIN:        f[constants.FieldGSTIN],
		Item:         f[constants.FieldItem],
		Qty:          ParseNumber(f[constants.FieldQty]),
		Rate:         ParseNumber(f[constants.FieldRate]),
		Amount:       ParseNumber(f[constants.FieldAmount]),
		CGST:         ParseNumber(f[constants.FieldCGST]),
		SGST:         ParseNumber(f[constants.FieldSGST]),
		Total:        ParseNumber(f[constants.FieldTotal]),
		Terms:        f[constants.FieldTerms],
		SourceFile:   f[constants.FieldSourceFile],
	}
}

// Fields returns every column as text, keyed by column name.
func (r Invoice) Fields() map[string]string {
	out := make(map[string]string, len(constants.InvoiceColumns))
	for i, v := range r.textValues() {
		out[constants.InvoiceColumns[i]] = v
	}
	return out
}

// Strings returns the columns as text in schema order.
func (r Invoice) Strings() []string {
	return r.textValues()
}

// Values returns SQL arguments in schema order; empty numbers bind as NULL.
func (r Invoice) Values() []any {
	return []any{
		r.InvoiceNo,
		r.Date,
		r.Time,
		r.BuyerName,
		r.BuyerAddress,
		r.PAN,
		r.GSTIN,
		r.Item,
		r.Qty.Float(),
		r.Rate.Float(),
		r.Amount.Float(),
		r.CGST.Float(),
		r.SGST.Float(),
		r.Total.Float(),
		r.Terms,
		r.SourceFile,
	}
}

// IsZero reports whether r is the empty record returned for failed documents.
func (r Invoice) IsZero() bool {
	for _, v := range r.textValues() {
		if v != "" {
			return false
		}
	}
	return true
}

func (r Invoice) textValues() []string {
	return []string{
		r.InvoiceNo,
		r.Date,
		r.Time,
		r.BuyerName,
		r.BuyerAddress,
		r.PAN,
		r.GSTIN,
		r.Item,
		r.Qty.String(),
		r.Rate.String(),
		r.Amount.String(),
		r.CGST.String(),
		r.SGST.String(),
		r.Total.String(),
		r.Terms,
		r.SourceFile,
	}
}
