package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// taxRate is applied once for CGST and once for SGST.
var taxRate = decimal.RequireFromString("0.09")

// Build computes the derived amounts and returns the record for in.
//
//	amount = qty * rate
//	cgst = sgst = round(amount * 0.09, 2)
//	total = amount + cgst + sgst
func Build(in Input, now time.Time) (entity.Invoice, error) {
	in = in.WithDefaults(now)
	if err := in.Validate(); err != nil {
		return entity.Invoice{}, err
	}

	qty := decimal.NewFromInt(int64(*in.Qty))
	rate := decimal.NewFromFloat(*in.Rate)
	amount := qty.Mul(rate)
	tax := amount.Mul(taxRate).Round(2)
	total := amount.Add(tax).Add(tax)

	return entity.Invoice{
		InvoiceNo:    strings.TrimSpace(in.InvoiceNo),
		Date:         in.Date,
		Time:         in.Time,
		BuyerName:    strings.TrimSpace(in.BuyerName),
		BuyerAddress: flatten(in.BuyerAddress),
		PAN:          strings.TrimSpace(in.PAN),
		GSTIN:        strings.TrimSpace(in.GSTIN),
		Item:         strings.TrimSpace(in.Item),
		Qty:          entity.NewNumber(qty),
		Rate:         entity.NewNumber(rate),
		Amount:       entity.NewNumber(amount),
		CGST:         entity.NewNumber(tax),
		SGST:         entity.NewNumber(tax),
		Total:        entity.NewNumber(total),
		Terms:        strings.TrimSpace(in.Terms),
		SourceFile:   SourceFileName(in.InvoiceNo),
	}, nil
}

// SourceFileName is the provenance recorded for a manual invoice.
func SourceFileName(invoiceNo string) string {
	return strings.TrimSpace(invoiceNo) + ".pdf"
}

// fileStem makes an invoice number safe to use as a file name.
func fileStem(invoiceNo string) string {
	return strings.ReplaceAll(strings.TrimSpace(invoiceNo), "/", "_")
}

// Lines is the printed layout of inv, one labelled value per line.
func Lines(inv entity.Invoice) []string {
	return []string{
		"INVOICE",
		"Invoice No: " + inv.InvoiceNo,
		"Date: " + inv.Date,
		"Time: " + inv.Time,
		"Buyer Name: " + inv.BuyerName,
		"Buyer Address: " + inv.BuyerAddress,
		"PAN: " + inv.PAN,
		"GSTIN: " + inv.GSTIN,
		"Item Details:",
		"Item: " + inv.Item,
		fmt.Sprintf("Quantity: %s   Rate: Rs.%s   Amount: Rs.%s", inv.Qty, inv.Rate, inv.Amount),
		"CGST (9%): Rs." + inv.CGST.String(),
		"SGST (9%): Rs." + inv.SGST.String(),
		"Total Amount Payable: Rs." + inv.Total.String(),
		"Terms: " + inv.Terms,
	}
}

// Text is the printed layout as one string, the way text extraction reads it back.
func Text(inv entity.Invoice) string {
	return strings.Join(Lines(inv), "\n")
}

func flatten(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}
