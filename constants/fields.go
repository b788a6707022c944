package constants

// Invoice column names, in the order they appear in the CSV header and the invoices table.
const (
	FieldInvoiceNo    = "Invoice_No"
	FieldDate         = "Date"
	FieldTime         = "Time"
	FieldBuyerName    = "Buyer_Name"
	FieldBuyerAddress = "Buyer_Address"
	FieldPAN          = "PAN"
	FieldGSTIN        = "GSTIN"
	FieldItem         = "Item"
	FieldQty          = "Qty"
	FieldRate         = "Rate"
	FieldAmount       = "Amount"
	FieldCGST         = "CGST"
	FieldSGST         = "SGST"
	FieldTotal        = "Total"
	FieldTerms        = "Terms"
	FieldSourceFile   = "Source_File"
)

// InvoiceColumns is the fixed record schema.
var InvoiceColumns = []string{
	FieldInvoiceNo,
	FieldDate,
	FieldTime,
	FieldBuyerName,
	FieldBuyerAddress,
	FieldPAN,
	FieldGSTIN,
	FieldItem,
	FieldQty,
	FieldRate,
	FieldAmount,
	FieldCGST,
	FieldSGST,
	FieldTotal,
	FieldTerms,
	FieldSourceFile,
}

// NumericColumns are stored as floating point in the invoices table.
var NumericColumns = map[string]struct{}{
	FieldQty:    {},
	FieldRate:   {},
	FieldAmount: {},
	FieldCGST:   {},
	FieldSGST:   {},
	FieldTotal:  {},
}

// IsNumericColumn reports whether col is one of the numeric columns.
func IsNumericColumn(col string) bool {
	_, ok := NumericColumns[col]
	return ok
}
