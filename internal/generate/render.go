package generate

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// RenderPDF writes a one-page A4 invoice for inv to w.
func RenderPDF(w io.Writer, inv entity.Invoice, created time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.InvoiceNo, true)
	pdf.SetCreator("invoice-intake", true)
	pdf.SetCreationDate(created)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	lines := Lines(inv)
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, tr(lines[0]), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, line := range lines[1:] {
		switch line {
		case "Item Details:":
			pdf.Ln(3)
			pdf.SetFont("Arial", "B", 13)
		default:
			pdf.SetFont("Arial", "", 12)
		}
		pdf.MultiCell(0, 8, tr(line), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render invoice pdf: %w", err)
	}
	return pdf.Output(w)
}
