package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// Sheet is the worksheet holding the exported rows.
const Sheet = "Invoices"

// Source lists a tenant's invoices. repository.InvoiceRepository satisfies it.
type Source interface {
	List(ctx context.Context) ([]entity.Invoice, error)
}

// CSVSource reads invoices from the append-only CSV log at the given path.
type CSVSource string

func (p CSVSource) List(context.Context) ([]entity.Invoice, error) {
	return repository.ReadCSV(string(p))
}

// Service produces XLSX bytes for invoice exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// InvoicesXLSX returns a workbook with one header row in schema order followed
// by one row per invoice. Numeric columns are written as number cells and
// empty numbers as blank cells.
func (s *Service) InvoicesXLSX(ctx context.Context, tenant string, src Source) ([]byte, error) {
	start := time.Now()

	invs, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if index, _ := f.GetSheetIndex(Sheet); index == -1 {
		if _, err := f.NewSheet(Sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(Sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range constants.InvoiceColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(Sheet, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(constants.InvoiceColumns), 1)
		_ = f.SetCellStyle(Sheet, "A1", last, style)
	}

	for r, inv := range invs {
		if err := writeRow(f, r+2, inv); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(Sheet, "A", "C", 16) // number, date, time
	_ = f.SetColWidth(Sheet, "D", "D", 24) // buyer
	_ = f.SetColWidth(Sheet, "E", "E", 48) // address
	_ = f.SetColWidth(Sheet, "F", "H", 18)
	_ = f.SetColWidth(Sheet, "I", "N", 12) // amounts
	_ = f.SetColWidth(Sheet, "O", "P", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tenant", tenant,
		"rows", len(invs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, inv entity.Invoice) error {
	text := inv.Fields()
	nums := map[string]entity.Number{
		constants.FieldQty:    inv.Qty,
		constants.FieldRate:   inv.Rate,
		constants.FieldAmount: inv.Amount,
		constants.FieldCGST:   inv.CGST,
		constants.FieldSGST:   inv.SGST,
		constants.FieldTotal:  inv.Total,
	}
	for i, col := range constants.InvoiceColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		var err error
		if constants.IsNumericColumn(col) {
			n := nums[col]
			if !n.Valid {
				continue
			}
			err = f.SetCellFloat(Sheet, cell, n.Value.InexactFloat64(), -1, 64)
		} else {
			err = f.SetCellStr(Sheet, cell, text[col])
		}
		if err != nil {
			return fmt.Errorf("xlsx row %d: %w", row, err)
		}
	}
	return nil
}
