package repository

import (
	"database/sql"
	"strconv"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// TableInvoices is the relational table every tenant database carries.
const TableInvoices = "invoices"

// createTableQuery renders the fixed invoices schema: numeric columns are
// floating point, everything else is text.
func createTableQuery(d string) string {
	numeric := "REAL"
	if d == dialect.Postgres {
		numeric = "DOUBLE PRECISION"
	}
	return entsql.Dialect(d).String(func(b *entsql.Builder) {
		b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(TableInvoices).Wrap(func(b *entsql.Builder) {
			for i, col := range constants.InvoiceColumns {
				if i > 0 {
					b.Comma()
				}
				typ := "TEXT"
				if constants.IsNumericColumn(col) {
					typ = numeric
				}
				b.Ident(col).Pad().WriteString(typ)
			}
		})
	})
}

// insertQuery renders a single-row insert. Empty numbers are written as literal NULLs,
// so the argument count varies with the record.
func insertQuery(d string, inv entity.Invoice) (string, []any) {
	return entsql.Dialect(d).
		Insert(TableInvoices).
		Columns(constants.InvoiceColumns...).
		Values(inv.Values()...).
		Query()
}

func selectQuery(d string) (string, []any) {
	b := entsql.Dialect(d)
	return b.Select(constants.InvoiceColumns...).
		From(b.Table(TableInvoices)).
		Query()
}

// scanInvoice reads one row in InvoiceColumns order. Both database/sql and pgx
// rows accept sql.Scanner destinations.
func scanInvoice(scan func(dest ...any) error) (entity.Invoice, error) {
	text := make([]sql.NullString, len(constants.InvoiceColumns))
	nums := make([]sql.NullFloat64, len(constants.InvoiceColumns))
	dest := make([]any, len(constants.InvoiceColumns))
	for i, col := range constants.InvoiceColumns {
		if constants.IsNumericColumn(col) {
			dest[i] = &nums[i]
		} else {
			dest[i] = &text[i]
		}
	}
	if err := scan(dest...); err != nil {
		return entity.Invoice{}, err
	}

	fields := make(map[string]string, len(constants.InvoiceColumns))
	for i, col := range constants.InvoiceColumns {
		switch {
		case constants.IsNumericColumn(col) && nums[i].Valid:
			fields[col] = strconv.FormatFloat(nums[i].Float64, 'f', -1, 64)
		case !constants.IsNumericColumn(col):
			fields[col] = text[i].String
		}
	}
	return entity.FromFields(fields), nil
}
