package repository

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// csvLocks serializes writers of the same file inside this process.
var csvLocks sync.Map // path -> *sync.Mutex

func lockPath(path string) func() {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m, _ := csvLocks.LoadOrStore(abs, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AppendCSV appends inv as one row. The header row is written only when the
// file does not exist yet or is empty.
func AppendCSV(path string, inv entity.Invoice) error {
	unlock := lockPath(path)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv: %w", err)
	}

	var buf bytes.Buffer
	rows := []entity.Invoice{inv}
	if st.Size() == 0 {
		err = gocsv.Marshal(rows, &buf)
	} else {
		err = gocsv.MarshalWithoutHeaders(rows, &buf)
	}
	if err != nil {
		return fmt.Errorf("encode csv row: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append csv: %w", err)
	}
	return nil
}

// ReadCSV loads every row of the log. A missing or empty file yields no rows.
func ReadCSV(path string) ([]entity.Invoice, error) {
	unlock := lockPath(path)
	defer unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var out []entity.Invoice
	if err := gocsv.UnmarshalBytes(data, &out); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return out, nil
}

// WriteCSV replaces the whole log with invs (header included). The new file is
// written next to the old one and renamed over it.
func WriteCSV(path string, invs []entity.Invoice) error {
	unlock := lockPath(path)
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	if invs == nil {
		invs = []entity.Invoice{}
	}
	content, err := gocsv.MarshalBytes(invs)
	if err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".invoices-*.csv")
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
