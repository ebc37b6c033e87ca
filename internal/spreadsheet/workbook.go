// Package spreadsheet renders report views as an xlsx workbook.
package spreadsheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ColumnKind selects the cell format of a column.
type ColumnKind int

const (
	Text ColumnKind = iota
	Number
	Integer
)

// Column is a fixed header with its display width and format.
type Column struct {
	Header string
	Width  float64
	Kind   ColumnKind
}

// Sheet is one named tab. Rows hold one value per column; nil leaves the cell empty.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Workbook is an ordered list of sheets.
type Workbook struct {
	Sheets []Sheet
}

// WriteFile renders the workbook into a temporary file next to path and
// renames it into place, so path never holds a partial workbook.
func (wb Workbook) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".render-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := wb.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Write renders the workbook to w.
func (wb Workbook) Write(w io.Writer) error {
	f, err := wb.render()
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (wb Workbook) render() (*excelize.File, error) {
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, sheet := range wb.Sheets {
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), sheet.Name)
		} else {
			_, err = f.NewSheet(sheet.Name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, styles); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %q: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

type styles struct {
	header  int
	number  int
	integer int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	numFmt := "#,##0.00"

	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D7E4BC"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    border,
	}); err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	if s.number, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt, Border: border}); err != nil {
		return s, fmt.Errorf("failed to create number style: %w", err)
	}
	if s.integer, err = f.NewStyle(&excelize.Style{NumFmt: 1, Border: border}); err != nil {
		return s, fmt.Errorf("failed to create integer style: %w", err)
	}
	return s, nil
}

func writeSheet(f *excelize.File, sheet Sheet, st styles) error {
	headers := make([]any, len(sheet.Columns))
	for i, c := range sheet.Columns {
		headers[i] = c.Header
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(sheet.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", last, st.header); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return err
		}
	}

	for i, c := range sheet.Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if c.Width > 0 {
			if err := f.SetColWidth(sheet.Name, col, col, c.Width); err != nil {
				return err
			}
		}
		if len(sheet.Rows) == 0 {
			continue
		}
		style := 0
		switch c.Kind {
		case Number:
			style = st.number
		case Integer:
			style = st.integer
		}
		if style == 0 {
			continue
		}
		if err := f.SetCellStyle(sheet.Name, col+"2", fmt.Sprintf("%s%d", col, len(sheet.Rows)+1), style); err != nil {
			return err
		}
	}
	return nil
}

// ReadSheet returns the raw cell values of a sheet, header row included.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	return rows, nil
}

// ReadSheetNames returns the sheet names of a workbook file in order.
func ReadSheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
