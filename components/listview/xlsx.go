package listview

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SpreadsheetWriter renders export records into a spreadsheet.
type SpreadsheetWriter interface {
	WriteSpreadsheet(w io.Writer, headers []string, records [][]string) error
}

// ExcelWriter writes a single-sheet workbook with a bold header row, fills
// alternating by row parity, thin borders and widths sized to the longest
// line in each column.
type ExcelWriter struct {
	MinWidth float64
	MaxWidth float64
}

const excelSheet = "Sheet1"

// WriteSpreadsheet implements SpreadsheetWriter.
func (x ExcelWriter) WriteSpreadsheet(w io.Writer, headers []string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newExcelStyles(f)
	if err != nil {
		return err
	}
	for col, header := range headers {
		if err := setCell(f, col, 0, header, styles.header); err != nil {
			return err
		}
	}
	for r, record := range records {
		style := styles.odd
		if r%2 == 0 {
			style = styles.even
		}
		for col := range headers {
			value := ""
			if col < len(record) {
				value = record[col]
			}
			if err := setCell(f, col, r+1, value, style); err != nil {
				return err
			}
		}
	}
	lo, hi := x.bounds()
	for col, width := range columnWidths(headers, records, lo, hi) {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(excelSheet, name, name, width); err != nil {
			return fmt.Errorf("listview: set column width: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("listview: write workbook: %w", err)
	}
	return nil
}

func (x ExcelWriter) bounds() (float64, float64) {
	lo, hi := x.MinWidth, x.MaxWidth
	if lo <= 0 {
		lo = 8
	}
	if hi <= 0 {
		hi = 60
	}
	return lo, hi
}

type excelStyles struct {
	header, even, odd int
}

func newExcelStyles(f *excelize.File) (excelStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "#BFBFBF", Style: 1},
		{Type: "top", Color: "#BFBFBF", Style: 1},
		{Type: "right", Color: "#BFBFBF", Style: 1},
		{Type: "bottom", Color: "#BFBFBF", Style: 1},
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	var (
		out excelStyles
		err error
	)
	out.header, err = f.NewStyle(&excelize.Style{Border: border, Fill: fill("#D9E1F2"), Font: &excelize.Font{Bold: true}})
	if err != nil {
		return out, fmt.Errorf("listview: header style: %w", err)
	}
	out.even, err = f.NewStyle(&excelize.Style{Border: border, Fill: fill("#FFFFFF")})
	if err != nil {
		return out, fmt.Errorf("listview: row style: %w", err)
	}
	out.odd, err = f.NewStyle(&excelize.Style{Border: border, Fill: fill("#F2F2F2")})
	if err != nil {
		return out, fmt.Errorf("listview: row style: %w", err)
	}
	return out, nil
}

func setCell(f *excelize.File, col, row int, value string, style int) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(excelSheet, cell, value); err != nil {
		return fmt.Errorf("listview: set cell %s: %w", cell, err)
	}
	return f.SetCellStyle(excelSheet, cell, cell, style)
}

func columnWidths(headers []string, records [][]string, lo, hi float64) []float64 {
	widths := make([]float64, len(headers))
	for col, header := range headers {
		longest := longestLine(header)
		for _, record := range records {
			if col < len(record) {
				if n := longestLine(record[col]); n > longest {
					longest = n
				}
			}
		}
		width := float64(longest + 2)
		if width < lo {
			width = lo
		}
		if width > hi {
			width = hi
		}
		widths[col] = width
	}
	return widths
}

func longestLine(value string) int {
	longest := 0
	for _, line := range strings.Split(value, "\n") {
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	return longest
}
