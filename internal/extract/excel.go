package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func openExcel(content []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	return f, nil
}

func extractExcel(content []byte) (string, error) {
	f, err := openExcel(content)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// excelTitles returns the first non-empty cell of each row across all sheets.
func excelTitles(content []byte) ([]string, error) {
	f, err := openExcel(content)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var titles []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for i, row := range rows {
			cell := firstCell(row)
			if cell == "" {
				continue
			}
			if i == 0 && strings.EqualFold(cell, "title") {
				continue
			}
			titles = append(titles, cell)
		}
	}
	return titles, nil
}

func firstCell(row []string) string {
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}
