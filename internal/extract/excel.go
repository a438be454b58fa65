package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel returns one raw paragraph per non-empty spreadsheet row, cells
// joined by single spaces, in sheet then row order.
func extractExcel(content []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var paragraphs []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			text := strings.TrimSpace(strings.Join(row, " "))
			if text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	}
	return paragraphs, nil
}
