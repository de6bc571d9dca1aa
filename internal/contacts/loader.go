package contacts

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"voice-campaigns-go/internal/types"
)

// Load reads a contact workbook. The phone column is detected by header
// heuristics; every other non-empty column lands in CalleeInfo keyed by its
// header. Rows without a usable phone number are skipped quietly.
func Load(path string) ([]types.Contact, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	header := rows[0]
	phoneIdx := -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(l, "phone") || strings.Contains(l, "mobile") || strings.Contains(l, "number") {
			phoneIdx = i
			break
		}
	}
	// fallback: first column
	if phoneIdx == -1 {
		phoneIdx = 0
	}

	var out []types.Contact
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if phoneIdx >= len(row) {
			continue
		}
		phone := strings.TrimSpace(row[phoneIdx])
		if phone == "" {
			continue
		}
		info := map[string]string{}
		for j, cell := range row {
			if j == phoneIdx {
				continue
			}
			if j >= len(header) {
				break
			}
			key := strings.TrimSpace(header[j])
			value := strings.TrimSpace(cell)
			if key != "" && value != "" {
				info[key] = value
			}
		}
		out = append(out, types.Contact{PhoneNumber: phone, CalleeInfo: info})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable contact rows")
	}
	return out, nil
}
