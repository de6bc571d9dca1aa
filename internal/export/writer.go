package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"voice-campaigns-go/internal/types"
)

var headers = []string{
	"Phone Number", "Status", "Call ID", "Transcript",
	"Verdict", "Confidence", "Summary", "Call Quality",
}

// Write dumps final campaign results to a workbook at path. CalleeInfo keys
// found across the results become extra columns after the fixed set.
func Write(path string, results []types.CallResult) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	extras := infoColumns(results)

	all := append(append([]string{}, headers...), extras...)
	for col, h := range all {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, res := range results {
		row := []interface{}{
			res.PhoneNumber,
			string(res.CallStatus),
			res.CallID,
			res.Transcript,
		}
		if res.Analytics != nil {
			row = append(row, res.Analytics.Verdict, res.Analytics.ConfidenceScore,
				res.Analytics.Summary, res.Analytics.CallQuality)
		} else {
			row = append(row, "", "", "", "")
		}
		for _, key := range extras {
			row = append(row, res.CalleeInfo[key])
		}
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func infoColumns(results []types.CallResult) []string {
	seen := map[string]bool{}
	for _, res := range results {
		for key := range res.CalleeInfo {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
