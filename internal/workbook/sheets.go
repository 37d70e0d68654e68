package workbook

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ListSheets returns the sheet names of an XLSX workbook in file order.
func ListSheets(content []byte) ([]string, error) {
	f, err := xlsx.OpenBinary(content)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: open")
	}

	names := make([]string, 0, len(f.Sheets))
	for _, s := range f.Sheets {
		names = append(names, s.Name)
	}
	return names, nil
}

// RequireSheet fails when the workbook has no sheet called name.
func RequireSheet(content []byte, name string) error {
	names, err := ListSheets(content)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	return eris.Errorf("workbook: sheet %q not found (sheets: %s)", name, strings.Join(names, ", "))
}

// Suggest picks the 7-day Raleigh market sheet the optimizer was built
// around, or "" when no sheet looks like it.
func Suggest(names []string) string {
	for _, n := range names {
		lower := strings.ToLower(n)
		if strings.Contains(lower, "raleigh") && strings.Contains(lower, "7") {
			return n
		}
	}
	return ""
}
