package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type ExcelExporter struct {
	OutputDir string
}

func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{OutputDir: outputDir}
}

// Export writes a workbook with a dashboard sheet and one sheet per project.
// It returns the path of the written file.
func (e *ExcelExporter) Export(rows []Row, day string) (string, error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(e.OutputDir, fmt.Sprintf("devtimer_%s.xlsx", day))

	f := excelize.NewFile()
	defer f.Close()

	projectRows := make(map[string][]Row)
	projectNames := []string{}

	for _, row := range rows {
		if _, ok := projectRows[row.Project]; !ok {
			projectNames = append(projectNames, row.Project)
		}
		projectRows[row.Project] = append(projectRows[row.Project], row)
	}

	sort.Strings(projectNames)

	if err := e.createDashboardSheet(f, "Dashboard", rows, day); err != nil {
		return "", fmt.Errorf("failed to create dashboard: %w", err)
	}

	used := make(map[string]bool)
	for _, project := range projectNames {
		sheetName := uniqueSheetName(sanitizeSheetName(project), used)
		if err := e.createProjectSheet(f, sheetName, projectRows[project]); err != nil {
			return "", fmt.Errorf("failed to create sheet for %s: %w", project, err)
		}
	}

	// the default sheet is replaced by the dashboard
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Dashboard"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("failed to save excel file: %w", err)
	}

	return filename, nil
}

func (e *ExcelExporter) createDashboardSheet(f *excelize.File, sheetName string, rows []Row, day string) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(headerStyleDef())
	if err != nil {
		return err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#B4C7E7"}, Pattern: 1},
		Font:   &excelize.Font{Bold: true},
		Border: thinBorder(),
	})
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Date:")
	f.SetCellValue(sheetName, "B1", day)

	headers := titled("project", "tickets", "commits", "time (s)", "time")
	for col, header := range headers {
		cell := cellName(col+1, 3)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 4
	commits, seconds := 0, 0
	for _, t := range TotalsByProjectTicket(rows) {
		f.SetCellValue(sheetName, cellName(1, row), t.Project)
		f.SetCellValue(sheetName, cellName(2, row), t.Tickets)
		f.SetCellValue(sheetName, cellName(3, row), t.Commits)
		f.SetCellValue(sheetName, cellName(4, row), t.Seconds)
		f.SetCellValue(sheetName, cellName(5, row), FormatSeconds(t.Seconds))
		commits += t.Commits
		seconds += t.Seconds
		row++
	}

	values := []any{"Total", "", commits, seconds, FormatSeconds(seconds)}
	for col, v := range values {
		cell := cellName(col+1, row)
		f.SetCellValue(sheetName, cell, v)
		f.SetCellStyle(sheetName, cell, cell, totalStyle)
	}

	f.SetColWidth(sheetName, "A", "A", 25)
	f.SetColWidth(sheetName, "B", "B", 30)
	f.SetColWidth(sheetName, "C", "E", 15)

	return nil
}

func (e *ExcelExporter) createProjectSheet(f *excelize.File, sheetName string, rows []Row) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(headerStyleDef())
	if err != nil {
		return err
	}

	headers := titled("#", "date", "author", "description", "tickets", "time (s)")
	for col, header := range headers {
		cell := cellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, r := range rows {
		row := i + 2
		f.SetCellValue(sheetName, cellName(1, row), i+1)
		f.SetCellValue(sheetName, cellName(2, row), r.Date)
		f.SetCellValue(sheetName, cellName(3, row), r.Author)
		f.SetCellValue(sheetName, cellName(4, row), r.Description)
		f.SetCellValue(sheetName, cellName(5, row), JoinTickets(r.Tickets))
		f.SetCellValue(sheetName, cellName(6, row), r.TimeSeconds)
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "B", 20)
	f.SetColWidth(sheetName, "C", "C", 20)
	f.SetColWidth(sheetName, "D", "D", 80)
	f.SetColWidth(sheetName, "E", "E", 20)
	f.SetColWidth(sheetName, "F", "F", 10)

	return f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func headerStyleDef() *excelize.Style {
	return &excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	}
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}
}

func titled(labels ...string) []string {
	caser := cases.Title(language.English)
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = caser.String(l)
	}
	return out
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, ":", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")

	if name == "" || strings.EqualFold(name, "Dashboard") {
		name = "Project " + name
	}

	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}

	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len(suffix) > 31 {
			base = base[:31-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
