package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []Row {
	return []Row{
		{Date: "05-03-2024 10:00:00", Day: "2024-03-05", Project: "shop", Author: "Alice", Description: "fix", Tickets: []string{"ABC-42"}, TimeSeconds: 1800},
		{Date: "05-03-2024 11:00:00", Day: "2024-03-05", Project: "shop", Author: "Bob", Description: "tidy", TimeSeconds: 600},
		{Date: "05-03-2024 12:00:00", Day: "2024-03-05", Project: "api/v2", Author: "Alice", Description: "more", Tickets: []string{"ABC-42"}, TimeSeconds: 60},
	}
}

func TestCSVExporter_Export(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, NewCSVExporter(dir).Export(sampleRows(), "2024-03-05"))

	f, err := os.Open(filepath.Join(dir, "devtimer_2024-03-05_commits.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"1", "05-03-2024 10:00:00", "shop", "Alice", "fix", "ABC-42", "1800"}, records[1])

	dash, err := os.Open(filepath.Join(dir, "devtimer_2024-03-05_dashboard.csv"))
	require.NoError(t, err)
	defer dash.Close()

	reader := csv.NewReader(dash)
	reader.FieldsPerRecord = -1
	records, err = reader.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Total", "", "3", "2460"}, records[len(records)-1])
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVWriters_ReportFlushErrors(t *testing.T) {
	assert.ErrorContains(t, writeRowList(failingWriter{}, sampleRows()), "disk full")
	assert.ErrorContains(t, writeDashboard(failingWriter{}, sampleRows(), "2024-03-05"), "disk full")
}

func TestTotalsByProjectTicket(t *testing.T) {
	totals := TotalsByProjectTicket(sampleRows())
	require.Len(t, totals, 3)
	assert.Equal(t, TicketTotal{Project: "api/v2", Tickets: "ABC-42", Commits: 1, Seconds: 60}, totals[0])
	assert.Equal(t, TicketTotal{Project: "shop", Tickets: "", Commits: 1, Seconds: 600}, totals[1])
	assert.Equal(t, TicketTotal{Project: "shop", Tickets: "ABC-42", Commits: 1, Seconds: 1800}, totals[2])
}

func TestExcelExporter_Export(t *testing.T) {
	dir := t.TempDir()

	path, err := NewExcelExporter(dir).Export(sampleRows(), "2024-03-05")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Dashboard", "api-v2", "shop"}, f.GetSheetList())

	author, err := f.GetCellValue("shop", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Alice", author)

	header, err := f.GetCellValue("Dashboard", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Project", header)
}

func TestJSONExporter_Export(t *testing.T) {
	dir := t.TempDir()
	rows := sampleRows()

	require.NoError(t, NewJSONExporter(dir).Export(rows, Statistics(nil, rows, 0), "out.json"))

	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)

	var decoded struct {
		Rows  []Row          `json:"rows"`
		Stats map[string]any `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Rows, 3)
	assert.EqualValues(t, 2460, decoded.Stats["total_seconds"])
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "a-b", sanitizeSheetName("a/b"))
	assert.Equal(t, "Project Dashboard", sanitizeSheetName("dashboard"))
	assert.Len(t, []rune(sanitizeSheetName("012345678901234567890123456789XYZ")), 31)

	used := map[string]bool{}
	assert.Equal(t, "x", uniqueSheetName("x", used))
	assert.Equal(t, "x (2)", uniqueSheetName("x", used))
}
