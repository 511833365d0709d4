package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type CSVExporter struct {
	OutputDir string
}

func NewCSVExporter(outputDir string) *CSVExporter {
	return &CSVExporter{OutputDir: outputDir}
}

// Export writes the commit rows and a per-project/ticket dashboard as two
// CSV files named after the day.
func (e *CSVExporter) Export(rows []Row, day string) error {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := e.exportRowList(rows, day); err != nil {
		return fmt.Errorf("failed to export commit list: %w", err)
	}

	if err := e.exportDashboard(rows, day); err != nil {
		return fmt.Errorf("failed to export dashboard: %w", err)
	}

	return nil
}

func (e *CSVExporter) exportRowList(rows []Row, day string) error {
	filename := filepath.Join(e.OutputDir, fmt.Sprintf("devtimer_%s_commits.csv", day))
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return writeRowList(file, rows)
}

func writeRowList(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	header := []string{
		"#",
		"Date",
		"Project",
		"Author",
		"Description",
		"Tickets",
		"Time (s)",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, row := range rows {
		record := []string{
			strconv.Itoa(i + 1),
			row.Date,
			row.Project,
			row.Author,
			row.Description,
			JoinTickets(row.Tickets),
			strconv.Itoa(row.TimeSeconds),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (e *CSVExporter) exportDashboard(rows []Row, day string) error {
	filename := filepath.Join(e.OutputDir, fmt.Sprintf("devtimer_%s_dashboard.csv", day))
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return writeDashboard(file, rows, day)
}

func writeDashboard(w io.Writer, rows []Row, day string) error {
	writer := csv.NewWriter(w)
	totals := TotalsByProjectTicket(rows)

	if err := writer.Write([]string{"Date:", day}); err != nil {
		return err
	}
	if err := writer.Write([]string{""}); err != nil {
		return err
	}
	if err := writer.Write([]string{"Project", "Tickets", "Commits", "Time (s)"}); err != nil {
		return err
	}

	grand := 0
	for _, t := range totals {
		record := []string{t.Project, t.Tickets, strconv.Itoa(t.Commits), strconv.Itoa(t.Seconds)}
		if err := writer.Write(record); err != nil {
			return err
		}
		grand += t.Seconds
	}

	if err := writer.Write([]string{"Total", "", strconv.Itoa(len(rows)), strconv.Itoa(grand)}); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

// TicketTotal is the time spent on one ticket set of a project.
type TicketTotal struct {
	Project string
	Tickets string
	Commits int
	Seconds int
}

// TotalsByProjectTicket sums row time per project and ticket set, sorted by
// project then tickets.
func TotalsByProjectTicket(rows []Row) []TicketTotal {
	index := make(map[[2]string]int)
	var totals []TicketTotal

	for _, row := range rows {
		key := [2]string{row.Project, JoinTickets(row.Tickets)}
		i, ok := index[key]
		if !ok {
			i = len(totals)
			index[key] = i
			totals = append(totals, TicketTotal{Project: key[0], Tickets: key[1]})
		}
		totals[i].Commits++
		totals[i].Seconds += row.TimeSeconds
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Project != totals[j].Project {
			return totals[i].Project < totals[j].Project
		}
		return totals[i].Tickets < totals[j].Tickets
	})
	return totals
}

// JoinTickets renders a ticket set as a single cell.
func JoinTickets(tickets []string) string {
	return strings.Join(tickets, ", ")
}
