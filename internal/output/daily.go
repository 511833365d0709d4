package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Afrawles/devtimer/internal/report"
)

var dailyHeaders = []string{"date", "project", "author", "description", "tickets", "time (s)"}

// Section is the printed block of one project on one day.
type Section struct {
	Project string       `json:"project" yaml:"project"`
	Date    string       `json:"date" yaml:"date"`
	Commits []CommitLine `json:"commits" yaml:"commits"`
	Total   int          `json:"total_seconds" yaml:"total_seconds"`
}

type CommitLine struct {
	Date        string   `json:"date" yaml:"date"`
	Author      string   `json:"author" yaml:"author"`
	Description string   `json:"description" yaml:"description"`
	Tickets     []string `json:"tickets" yaml:"tickets"`
	TimeSeconds int      `json:"time_seconds" yaml:"time_seconds"`
}

// Daily is the Renderable result of one devtimer run.
type Daily struct {
	Sections []Section `json:"reports" yaml:"reports"`
	Skipped  []string  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// NewDaily groups rows into sections by project and day, keeping row order.
func NewDaily(rows []report.Row, warnings []error) *Daily {
	d := &Daily{}
	index := make(map[[2]string]int)

	for _, row := range rows {
		key := [2]string{row.Project, row.Day}
		i, ok := index[key]
		if !ok {
			i = len(d.Sections)
			index[key] = i
			date := row.Day
			if !row.AuthoredAt.IsZero() {
				date = row.AuthoredAt.Format(report.ReportDayLayout)
			}
			d.Sections = append(d.Sections, Section{Project: row.Project, Date: date})
		}

		tickets := row.Tickets
		if tickets == nil {
			tickets = []string{}
		}
		s := &d.Sections[i]
		s.Commits = append(s.Commits, CommitLine{
			Date:        row.Date,
			Author:      row.Author,
			Description: row.Description,
			Tickets:     tickets,
			TimeSeconds: row.TimeSeconds,
		})
		s.Total += row.TimeSeconds
	}

	for _, w := range warnings {
		d.Skipped = append(d.Skipped, w.Error())
	}
	return d
}

func (d *Daily) RenderData() any {
	return d
}

func (d *Daily) RenderText(w io.Writer, colored bool) error {
	if len(d.Sections) == 0 {
		comment(w, colored, "No commits found")
	}

	for _, s := range d.Sections {
		comment(w, colored, "Project: %s", s.Project)
		comment(w, colored, "Date of report: %s", s.Date)
		comment(w, colored, "Amount of commits: %d", len(s.Commits))
		fmt.Fprintln(w)
		if err := writeTable(w, dailyHeaders, s.rows(), s.footer()); err != nil {
			return err
		}
	}

	if len(d.Skipped) > 0 {
		comment(w, colored, "Skipped %d commits:", len(d.Skipped))
		for _, reason := range d.Skipped {
			fmt.Fprintf(w, "  %s\n", reason)
		}
	}
	return nil
}

func (d *Daily) RenderMarkdown(w io.Writer) error {
	for _, s := range d.Sections {
		fmt.Fprintf(w, "## %s (%s)\n\n", s.Project, s.Date)
		fmt.Fprintf(w, "Amount of commits: %d\n\n", len(s.Commits))
		writeMarkdownTable(w, dailyHeaders, s.rows(), s.footer())
	}

	if len(d.Skipped) > 0 {
		fmt.Fprintf(w, "### Skipped commits\n\n")
		for _, reason := range d.Skipped {
			fmt.Fprintf(w, "- %s\n", reason)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (s Section) rows() [][]string {
	rows := make([][]string, 0, len(s.Commits))
	for _, c := range s.Commits {
		rows = append(rows, []string{
			c.Date,
			s.Project,
			c.Author,
			"- " + c.Description,
			report.JoinTickets(c.Tickets),
			strconv.Itoa(c.TimeSeconds),
		})
	}
	return rows
}

func (s Section) footer() []string {
	return []string{"", "", "", "", "total", strconv.Itoa(s.Total)}
}

// Summary compares commit time with the time Wakatime tracked per project.
type Summary struct {
	Date     string        `json:"date" yaml:"date"`
	Projects []SummaryLine `json:"projects" yaml:"projects"`
}

type SummaryLine struct {
	Project        string `json:"project" yaml:"project"`
	Commits        int    `json:"commits" yaml:"commits"`
	CommitSeconds  int    `json:"commit_seconds" yaml:"commit_seconds"`
	TrackedSeconds int    `json:"tracked_seconds" yaml:"tracked_seconds"`
}

func (s *Summary) table() *Table {
	t := &Table{
		Title:   "Summary for " + s.Date,
		Headers: []string{"project", "commits", "commit time", "tracked time"},
		Data:    s,
	}
	commits, committed, tracked := 0, 0, 0
	for _, p := range s.Projects {
		t.Rows = append(t.Rows, []string{
			p.Project,
			strconv.Itoa(p.Commits),
			report.FormatSeconds(p.CommitSeconds),
			report.FormatSeconds(p.TrackedSeconds),
		})
		commits += p.Commits
		committed += p.CommitSeconds
		tracked += p.TrackedSeconds
	}
	t.Footer = []string{"total", strconv.Itoa(commits), report.FormatSeconds(committed), report.FormatSeconds(tracked)}
	return t
}

func (s *Summary) RenderData() any { return s }

func (s *Summary) RenderText(w io.Writer, colored bool) error { return s.table().RenderText(w, colored) }

func (s *Summary) RenderMarkdown(w io.Writer) error { return s.table().RenderMarkdown(w) }
