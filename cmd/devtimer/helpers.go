package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Afrawles/devtimer/internal/report"
)

// parseCommaList splits a comma-separated string and trims whitespace
func parseCommaList(input string) []string {
	if input == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseDay resolves today, yesterday or a YYYY-MM-DD date to midnight in
// now's location.
func parseDay(input string, now time.Time) (time.Time, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "today":
		return midnight, nil
	case "yesterday":
		return midnight.AddDate(0, 0, -1), nil
	}

	day, err := time.ParseInLocation(report.DayLayout, strings.TrimSpace(input), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use today, yesterday or YYYY-MM-DD", input)
	}
	return day, nil
}

// parseDayArgs reads the optional [date] [project] positional arguments.
func parseDayArgs(args []string, now time.Time) (time.Time, []string, error) {
	var date string
	var projects []string

	if len(args) > 0 {
		date = args[0]
	}
	if len(args) > 1 {
		projects = parseCommaList(args[1])
	}

	day, err := parseDay(date, now)
	if err != nil {
		return time.Time{}, nil, err
	}
	return day, projects, nil
}
