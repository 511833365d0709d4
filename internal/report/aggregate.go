package report

import "time"

type groupKey struct {
	project string
	day     string
}

// Aggregate groups commits by project and calendar day of their author date.
// Groups keep input order, both for their members and among themselves.
// Commits with a missing or unparsable author date are left out and returned
// as *UnparsableDateError warnings.
func Aggregate(commits []Commit) ([]ProjectDayReport, []error) {
	var reports []ProjectDayReport
	var warnings []error
	index := make(map[groupKey]int)

	for _, c := range commits {
		authored, err := ParseAuthorDate(c.AuthorDate)
		if err != nil {
			warnings = append(warnings, &UnparsableDateError{Commit: c, Value: c.AuthorDate, Err: err})
			continue
		}

		key := groupKey{project: c.Project, day: authored.Format(DayLayout)}
		i, ok := index[key]
		if !ok {
			i = len(reports)
			index[key] = i
			reports = append(reports, ProjectDayReport{
				Project: c.Project,
				Date:    time.Date(authored.Year(), authored.Month(), authored.Day(), 0, 0, 0, 0, authored.Location()),
			})
		}

		reports[i].Commits = append(reports[i].Commits, c)
		reports[i].authored = append(reports[i].authored, authored)
	}

	return reports, warnings
}
