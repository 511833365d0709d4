package report

import "fmt"

// MalformedCommitError reports a commit missing a required field.
// The commit is skipped; processing continues.
type MalformedCommitError struct {
	Commit Commit
	Field  string
}

func (e *MalformedCommitError) Error() string {
	return fmt.Sprintf("commit %s in %s: missing %s", commitLabel(e.Commit), e.Commit.Project, e.Field)
}

// UnparsableDateError reports a commit whose author date is missing or invalid.
type UnparsableDateError struct {
	Commit Commit
	Value  string
	Err    error
}

func (e *UnparsableDateError) Error() string {
	return fmt.Sprintf("commit %s in %s: unparsable author date %q: %v", commitLabel(e.Commit), e.Commit.Project, e.Value, e.Err)
}

func (e *UnparsableDateError) Unwrap() error {
	return e.Err
}

func commitLabel(c Commit) string {
	if c.Hash != "" {
		if len(c.Hash) > 8 {
			return c.Hash[:8]
		}
		return c.Hash
	}
	if c.Ref != "" {
		return c.Ref
	}
	return "<unknown>"
}
