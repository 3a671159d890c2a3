package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an observation does not match its check.
type AssertionError struct {
	User     string
	Type     string // visible, can_read or fetch
	Document string // empty for visible
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s for %s", e.Type, e.User)
	if e.Document != "" {
		fmt.Fprintf(&buf, " on %s", e.Document)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// compare returns one AssertionError per mismatch between check and obs.
func compare(check Check, obs Observation) []*AssertionError {
	var errs []*AssertionError

	if check.Visible != nil && !slices.Equal(check.Visible, obs.Visible) {
		errs = append(errs, &AssertionError{
			User:     check.User,
			Type:     "visible",
			Expected: formatList(check.Visible),
			Actual:   formatList(obs.Visible),
		})
	}

	for _, v := range obs.CanRead {
		if want := check.CanRead[v.Document]; want != v.Readable {
			errs = append(errs, &AssertionError{
				User:     check.User,
				Type:     "can_read",
				Document: v.Document,
				Expected: fmt.Sprint(want),
				Actual:   fmt.Sprint(v.Readable),
			})
		}
	}

	for _, f := range obs.Fetch {
		if want := check.Fetch[f.Document]; !strings.EqualFold(want, f.Outcome) {
			errs = append(errs, &AssertionError{
				User:     check.User,
				Type:     "fetch",
				Document: f.Document,
				Expected: want,
				Actual:   f.Outcome,
			})
		}
	}
	return errs
}

func formatList(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
