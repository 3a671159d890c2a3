package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders what a scenario observed as stable text, one block per
// check.
func Snapshot(scenario *Scenario, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", scenario.Name)
	for _, obs := range result.Observations {
		fmt.Fprintf(&b, "\nuser: %s\n", obs.User)
		if obs.Visible != nil {
			fmt.Fprintf(&b, "  visible: %s\n", formatList(obs.Visible))
		}
		for _, v := range obs.CanRead {
			fmt.Fprintf(&b, "  can_read %s: %t\n", v.Document, v.Readable)
		}
		for _, f := range obs.Fetch {
			fmt.Fprintf(&b, "  fetch %s: %s\n", f.Document, f.Outcome)
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario, fails the test on any check mismatch
// and compares the snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		t.Error(e)
	}
	AssertGolden(t, scenario, result)
	return nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario, result))
}
