// Package harness runs access-control scenarios against the real services.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	users:
//	  - name: alice
//	    role: basic
//	groups:
//	  - name: finance
//	    members: [alice]
//	documents:
//	  - filename: report.pdf
//	    posted_by: alice
//	    content: "..."
//	permits:
//	  - document: report.pdf
//	    group: finance
//	revoke:
//	  - membership: { group: finance, user: alice }
//	  - permit: { document: report.pdf, group: finance }
//	expect:
//	  - user: alice
//	    visible: [report.pdf]
//	    can_read: { report.pdf: true }
//	    fetch: { report.pdf: ok }
//
// Everything is referred to by name; the harness maps names to the ids the
// services generate.
//
// # Checks
//
//   - visible: the exact list of filenames ListVisible returns, in order
//   - can_read: the CanRead verdict per filename
//   - fetch: "ok" or the request failure code (FORBIDDEN, NOT_FOUND) that
//     fetching the document by id yields
//
// # Deterministic Testing
//
// Each scenario runs on a fresh in-memory database with sequential ids and
// a stepping clock, so the rendered snapshot is identical across runs and
// can be compared with a golden file.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/group_grant.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
