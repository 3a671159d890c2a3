package harness

// Observation is what one check actually saw. Only the parts the check
// asked about are filled in.
type Observation struct {
	User string

	// Visible is nil when the check did not ask for the visible list.
	Visible []string

	CanRead []Verdict
	Fetch   []FetchOutcome
}

// Verdict is the CanRead answer for one document.
type Verdict struct {
	Document string
	Readable bool
}

// FetchOutcome is FetchOK or the request failure code of one fetch.
type FetchOutcome struct {
	Document string
	Outcome  string
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every check matched.
	Pass bool `json:"pass"`

	// Observations holds one entry per check, in scenario order.
	Observations []Observation `json:"observations"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
