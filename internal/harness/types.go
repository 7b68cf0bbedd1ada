package harness

import "github.com/roach88/repokit/internal/repository"

// Result is the outcome of running a scenario against one backend.
type Result struct {
	Scenario string  `json:"scenario"`
	Backend  Backend `json:"backend"`

	// Pass indicates overall test success.
	// True if every expectation matched.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Records is the query's page content.
	Records []repository.Record `json:"records,omitempty"`

	// Total is the page total reported by the executor.
	Total int64 `json:"total"`

	// ErrorCode is set when the query failed with a classified error.
	ErrorCode string `json:"error_code,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string, backend Backend) *Result {
	return &Result{
		Scenario: scenario,
		Backend:  backend,
		Pass:     true,
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// IDs returns the identities of the returned records, in order.
func (r *Result) IDs(idField string) []any {
	ids := make([]any, len(r.Records))
	for i, rec := range r.Records {
		ids[i] = rec[idField]
	}
	return ids
}
