package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/repokit/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Expectation that failed: ids, total or error
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpect compares a result against the scenario's expectations and
// records every mismatch on the result.
func checkExpect(s *Scenario, r *Result) {
	for _, err := range evaluate(s, r) {
		r.AddError(err.Error())
	}
}

func evaluate(s *Scenario, r *Result) []error {
	var errs []error
	want := s.Expect

	if want.Error != "" || r.ErrorCode != "" {
		if !strings.EqualFold(want.Error, r.ErrorCode) {
			errs = append(errs, &AssertionError{
				Type:     "error",
				Expected: orNone(strings.ToUpper(want.Error)),
				Actual:   orNone(r.ErrorCode),
			})
		}
		// the remaining expectations describe a successful query
		return errs
	}

	if want.IDs != nil {
		if err := assertIDs(want.IDs, r.IDs(s.idField())); err != nil {
			errs = append(errs, err)
		}
	}

	if want.Total != nil && *want.Total != r.Total {
		errs = append(errs, &AssertionError{
			Type:     "total",
			Expected: fmt.Sprint(*want.Total),
			Actual:   fmt.Sprint(r.Total),
		})
	}
	return errs
}

// assertIDs compares identities by their canonical JSON form, so an int
// read from YAML equals the int64 a backend returns.
func assertIDs(expected, actual []any) error {
	exp, err := canonicalIDs(expected)
	if err != nil {
		return fmt.Errorf("expected ids: %w", err)
	}
	act, err := canonicalIDs(actual)
	if err != nil {
		return fmt.Errorf("actual ids: %w", err)
	}
	if exp != act {
		return &AssertionError{Type: "ids", Expected: exp, Actual: act}
	}
	return nil
}

func canonicalIDs(ids []any) (string, error) {
	v, err := ir.FromGo(ids)
	if err != nil {
		return "", err
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func orNone(s string) string {
	if s == "" {
		return "no error"
	}
	return s
}
