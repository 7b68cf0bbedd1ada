package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/repokit/internal/ir"
)

// Snapshot returns the canonical JSON form of a result: the scenario name
// plus either the error code or the records and total. Null fields are
// dropped because an absent field and a NULL column are the same thing to
// a query.
//
// The backend is not part of the snapshot, so every backend is compared
// against the same golden file.
func (r *Result) Snapshot() ([]byte, error) {
	snap := map[string]any{"scenario": r.Scenario}
	if r.ErrorCode != "" {
		snap["error"] = r.ErrorCode
		return ir.MarshalCanonical(snap)
	}

	recs := make([]any, len(r.Records))
	for i, rec := range r.Records {
		m := make(map[string]any, len(rec))
		for k, v := range rec {
			if v != nil {
				m[k] = v
			}
		}
		recs[i] = m
	}
	snap["records"] = recs
	snap["total"] = r.Total
	return ir.MarshalCanonical(snap)
}

// RunWithGolden executes a scenario and compares the result against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the result doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, backend Backend) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, backend)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := result.Snapshot()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
