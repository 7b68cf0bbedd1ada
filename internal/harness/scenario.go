package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repoerr"
	"github.com/roach88/repokit/internal/softdelete"
)

// Scenario defines a conformance scenario.
// A scenario seeds a collection, applies optional mutation steps and runs
// one query. Every backend must produce the same result for it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Collection is the collection (or table) name. Defaults to "records".
	Collection string `yaml:"collection,omitempty"`

	// IDField is the identity field. Defaults to "id".
	IDField string `yaml:"id_field,omitempty"`

	// Seed records are inserted before anything else. Each must carry an
	// identity.
	Seed []map[string]any `yaml:"seed"`

	// Steps run in order after seeding.
	Steps []Step `yaml:"steps,omitempty"`

	// SoftDelete enables the overlay for every step and the query.
	SoftDelete *SoftDelete `yaml:"soft_delete,omitempty"`

	// Query is a query descriptor in wire form.
	Query map[string]any `yaml:"query,omitempty"`

	// Page overrides any page request in Query.
	Page *Page `yaml:"page,omitempty"`

	Expect Expect `yaml:"expect"`

	query queryir.Query
}

// Step is one mutation. Exactly one of its operations is set.
type Step struct {
	Insert      []map[string]any `yaml:"insert,omitempty"`
	Update      *UpdateStep      `yaml:"update,omitempty"`
	DeleteWhere map[string]any   `yaml:"delete_where,omitempty"`

	// Affected is the expected number of updated or deleted records.
	Affected *int64 `yaml:"affected,omitempty"`

	update      updatePlan
	deleteQuery queryir.Query
}

// UpdateStep sets and increments fields on the records matching Query.
type UpdateStep struct {
	Query map[string]any `yaml:"query"`
	Set   map[string]any `yaml:"set,omitempty"`
	Inc   map[string]any `yaml:"inc,omitempty"`
}

type updatePlan struct {
	query queryir.Query
	set   []assignment
	inc   []assignment
}

type assignment struct {
	field string
	value ir.IRValue
}

type SoftDelete struct {
	Field           string `yaml:"field"`
	NotDeletedValue any    `yaml:"not_deleted_value"`
}

type Page struct {
	Index int `yaml:"index"`
	Size  int `yaml:"size"`
}

// Expect holds the expected outcome of the query. Unset fields are not
// checked.
type Expect struct {
	// IDs lists the identities of the returned records, in order.
	IDs []any `yaml:"ids,omitempty"`

	// Total is the expected page total.
	Total *int64 `yaml:"total,omitempty"`

	// Error is the expected error code, e.g. VALIDATION.
	Error string `yaml:"error,omitempty"`
}

func (s *Scenario) collection() string {
	if s.Collection == "" {
		return "records"
	}
	return s.Collection
}

func (s *Scenario) idField() string {
	if s.IDField == "" {
		return "id"
	}
	return s.IDField
}

func (s *Scenario) policy() softdelete.Policy {
	if s.SoftDelete == nil {
		return softdelete.Disabled()
	}
	sentinel, _ := ir.FromGo(s.SoftDelete.NotDeletedValue)
	return softdelete.Policy{Enabled: true, Field: s.SoftDelete.Field, NotDeletedValue: sentinel}
}

func (s *Scenario) pageRequest() *queryir.PageRequest {
	if s.Page == nil {
		return nil
	}
	return queryir.NewPageRequest(s.Page.Index, s.Page.Size)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := map[string]string{}
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(p), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(p)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and decodes the
// embedded query descriptors.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	for i, r := range s.Seed {
		if v, ok := r[s.idField()]; !ok || v == nil {
			return fmt.Errorf("seed[%d]: %s is required", i, s.idField())
		}
	}

	if s.SoftDelete != nil {
		if s.SoftDelete.Field == "" {
			return fmt.Errorf("soft_delete: field is required")
		}
		if _, err := ir.FromGo(s.SoftDelete.NotDeletedValue); err != nil {
			return fmt.Errorf("soft_delete: %w", err)
		}
	}

	for i := range s.Steps {
		if err := validateStep(&s.Steps[i]); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	q, err := decodeQuery(s.Query)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	s.query = q

	if s.Expect.IDs == nil && s.Expect.Total == nil && s.Expect.Error == "" {
		return fmt.Errorf("expect: at least one of ids, total or error is required")
	}
	if s.Expect.Error != "" && !knownCode(s.Expect.Error) {
		return fmt.Errorf("expect: unknown error code %q", s.Expect.Error)
	}
	return nil
}

func validateStep(st *Step) error {
	set := 0
	if st.Insert != nil {
		set++
	}
	if st.Update != nil {
		set++
	}
	if st.DeleteWhere != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of insert, update or delete_where is required")
	}

	switch {
	case st.Update != nil:
		q, err := decodeQuery(st.Update.Query)
		if err != nil {
			return fmt.Errorf("update.query: %w", err)
		}
		setOps, err := assignments(st.Update.Set)
		if err != nil {
			return fmt.Errorf("update.set: %w", err)
		}
		inc, err := assignments(st.Update.Inc)
		if err != nil {
			return fmt.Errorf("update.inc: %w", err)
		}
		st.update = updatePlan{query: q, set: setOps, inc: inc}
	case st.DeleteWhere != nil:
		q, err := decodeQuery(st.DeleteWhere)
		if err != nil {
			return fmt.Errorf("delete_where: %w", err)
		}
		st.deleteQuery = q
	}
	if st.Insert != nil && st.Affected != nil {
		return fmt.Errorf("affected does not apply to insert")
	}
	return nil
}

// decodeQuery converts a YAML query map to a descriptor. The descriptor is
// not validated here; validation errors surface from the executor.
func decodeQuery(m map[string]any) (queryir.Query, error) {
	if len(m) == 0 {
		return queryir.Query{}, nil
	}
	v, err := ir.FromGo(m)
	if err != nil {
		return queryir.Query{}, err
	}
	return queryir.DecodeQuery(v)
}

// assignments returns the map's entries sorted by field.
func assignments(m map[string]any) ([]assignment, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]assignment, 0, len(keys))
	for _, k := range keys {
		v, err := ir.FromGo(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out = append(out, assignment{field: k, value: v})
	}
	return out, nil
}

func knownCode(code string) bool {
	switch repoerr.Code(strings.ToUpper(code)) {
	case repoerr.CodeValidation, repoerr.CodeStorageFailure, repoerr.CodeConcurrencyConflict, repoerr.CodeNotFound:
		return true
	}
	return false
}
