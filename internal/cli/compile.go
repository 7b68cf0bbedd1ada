package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/querysql"
	"github.com/roach88/repokit/internal/repoerr"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*QueryOptions
	Columns []string // table columns, needed by exclude projections
}

// CompilationResult holds the statements a query compiles to.
type CompilationResult struct {
	Fingerprint string             `json:"fingerprint"`
	Find        querysql.Statement `json:"find"`
	Count       querysql.Statement `json:"count"`
}

func (r CompilationResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fingerprint: %s\n", r.Fingerprint)
	fmt.Fprintf(&b, "find:  %s\n       args %v\n", r.Find.SQL, r.Find.Args)
	fmt.Fprintf(&b, "count: %s\n       args %v", r.Count.SQL, r.Count.Args)
	return b.String()
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{QueryOptions: &QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "compile <collection>",
		Short: "Print the SQL a query compiles to",
		Long: `Compile a query descriptor to SQLite statements without running it.

The configured soft-delete policy is applied and range predicates are
lowered exactly as the executor does before a query reaches the store.

Example:
  repokit compile users --filter adults.json --size 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, opts.QueryOptions, true)
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "table columns (for exclude projections)")

	return cmd
}

func runCompile(opts *CompileOptions, collection string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	q, err := readQuery(opts.Filter, cmd.InOrStdin())
	if err != nil {
		return f.Fail("invalid query", err)
	}
	if req := opts.pageRequest(); req != nil {
		q.Page = req
	}
	if err := queryir.Validate(q); err != nil {
		return f.Fail("invalid query", err)
	}
	q = queryir.LowerQuery(cfg.Policy().ApplyQuery(q))

	fp, err := queryir.Fingerprint(q)
	if err != nil {
		return f.Fail("fingerprint failed", err)
	}

	c := querysql.Compiler{Table: collection, IDField: cfg.IDField(collection), Columns: opts.Columns}
	var limit, offset int64
	if q.Page != nil {
		limit, offset = int64(q.Page.Size), q.Page.Offset()
	}
	find, err := c.Find(q, limit, offset)
	if err != nil {
		return f.Fail("compile failed", asValidation(err))
	}
	count, err := c.Count(q.Filter)
	if err != nil {
		return f.Fail("compile failed", asValidation(err))
	}

	return f.Success(CompilationResult{Fingerprint: fp, Find: find, Count: count})
}

// asValidation classifies compile errors without a code as validation
// errors, as the executor does.
func asValidation(err error) error {
	if repoerr.CodeOf(err) != "" {
		return err
	}
	return &repoerr.Error{Code: repoerr.CodeValidation, Op: "compile", Err: err}
}
