package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/repokit/internal/repository"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	Data string // JSON object or array
	File string // file holding Data, "-" for stdin
}

// InsertResult is the payload of the insert command.
type InsertResult struct {
	Inserted []repository.Record `json:"inserted"`
}

func (r InsertResult) String() string {
	return fmt.Sprintf("inserted %d record(s)", len(r.Inserted))
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert <collection>",
		Short: "Insert records",
		Long: `Insert one JSON object or an array of objects.

Example:
  repokit insert users --data '{"id":1,"name":"ann","age":31}'
  repokit insert users --file people.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "JSON object or array of objects")
	cmd.Flags().StringVar(&opts.File, "file", "", `file holding the records ("-" for stdin)`)
	cmd.MarkFlagsMutuallyExclusive("data", "file")
	cmd.MarkFlagsOneRequired("data", "file")

	return cmd
}

func runInsert(opts *InsertOptions, collection string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	data := []byte(opts.Data)
	if opts.File != "" {
		var err error
		data, err = readInput(opts.File, cmd.InOrStdin())
		if err != nil {
			_ = f.Error(ErrCodeInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read records", err)
		}
	}
	records, err := parseRecords(data)
	if err != nil {
		_ = f.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid records", err)
	}

	return withEnv(opts.RootOptions, cmd, func(ctx context.Context, e *env, f *OutputFormatter) error {
		coll, err := e.collection(ctx, collection)
		if err != nil {
			_ = f.Error(ErrCodeOpen, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open collection", err)
		}
		stored, err := e.executor(coll).Insert(ctx, records...)
		if err != nil {
			return f.Fail("insert failed", err)
		}
		return f.Success(InsertResult{Inserted: stored})
	})
}
