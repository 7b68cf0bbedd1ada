package cli

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/repokit/internal/ir"
	"github.com/roach88/repokit/internal/queryir"
	"github.com/roach88/repokit/internal/repository"
)

// QueryOptions holds flags shared by find and count.
type QueryOptions struct {
	*RootOptions
	Filter string // query descriptor file, "-" for stdin
	Page   int
	Size   int
}

// FindResult is the payload of the find command.
type FindResult struct {
	Records []repository.Record `json:"records"`
	Total   int64               `json:"total"`
	Pages   int64               `json:"pages"`
}

// String renders one canonical JSON line per record plus a summary line.
// Null fields are omitted.
func (r FindResult) String() string {
	var b strings.Builder
	for _, rec := range r.Records {
		data, err := ir.MarshalCanonical(withoutNulls(rec))
		if err != nil {
			fmt.Fprintf(&b, "%v\n", rec)
			continue
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d of %d record(s), %d page(s)", len(r.Records), r.Total, r.Pages)
	return b.String()
}

func withoutNulls(r repository.Record) map[string]any {
	m := maps.Clone(map[string]any(r))
	maps.DeleteFunc(m, func(_ string, v any) bool { return v == nil })
	return m
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <collection>",
		Short: "Find records matching a query",
		Long: `Find records matching a query descriptor.

The descriptor is JSON in wire form, read from --filter (or stdin with
"--filter -"). Without --filter every record is returned. --size requests
one page; --page selects it (zero-based).

Example:
  echo '{"filter":[{"field":"age","op":"gte","value":18}]}' | repokit find users --filter -
  repokit find users --filter adults.json --page 1 --size 20 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], cmd)
		},
	}
	addQueryFlags(cmd, opts, true)
	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "count <collection>",
		Short:         "Count records matching a query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}
	addQueryFlags(cmd, opts, false)
	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions, paging bool) {
	cmd.Flags().StringVar(&opts.Filter, "filter", "", `query descriptor file ("-" for stdin)`)
	if paging {
		cmd.Flags().IntVar(&opts.Page, "page", 0, "page index (zero-based)")
		cmd.Flags().IntVar(&opts.Size, "size", 0, "page size (0 returns every match)")
	}
}

// pageRequest returns the page request from flags, nil when unpaged.
func (o *QueryOptions) pageRequest() *queryir.PageRequest {
	if o.Size == 0 && o.Page == 0 {
		return nil
	}
	return queryir.NewPageRequest(o.Page, o.Size)
}

func runFind(opts *QueryOptions, collection string, cmd *cobra.Command) error {
	return withEnv(opts.RootOptions, cmd, func(ctx context.Context, e *env, f *OutputFormatter) error {
		q, coll, err := prepareQuery(ctx, opts, collection, cmd, e, f)
		if err != nil {
			return err
		}

		page, err := e.executor(coll).FindPage(ctx, q, opts.pageRequest())
		if err != nil {
			return f.Fail("find failed", err)
		}
		return f.Success(FindResult{Records: page.Content, Total: page.Total, Pages: page.TotalPages()})
	})
}

func runCount(opts *QueryOptions, collection string, cmd *cobra.Command) error {
	return withEnv(opts.RootOptions, cmd, func(ctx context.Context, e *env, f *OutputFormatter) error {
		q, coll, err := prepareQuery(ctx, opts, collection, cmd, e, f)
		if err != nil {
			return err
		}

		n, err := e.executor(coll).Count(ctx, q)
		if err != nil {
			return f.Fail("count failed", err)
		}
		return f.Success(n)
	})
}

func prepareQuery(ctx context.Context, opts *QueryOptions, collection string, cmd *cobra.Command, e *env, f *OutputFormatter) (queryir.Query, repository.Collection, error) {
	q, err := readQuery(opts.Filter, cmd.InOrStdin())
	if err != nil {
		return queryir.Query{}, nil, f.Fail("invalid query", err)
	}
	coll, err := e.collection(ctx, collection)
	if err != nil {
		_ = f.Error(ErrCodeOpen, err.Error(), nil)
		return queryir.Query{}, nil, WrapExitError(ExitCommandError, "failed to open collection", err)
	}
	f.VerboseLog("querying %s (id field %s)", coll.Name(), coll.IDField())
	return q, coll, nil
}
