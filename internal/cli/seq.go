package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/repokit/internal/repoerr"
)

// SequenceResult is the payload of the seq commands.
type SequenceResult struct {
	Sequence string `json:"sequence"`
	Value    int64  `json:"value,omitempty"`
}

func (r SequenceResult) String() string {
	return fmt.Sprint(r.Value)
}

// NewSeqCommand creates the seq command group.
func NewSeqCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seq",
		Short: "Draw and inspect sequence numbers",
		Long: `Named, strictly increasing counters.

Example:
  repokit seq next order_no --config repokit.yaml
  repokit seq current order_no --format json`,
	}

	cmd.AddCommand(seqSubcommand(rootOpts, "next <name>", "Return the next value, creating the sequence at 1",
		func(ctx context.Context, e *env, name string) (SequenceResult, error) {
			v, err := e.generator().Next(ctx, name)
			return SequenceResult{Sequence: name, Value: v}, err
		}))
	cmd.AddCommand(seqSubcommand(rootOpts, "ensure <name>", "Create the sequence at 1 unless it exists",
		func(ctx context.Context, e *env, name string) (SequenceResult, error) {
			g := e.generator()
			if err := g.Ensure(ctx, name); err != nil {
				return SequenceResult{}, err
			}
			v, _, err := g.Current(ctx, name)
			return SequenceResult{Sequence: name, Value: v}, err
		}))
	cmd.AddCommand(seqSubcommand(rootOpts, "current <name>", "Print the last value without incrementing",
		func(ctx context.Context, e *env, name string) (SequenceResult, error) {
			v, ok, err := e.generator().Current(ctx, name)
			if err != nil {
				return SequenceResult{}, err
			}
			if !ok {
				return SequenceResult{}, repoerr.NotFound("sequence.current", fmt.Sprintf("no sequence %q", name))
			}
			return SequenceResult{Sequence: name, Value: v}, nil
		}))

	return cmd
}

func seqSubcommand(rootOpts *RootOptions, use, short string, op func(context.Context, *env, string) (SequenceResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env, f *OutputFormatter) error {
				res, err := op(ctx, e, args[0])
				if err != nil {
					return f.Fail("sequence "+cmd.Name()+" failed", err)
				}
				return f.Success(res)
			})
		},
	}
}
