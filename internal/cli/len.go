package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewLenCommand creates the len command.
func NewLenCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "len",
		Short: "Print the number of stored keys",
		Args:  cobra.NoArgs,
	}, func(*cobra.Command, []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			n, err := d.Len(ctx)
			if err != nil {
				return out.DictError(err)
			}
			return out.Success(n)
		}
	})
}

// NewContainsCommand creates the contains command.
func NewContainsCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "contains <key>",
		Short: "Print whether a key is stored",
		Long: `Print true or false. Unlike get, a missing key is not an error.

Example:
  sqldict --db app.db contains user:42`,
		Args: cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			ok, err := d.Contains(ctx, args[0])
			if err != nil {
				return out.DictError(err)
			}
			return out.Success(ok)
		}
	})
}
