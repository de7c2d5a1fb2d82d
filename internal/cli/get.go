package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Long: `Print the value stored under a key.

Strings are printed as-is; other values as compact JSON.
Exits 1 if the key does not exist.

Example:
  sqldict --db app.db get user:42`,
		Args: cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			v, err := d.Get(ctx, args[0])
			if err != nil {
				return out.DictError(err)
			}
			return out.Value(v)
		}
	})
}
