package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"del", "rm"},
		Short:   "Remove a key",
		Long: `Remove a key and its value. Exits 1 if the key does not exist.

Example:
  sqldict --db app.db delete user:42`,
		Args: cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			if err := d.Delete(ctx, args[0]); err != nil {
				return out.DictError(err)
			}
			out.VerboseLog("deleted %s", args[0])
			if out.Format == "json" {
				return out.Success(map[string]any{"key": args[0], "deleted": true})
			}
			return nil
		}
	})
}
