package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewGlobCommand creates the glob command.
func NewGlobCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "glob <pattern>",
		Short: "List entries whose key matches a GLOB pattern",
		Long: `List entries whose key matches a case-sensitive SQLite GLOB
pattern: * matches any run of characters, ? one character, [...] a set.

Examples:
  sqldict --db app.db glob 'user:*'
  sqldict --db app.db glob 'v[0-9]?'`,
		Args: cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			entries, err := d.GlobItems(ctx, args[0])
			if err != nil {
				return out.DictError(err)
			}
			return renderEntries(out, entries)
		}
	})
}
