package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "keys",
		Short: "List every key in key order",
		Args:  cobra.NoArgs,
	}, func(*cobra.Command, []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			keys := []string{}
			for k, err := range d.Keys(ctx) {
				if err != nil {
					return out.DictError(err)
				}
				if out.Format != "json" {
					fmt.Fprintln(out.Writer, k)
					continue
				}
				keys = append(keys, k)
			}
			if out.Format == "json" {
				return out.Success(keys)
			}
			return nil
		}
	})
}
