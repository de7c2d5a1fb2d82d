package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// SetOptions holds flags for the set command.
type SetOptions struct {
	*RootOptions
	Raw bool // store the argument as a string without JSON parsing
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetOptions{RootOptions: rootOpts}

	cmd := newDictCommand(rootOpts, &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key",
		Long: `Store a value under a key, replacing any existing value.

The value is parsed as JSON; if it is not valid JSON it is stored as a
string. Use --raw to always store a string.

Examples:
  sqldict --db app.db set user:42 '{"name":"ada"}'
  sqldict --db app.db set greeting hello
  sqldict --db app.db set --raw version 42`,
		Args: cobra.ExactArgs(2),
	}, func(_ *cobra.Command, args []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			if err := d.Set(ctx, args[0], parseValue(args[1], opts.Raw)); err != nil {
				return out.DictError(err)
			}
			out.VerboseLog("set %s", args[0])
			if opts.Format == "json" {
				return out.Success(map[string]any{"key": args[0]})
			}
			return nil
		}
	})
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "store the value as a string")

	return cmd
}

// parseValue decodes s as JSON, falling back to s itself.
func parseValue(s string, raw bool) any {
	if raw {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
