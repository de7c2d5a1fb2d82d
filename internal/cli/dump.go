package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
	"github.com/roach88/sqldict/codec"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Output string
	Indent bool
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := newDictCommand(rootOpts, &cobra.Command{
		Use:   "dump",
		Short: "Write every entry as one JSON object",
		Long: `Write every entry as a single JSON object keyed by entry key.

The default output is canonical JSON (sorted keys, no whitespace), so two
dumps of equal contents are byte-identical and the result can be fed back
to load. Canonical JSON has no fractional numbers; use --indent for
databases that hold them.

Examples:
  sqldict --db app.db dump > snapshot.json
  sqldict --db app.db dump -o snapshot.json`,
		Args: cobra.NoArgs,
	}, func(*cobra.Command, []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			obj := map[string]any{}
			for e, err := range d.Items(ctx) {
				if err != nil {
					return out.DictError(err)
				}
				obj[e.Key] = e.Value
			}

			data, err := marshalDump(obj, opts.Indent)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode dump", err)
			}

			if opts.Output == "" {
				_, err = fmt.Fprintln(out.Writer, string(data))
				return err
			}
			if err := os.WriteFile(opts.Output, append(data, '\n'), 0644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write output", err)
			}
			out.VerboseLog("wrote %d entries to %s", len(obj), opts.Output)
			return nil
		}
	})

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.Indent, "indent", false, "indented JSON instead of canonical")

	return cmd
}

func marshalDump(obj map[string]any, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(obj, "", "  ")
	}
	return codec.MarshalCanonical(obj)
}
