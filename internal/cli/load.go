package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "load <file.json>",
		Short: "Import a JSON object as entries",
		Long: `Store every member of a JSON object as an entry, in one
IMMEDIATE transaction. Either all members are stored or none are.

Example:
  sqldict --db app.db load seed.json`,
		Args: cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) dictFunc {
		file := args[0]
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			entries, err := readObject(file)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read input", err)
			}

			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			err = d.Transaction(ctx, sqldict.Immediate, func(tx *sqldict.Tx[any]) error {
				for _, k := range keys {
					if err := tx.Set(ctx, k, entries[k]); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return out.DictError(err)
			}

			if out.Format == "json" {
				return out.Success(map[string]any{"loaded": len(keys)})
			}
			return out.Success(fmt.Sprintf("loaded %s entries from %s", humanize.Comma(int64(len(keys))), file))
		}
	})
}

func readObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON object: %w", path, err)
	}
	return obj, nil
}
