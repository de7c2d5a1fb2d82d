package cli

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewItemsCommand creates the items command.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "items",
		Short: "List every key and value",
		Long: `List every entry in key order. Text output is a table;
--format json emits a list of {"key", "value"} objects.`,
		Args: cobra.NoArgs,
	}, func(*cobra.Command, []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			var entries []sqldict.Entry[any]
			for e, err := range d.Items(ctx) {
				if err != nil {
					return out.DictError(err)
				}
				entries = append(entries, e)
			}
			return renderEntries(out, entries)
		}
	})
}

// renderEntries writes entries as a KEY/VALUE table, or as JSON.
func renderEntries(out *OutputFormatter, entries []sqldict.Entry[any]) error {
	if out.Format == "json" {
		if entries == nil {
			entries = []sqldict.Entry[any]{}
		}
		return out.Success(entries)
	}

	var table = tablewriter.NewWriter(out.Writer)
	table.Header("Key", "Value")
	for _, e := range entries {
		text, err := valueText(e.Value)
		if err != nil {
			return err
		}
		if err := table.Append([]string{e.Key, text}); err != nil {
			return fmt.Errorf("failed to render row %q: %w", e.Key, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
