package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewVacuumCommand creates the vacuum command.
func NewVacuumCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "vacuum",
		Short: "Rebuild the database file to reclaim free pages",
		Long: `Rebuild the database with VACUUM and print its size before
and after. Entries are unaffected.

Example:
  sqldict --db app.db vacuum`,
		Args: cobra.NoArgs,
	}, func(*cobra.Command, []string) dictFunc {
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			before, err := d.SizeBytes(ctx)
			if err != nil {
				return out.DictError(err)
			}
			if err := d.Vacuum(ctx); err != nil {
				return out.DictError(err)
			}
			after, err := d.SizeBytes(ctx)
			if err != nil {
				return out.DictError(err)
			}

			if out.Format == "json" {
				return out.Success(map[string]any{
					"location":     d.Location(),
					"bytes_before": before,
					"bytes_after":  after,
				})
			}
			return out.Success(fmt.Sprintf("vacuumed %s (%s -> %s)", d.Location(),
				humanize.Bytes(uint64(before)), humanize.Bytes(uint64(after))))
		}
	})
}
