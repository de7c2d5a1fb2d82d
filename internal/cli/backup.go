package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	return newDictCommand(rootOpts, &cobra.Command{
		Use:   "backup <dest>",
		Short: "Copy the database into a new file",
		Long: `Copy the database into <dest> with SQLite's online backup,
then check the copy. <dest> must not exist. With -v, page progress is
printed to stderr.

Example:
  sqldict --db app.db backup app-2024-06-01.db -v`,
		Args: cobra.ExactArgs(1),
	}, func(_ *cobra.Command, args []string) dictFunc {
		dest := args[0]
		return func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error {
			progress := func(copied, total int) {
				out.VerboseLog("copied %d/%d pages", copied, total)
			}
			if err := d.Backup(ctx, dest, progress); err != nil {
				return out.DictError(err)
			}

			info, err := os.Stat(dest)
			if err != nil {
				return WrapExitError(ExitCommandError, "backup written but not readable", err)
			}
			size := uint64(info.Size())
			if out.Format == "json" {
				return out.Success(map[string]any{
					"path":  dest,
					"bytes": size,
					"size":  humanize.Bytes(size),
				})
			}
			return out.Success(fmt.Sprintf("backed up %s to %s (%s)", d.Location(), dest, humanize.Bytes(size)))
		}
	})
}
