package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldict"
)

// dictFunc is the body of a command that works on an open dict.
type dictFunc func(ctx context.Context, d *sqldict.Dict[any], out *OutputFormatter) error

// withDict opens the dict selected by opts, runs fn and closes the dict.
// A failed close (for example a write-back sync) is reported only if fn
// itself succeeded.
func withDict(opts *RootOptions, cmd *cobra.Command, fn dictFunc) error {
	d, err := opts.openDict(cmd)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)
	out.VerboseLog("opened %s", d)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err = fn(ctx, d, out)
	if closeErr := d.Close(); closeErr != nil && err == nil {
		err = out.DictError(closeErr)
	}
	return err
}

// newDictCommand builds a leaf command that runs fn against the dict.
func newDictCommand(opts *RootOptions, cmd *cobra.Command, fn func(cmd *cobra.Command, args []string) dictFunc) *cobra.Command {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withDict(opts, c, fn(c, args))
	}
	return cmd
}
