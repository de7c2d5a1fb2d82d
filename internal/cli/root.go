package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqldict"
	"github.com/roach88/sqldict/codec"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Database   string // --db
	Memory     bool
	ConfigFile string // YAML sqldict.Config; flags override it
	Codec      string // "json" | "canonical" | "yaml"
	Compress   string // "none" | "snappy" | "zstd"
	Writeback  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidCodecs defines the allowed --codec values.
var ValidCodecs = []string{"json", "canonical", "yaml"}

// NewRootCommand creates the root command for the sqldict CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqldict",
		Short: "sqldict - a persistent key/value map on SQLite",
		Long: `Inspect and edit a sqldict database from the command line.

Values are decoded with --codec (and --compress) before they are printed,
so the flags must match how the database was written.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if !slices.Contains(ValidCodecs, opts.Codec) {
				return fmt.Errorf("invalid codec %q: must be one of %v", opts.Codec, ValidCodecs)
			}
			if _, err := codec.ParseCompression(opts.Compress); err != nil {
				return err
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite database")
	cmd.PersistentFlags().BoolVar(&opts.Memory, "memory", false, "use a throwaway in-memory database")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML file with dict configuration")
	cmd.PersistentFlags().StringVar(&opts.Codec, "codec", "json", "value codec (json|canonical|yaml)")
	cmd.PersistentFlags().StringVar(&opts.Compress, "compress", "none", "value compression (none|snappy|zstd)")
	cmd.PersistentFlags().BoolVar(&opts.Writeback, "writeback", false, "enable the write-back cache")

	// Add subcommands
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewLenCommand(opts))
	cmd.AddCommand(NewContainsCommand(opts))
	cmd.AddCommand(NewKeysCommand(opts))
	cmd.AddCommand(NewItemsCommand(opts))
	cmd.AddCommand(NewGlobCommand(opts))
	cmd.AddCommand(NewVacuumCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig builds the dict configuration from --config and the flags.
func (o *RootOptions) loadConfig(logOut io.Writer) (sqldict.Config, error) {
	var cfg sqldict.Config
	if o.ConfigFile != "" {
		data, err := os.ReadFile(o.ConfigFile)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	switch {
	case o.Database != "":
		cfg.Path, cfg.Memory = o.Database, false
	case o.Memory:
		cfg.Path, cfg.Memory = "", true
	}
	if o.Writeback {
		cfg.Writeback = true
	}

	logger := log.New()
	logger.SetOutput(logOut)
	logger.SetLevel(log.WarnLevel)
	if o.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	cfg.Logger = logger.WithField("component", "sqldict")
	return cfg, nil
}

// valueCodec builds the codec selected by --codec and --compress.
func (o *RootOptions) valueCodec() (codec.Codec[any], error) {
	var inner codec.Codec[any]
	switch o.Codec {
	case "", "json":
		inner = codec.JSON[any]()
	case "canonical":
		inner = codec.Canonical()
	case "yaml":
		inner = codec.YAML[any]()
	default:
		return nil, fmt.Errorf("invalid codec %q: must be one of %v", o.Codec, ValidCodecs)
	}
	alg, err := codec.ParseCompression(o.Compress)
	if err != nil {
		return nil, err
	}
	return codec.Compressed(inner, alg), nil
}

// openDict opens the dict selected by the global flags. Callers must Close it.
func (o *RootOptions) openDict(cmd *cobra.Command) (*sqldict.Dict[any], error) {
	cfg, err := o.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	c, err := o.valueCodec()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid codec", err)
	}
	d, err := sqldict.Open(cfg, c)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open dict", err)
	}
	return d, nil
}

// formatter returns an OutputFormatter writing to cmd's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// dictError maps a dict error to an exit code: a missing key is an ordinary
// failure, anything else is a command error.
func dictError(err error) error {
	if sqldict.IsKeyNotFound(err) {
		return WrapExitError(ExitFailure, "key not found", err)
	}
	return WrapExitError(ExitCommandError, "dict operation failed", err)
}
