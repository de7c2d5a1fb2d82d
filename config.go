package sqldict

import (
	"database/sql"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sqldict/internal/store"
)

// Default tuning values applied by Open.
const (
	DefaultPageSize         = 256
	DefaultBackupStepPages  = 256
	DefaultBackupRetryDelay = 10 * time.Millisecond
)

// Config selects the backing store of a Dict and tunes it.
// Exactly one of Path, Memory and DB must be set.
type Config struct {
	// Path is a database file, created if absent. ":memory:" is the same as
	// setting Memory.
	Path string `yaml:"path"`

	// Memory selects a private in-memory database.
	Memory bool `yaml:"memory"`

	// DB is a caller-owned pool. The Dict uses it and never closes it.
	DB *sql.DB `yaml:"-"`

	// Writeback enables the overlay of decoded values. Reads of a key after
	// its first touch are served from memory, and Sync writes every cached
	// value back, changed or not.
	//
	// Not safe when another writer shares the backing location: its updates
	// are shadowed by the overlay until ClearCache, and overwritten by Sync.
	Writeback bool `yaml:"writeback"`

	// CacheSize bounds the overlay to that many entries, evicting the least
	// recently used. Zero means unbounded.
	CacheSize int `yaml:"cache_size"`

	// DisablePragmas skips the WAL and cache pragmas applied at open.
	DisablePragmas bool `yaml:"disable_pragmas"`

	// PageSize is the number of rows fetched per query while iterating.
	PageSize int `yaml:"page_size"`

	// BackupStepPages is the number of pages copied per online-backup step.
	BackupStepPages int `yaml:"backup_step_pages"`

	// BackupRetryDelay is the pause after a backup step blocked by a busy
	// source.
	BackupRetryDelay time.Duration `yaml:"backup_retry_delay"`

	// Logger receives the Dict's logs. Defaults to the standard logrus
	// logger with component=sqldict.
	Logger *log.Entry `yaml:"-"`
}

func (c Config) validate() error {
	targets := 0
	if c.Path != "" {
		targets++
	}
	if c.Memory {
		targets++
	}
	if c.DB != nil {
		targets++
	}
	switch {
	case targets == 0:
		return invalidConfig("one of Path, Memory or DB is required")
	case targets > 1:
		return invalidConfig("Path, Memory and DB are mutually exclusive")
	case c.CacheSize < 0:
		return invalidConfig("CacheSize must be >= 0, got %d", c.CacheSize)
	case c.PageSize < 0:
		return invalidConfig("PageSize must be >= 0, got %d", c.PageSize)
	case c.BackupStepPages < 0:
		return invalidConfig("BackupStepPages must be >= 0, got %d", c.BackupStepPages)
	case c.BackupRetryDelay < 0:
		return invalidConfig("BackupRetryDelay must be >= 0, got %s", c.BackupRetryDelay)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Path == store.MemoryLocation {
		c.Path, c.Memory = "", true
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.BackupStepPages == 0 {
		c.BackupStepPages = DefaultBackupStepPages
	}
	if c.BackupRetryDelay == 0 {
		c.BackupRetryDelay = DefaultBackupRetryDelay
	}
	if c.Logger == nil {
		c.Logger = log.WithField("component", "sqldict")
	}
	return c
}

func (c Config) openStore() (*store.Store, error) {
	opts := store.Options{DisablePragmas: c.DisablePragmas}
	switch {
	case c.DB != nil:
		return store.Wrap(c.DB, opts)
	case c.Memory:
		return store.OpenMemory(opts)
	default:
		return store.Open(c.Path, opts)
	}
}

// Destination is where Relocate moves a Dict's data.
type Destination struct {
	path string
}

// Memory is a fresh private in-memory database.
func Memory() Destination { return Destination{path: store.MemoryLocation} }

// File is a new database file at path. It must not exist yet.
func File(path string) Destination { return Destination{path: path} }

// ParseDestination maps "memory" or ":memory:" to Memory, and anything else
// to File.
func ParseDestination(s string) Destination {
	if s == "memory" || s == store.MemoryLocation {
		return Memory()
	}
	return File(s)
}

// IsMemory reports whether d is an in-memory destination.
func (d Destination) IsMemory() bool { return d.path == store.MemoryLocation }

func (d Destination) String() string { return d.path }
