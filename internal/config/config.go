// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atinyakov/EasyDesk/internal/cipher"
)

const (
	// BackendFile keeps credentials in the users file under Root.
	BackendFile = "file"
	// BackendPostgres keeps credentials in a PostgreSQL table.
	BackendPostgres = "postgres"
)

// Options holds the configuration values for the application.
type Options struct {
	// Root is the application root; relative paths below resolve against it.
	Root string `yaml:"root"`

	// UsersFile is the credential mapping file.
	UsersFile string `yaml:"users_file"`

	// DataDir holds one directory per registered user.
	DataDir string `yaml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFile receives structured log entries. Empty means stderr.
	LogFile string `yaml:"log_file"`

	// CipherShift is the Caesar shift used to display secret documents.
	CipherShift int `yaml:"cipher_shift"`

	// AutosaveInterval is the period between draft autosaves. Zero disables
	// autosave.
	AutosaveInterval time.Duration `yaml:"autosave_interval"`

	// StrictCredentials reports a corrupt users file as an error instead of
	// treating it as empty.
	StrictCredentials bool `yaml:"strict_credentials"`

	// InferContent stores saved content as JSON whenever it parses as JSON,
	// regardless of document type.
	InferContent bool `yaml:"infer_content"`

	// CredentialsBackend selects where credentials live: file or postgres.
	CredentialsBackend string `yaml:"credentials_backend"`

	// DatabaseDSN holds the database connection string for the postgres backend.
	DatabaseDSN string `yaml:"database_dsn"`

	// Config is the path to the config file.
	Config string `yaml:"-"`
}

// Load builds Options from args, then the config file, then the environment,
// each layer overriding the previous one.
func Load(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}

	fs := flag.NewFlagSet("easydesk", flag.ContinueOnError)
	fs.StringVar(&options.Root, "root", ".", "application root directory")
	fs.StringVar(&options.UsersFile, "users", "users.json", "credential file, relative to root")
	fs.StringVar(&options.DataDir, "data", "data", "per-user document directory, relative to root")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.LogFile, "log-file", "easydesk.log", "log file, relative to root; empty for stderr")
	fs.IntVar(&options.CipherShift, "shift", cipher.DefaultShift, "caesar shift for secret documents")
	fs.DurationVar(&options.AutosaveInterval, "autosave", 30*time.Second, "draft autosave interval, 0 disables")
	fs.BoolVar(&options.StrictCredentials, "strict", false, "fail on a corrupt credential file")
	fs.BoolVar(&options.InferContent, "infer", false, "store any JSON-parsable content as JSON")
	fs.StringVar(&options.CredentialsBackend, "backend", BackendFile, "credential backend: file | postgres")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address for the postgres backend")
	fs.StringVar(&options.Config, "config", "easydesk.yaml", "path to config file")
	fs.StringVar(&options.Config, "c", "easydesk.yaml", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("EASYDESK_CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := yaml.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if root := getenv("EASYDESK_ROOT"); root != "" {
		options.Root = root
	}
	if level := getenv("EASYDESK_LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// Parse parses the command-line flags, config file and environment variables
// to set configuration values. It exits the process on invalid configuration.
func Parse() *Options {
	options, err := Load(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}

// Validate checks option combinations.
func (o *Options) Validate() error {
	switch o.CredentialsBackend {
	case BackendFile:
	case BackendPostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres credential backend requires a database DSN")
		}
	default:
		return fmt.Errorf("unknown credential backend %q", o.CredentialsBackend)
	}
	if o.AutosaveInterval < 0 {
		return fmt.Errorf("autosave interval must not be negative, got %s", o.AutosaveInterval)
	}
	if o.UsersFile == "" || o.DataDir == "" {
		return errors.New("users file and data directory must be set")
	}
	return nil
}

// UsersPath returns the credential file path resolved against Root.
func (o *Options) UsersPath() string {
	return o.resolve(o.UsersFile)
}

// DataPath returns the document directory resolved against Root.
func (o *Options) DataPath() string {
	return o.resolve(o.DataDir)
}

// LogPath returns the log file resolved against Root, or "" for stderr.
func (o *Options) LogPath() string {
	if o.LogFile == "" {
		return ""
	}
	return o.resolve(o.LogFile)
}

func (o *Options) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Root, p)
}
