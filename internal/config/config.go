// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port" yaml:"port" env:"SERVER_ADDRESS" env-default:"localhost:8080"`

	// Storage selects the key-value backend: memory, file or postgres.
	Storage string `json:"storage" yaml:"storage" env:"STORAGE" env-default:"file"`

	// DataFile is the JSON file used by the file backend.
	DataFile string `json:"data_file" yaml:"data_file" env:"DATA_FILE" env-default:"qatm-data.json"`

	// DatabaseDSN holds the database connection string for the postgres backend.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn" env:"DATABASE_DSN"`

	LogLevel string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" yaml:"tls_cert" env:"TLS_CERT"`
	TLSKey  string `json:"tls_key" yaml:"tls_key" env:"TLS_KEY"`

	// JWTSecret enables signed session tokens; empty keeps demo tokens.
	JWTSecret string        `json:"jwt_secret" yaml:"jwt_secret" env:"JWT_SECRET"`
	JWTIssuer string        `json:"jwt_issuer" yaml:"jwt_issuer" env:"JWT_ISSUER" env-default:"qatm"`
	JWTTTL    time.Duration `json:"jwt_ttl" yaml:"jwt_ttl" env:"JWT_TTL" env-default:"24h"`

	// BackupDir enables the periodic xlsx backup when set.
	BackupDir       string        `json:"backup_dir" yaml:"backup_dir" env:"BACKUP_DIR"`
	BackupInterval  time.Duration `json:"backup_interval" yaml:"backup_interval" env:"BACKUP_INTERVAL" env-default:"24h"`
	BackupRetention time.Duration `json:"backup_retention" yaml:"backup_retention" env:"BACKUP_RETENTION" env-default:"720h"`

	// MaxUploadBytes bounds the size of an uploaded import workbook.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"10485760"`

	// Config is the path to the Config file.
	Config string `json:"-" yaml:"-"`
}

const defaultConfigPath = "config.json"

// Parse builds the options from args (without the program name).
// Priority: flags > ENV > config file > defaults. The config file path comes
// from -c/-config or the CONFIG env; a missing default file is ignored.
func Parse(args []string) (*Options, error) {
	var flags Options
	fs := flag.NewFlagSet("qatm", flag.ContinueOnError)
	fs.StringVar(&flags.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&flags.Storage, "s", StorageFile, "storage backend: memory, file or postgres")
	fs.StringVar(&flags.DataFile, "f", "qatm-data.json", "data file of the file backend")
	fs.StringVar(&flags.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&flags.LogLevel, "l", "info", "log level")
	fs.StringVar(&flags.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&flags.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&flags.JWTSecret, "jwt-secret", "", "secret used to sign session tokens")
	fs.DurationVar(&flags.JWTTTL, "jwt-ttl", 24*time.Hour, "session token lifetime")
	fs.StringVar(&flags.BackupDir, "backup-dir", "", "directory for periodic xlsx backups")
	fs.DurationVar(&flags.BackupInterval, "backup-interval", 24*time.Hour, "interval between backups")
	fs.DurationVar(&flags.BackupRetention, "backup-retention", 30*24*time.Hour, "age after which backups are pruned")
	fs.StringVar(&flags.Config, "config", defaultConfigPath, "path to config file")
	fs.StringVar(&flags.Config, "c", defaultConfigPath, "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "c" || f.Name == "config" {
			explicit = true
		}
	})
	path := flags.Config
	if env := os.Getenv("CONFIG"); env != "" && !explicit {
		path, explicit = env, true
	}

	var opts Options
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &opts); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&opts); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	opts.Config = path

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			opts.Port = flags.Port
		case "s":
			opts.Storage = flags.Storage
		case "f":
			opts.DataFile = flags.DataFile
		case "d":
			opts.DatabaseDSN = flags.DatabaseDSN
		case "l":
			opts.LogLevel = flags.LogLevel
		case "tls-cert":
			opts.TLSCert = flags.TLSCert
		case "tls-key":
			opts.TLSKey = flags.TLSKey
		case "jwt-secret":
			opts.JWTSecret = flags.JWTSecret
		case "jwt-ttl":
			opts.JWTTTL = flags.JWTTTL
		case "backup-dir":
			opts.BackupDir = flags.BackupDir
		case "backup-interval":
			opts.BackupInterval = flags.BackupInterval
		case "backup-retention":
			opts.BackupRetention = flags.BackupRetention
		}
	})

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &opts, nil
}

// Validate checks the combination of options.
func (o *Options) Validate() error {
	var errs []error
	if !slices.Contains([]string{StorageMemory, StorageFile, StoragePostgres}, o.Storage) {
		errs = append(errs, fmt.Errorf("unknown storage %q", o.Storage))
	}
	if o.Storage == StoragePostgres && o.DatabaseDSN == "" {
		errs = append(errs, errors.New("postgres storage requires a database dsn"))
	}
	if o.Storage == StorageFile && o.DataFile == "" {
		errs = append(errs, errors.New("file storage requires a data file"))
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		errs = append(errs, errors.New("tls cert and key must be set together"))
	}
	if o.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt ttl must be positive"))
	}
	if o.BackupDir != "" && o.BackupInterval <= 0 {
		errs = append(errs, errors.New("backup interval must be positive"))
	}
	if o.BackupDir != "" && o.BackupRetention <= 0 {
		errs = append(errs, errors.New("backup retention must be positive"))
	}
	if o.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max upload bytes must be positive"))
	}
	return errors.Join(errs...)
}

// TLSEnabled reports whether the server should listen with HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}
