// Package config centralizes flatloader configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable, so
// the same binary works from a shell, a .env file or a container spec.
//
// Precedence, lowest to highest:
//  1. built-in defaults
//  2. variables from .env (LoadDotEnv never overrides the real environment)
//  3. process environment
//  4. explicit flags
//
// For tests, use LoadFromArgs with a private FlagSet and a map-backed getenv.
package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Mode is the operation a run performs.
type Mode string

const (
	ModeInsert  Mode = "insert"
	ModeUpdate  Mode = "update"
	ModeCompare Mode = "compare"
)

// Config holds all settings for one run. It is a plain value and safe to
// copy after construction.
type Config struct {
	// Input and mode are set by the subcommand, not by flags.
	Input string
	Mode  Mode

	DryRun         bool
	ProgressEvery  int
	SkipDuplicates bool

	// DB describes the target database. A full DSN is required for every
	// driver except postgres, which can be built from discrete parts.
	DBDriver   string
	DSN        string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBOptions  string

	// Profile and per-run overrides of it.
	ProfilePath string
	Table       string
	Key         string
	Marker      string
	HeaderScan  int
	Sheet       string
	Delimiter   string

	FailuresCSV string
	ReportCSV   string
	MissingOnly bool

	LogLevel  string
	LogFormat string

	MetricsBackend string
	PushgatewayURL string
	DatadogAddr    string
	Job            string
}

// Bind defines every flag on fs with defaults seeded from getenv and returns
// the Config the flags write into. Parse fs (or let cobra do it) before
// reading the result.
func Bind(fs *pflag.FlagSet, getenv func(string) string) *Config {
	cfg := &Config{}

	envOr := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOr := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOr := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	// Run behaviour
	fs.BoolVar(&cfg.DryRun, "dry-run", boolEnvOr("DRY_RUN", false), "Normalize and report without opening the database.")
	fs.IntVar(&cfg.ProgressEvery, "progress-every", intEnvOr("PROGRESS_EVERY", 100), "Log progress every N rows (0 disables).")
	fs.BoolVar(&cfg.SkipDuplicates, "skip-duplicates", boolEnvOr("SKIP_DUPLICATES", false), "Skip rows whose normalized values repeat an earlier row.")

	// DB connectivity
	fs.StringVar(&cfg.DBDriver, "db-driver", envOr("DB_DRIVER", "postgres"), "Database driver: postgres, mssql, mysql or sqlite.")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN. If empty and postgres, built from the DB parts.")
	fs.StringVar(&cfg.DBUser, "db-user", envOr("DB_USER", "postgres"), "DB user (postgres DSN builder).")
	fs.StringVar(&cfg.DBPassword, "db-password", getenv("DB_PASSWORD"), "DB password (postgres DSN builder).")
	fs.StringVar(&cfg.DBHost, "db-host", envOr("DB_HOST", "localhost"), "DB host (postgres DSN builder).")
	fs.StringVar(&cfg.DBPort, "db-port", envOr("DB_PORT", "5432"), "DB port (postgres DSN builder).")
	fs.StringVar(&cfg.DBName, "db-name", envOr("DB_NAME", "postgres"), "DB name (postgres DSN builder).")
	fs.StringVar(&cfg.DBOptions, "db-options", getenv("DB_OPTIONS"), "libpq options, e.g. \"-c search_path=app\" (postgres DSN builder).")

	// Profile
	fs.StringVar(&cfg.ProfilePath, "profile", getenv("PROFILE"), "YAML or JSON mapping profile. Empty uses the built-in flats profile.")
	fs.StringVar(&cfg.Table, "table", getenv("TABLE"), "Target table (overrides the profile).")
	fs.StringVar(&cfg.Key, "key", getenv("KEY_FIELD"), "Key field for update and compare (overrides the profile).")
	fs.StringVar(&cfg.Marker, "marker", getenv("HEADER_MARKER"), "Header cell that marks the header row (overrides the profile).")
	fs.IntVar(&cfg.HeaderScan, "header-scan", intEnvOr("HEADER_SCAN", 20), "How many leading rows to search for the header.")
	fs.StringVar(&cfg.Sheet, "sheet", getenv("SHEET"), "Worksheet to read from XLSX input (default first sheet).")
	fs.StringVar(&cfg.Delimiter, "delimiter", envOr("CSV_DELIMITER", ""), "CSV field delimiter; empty means tab for .tsv files and comma otherwise.")

	// Side files
	fs.StringVar(&cfg.FailuresCSV, "failures-csv", getenv("FAILURES_CSV"), "Write failed and skipped rows to this CSV.")
	fs.StringVar(&cfg.ReportCSV, "report-csv", envOr("REPORT_CSV", "flat_mismatches_report.csv"), "Comparison report CSV.")
	fs.BoolVar(&cfg.MissingOnly, "missing-only", boolEnvOr("MISSING_ONLY", false), "Compare: only report rows missing from the database.")

	// Logging
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error.")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "json"), "Log format: json or console.")

	// Metrics
	fs.StringVar(&cfg.MetricsBackend, "metrics-backend", envOr("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog.")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway-url", envOr("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway URL.")
	fs.StringVar(&cfg.DatadogAddr, "datadog-addr", envOr("DD_DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address.")
	fs.StringVar(&cfg.Job, "job", envOr("JOB_NAME", "flatloader"), "Job name used for metrics.")

	return cfg
}

// LoadFromArgs binds flags on fs and parses args.
func LoadFromArgs(fs *pflag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Bind(fs, getenv)
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored; with no arguments ".env" is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ResolveDSN returns the configured DSN, or for postgres one assembled from
// the discrete parts with user info and options escaped.
func (c *Config) ResolveDSN() string {
	if c.DSN != "" || !strings.EqualFold(c.DBDriver, "postgres") {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.DBHost,
		Path:   "/" + c.DBName,
	}
	if c.DBPort != "" {
		u.Host = c.DBHost + ":" + c.DBPort
	}
	if c.DBUser != "" {
		if c.DBPassword != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		} else {
			u.User = url.User(c.DBUser)
		}
	}
	if c.DBOptions != "" {
		u.RawQuery = url.Values{"options": {c.DBOptions}}.Encode()
	}
	return u.String()
}

// Comma returns the delimiter as a rune, or 0 when none is configured so
// the reader can pick one from the file extension.
func (c *Config) Comma() rune {
	switch c.Delimiter {
	case "":
		return 0
	case `\t`:
		return '\t'
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return ','
	}
	return r[0]
}
