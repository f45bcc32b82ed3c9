package config

import (
	"errors"
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is logged and the run continues.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path names the flag, e.g.
// "db-driver".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned as one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var (
	knownDrivers = map[string]bool{"postgres": true, "mssql": true, "mysql": true, "sqlite": true}
	knownMetrics = map[string]bool{"": true, "none": true, "pushgateway": true, "datadog": true}
)

// Validate performs static checks on c without mutating it.
func (c *Config) Validate() []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Mode {
	case ModeInsert, ModeUpdate, ModeCompare:
	default:
		add(SeverityError, "mode", "unknown mode %q", c.Mode)
	}
	if strings.TrimSpace(c.Input) == "" {
		add(SeverityError, "input", "an input file is required")
	}

	needsDB := !c.DryRun || c.Mode == ModeCompare
	driver := strings.ToLower(c.DBDriver)
	if !knownDrivers[driver] {
		add(SeverityError, "db-driver", "unsupported driver %q (want postgres, mssql, mysql or sqlite)", c.DBDriver)
	} else if needsDB && driver != "postgres" && c.DSN == "" {
		add(SeverityError, "dsn", "a full DSN is required for %s", driver)
	}
	if c.DryRun && c.Mode == ModeCompare {
		add(SeverityWarning, "dry-run", "compare only reads from the database; --dry-run has no effect")
	}

	if c.ProgressEvery < 0 {
		add(SeverityError, "progress-every", "must be >= 0, got %d", c.ProgressEvery)
	}
	if c.HeaderScan <= 0 {
		add(SeverityError, "header-scan", "must be > 0, got %d", c.HeaderScan)
	}
	if c.Delimiter != "" && c.Delimiter != `\t` && len([]rune(c.Delimiter)) != 1 {
		add(SeverityError, "delimiter", "must be a single character, got %q", c.Delimiter)
	}

	if c.MissingOnly && c.Mode != ModeCompare {
		add(SeverityWarning, "missing-only", "only applies to compare")
	}
	if c.Mode == ModeCompare && strings.TrimSpace(c.ReportCSV) == "" {
		add(SeverityError, "report-csv", "compare needs an output path")
	}
	if c.SkipDuplicates && c.Mode == ModeCompare {
		add(SeverityWarning, "skip-duplicates", "only applies to import and update")
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		add(SeverityError, "log-format", "unknown format %q (want json or console)", c.LogFormat)
	}

	mb := strings.ToLower(c.MetricsBackend)
	switch {
	case !knownMetrics[mb]:
		add(SeverityWarning, "metrics-backend", "unknown backend %q; metrics disabled", c.MetricsBackend)
	case mb == "pushgateway" && c.PushgatewayURL == "":
		add(SeverityError, "pushgateway-url", "required when metrics-backend=pushgateway")
	case mb == "datadog" && c.DatadogAddr == "":
		add(SeverityError, "datadog-addr", "required when metrics-backend=datadog")
	}
	if strings.TrimSpace(c.Job) == "" {
		add(SeverityWarning, "job", "empty job name; metrics will be unlabeled")
	}

	return issues
}

// Err joins the error-severity issues into one error, or returns nil.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}
