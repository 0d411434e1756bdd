package config

import "fmt"

// IssueSeverity grades validation findings.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding, anchored to a config path.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error renders the issue in the form printed by the CLI.
func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

var (
	knownParserKinds  = map[string]bool{"csv": true, "html": true}
	knownStorageKinds = map[string]bool{"postgres": true, "sqlite": true, "mssql": true}
)

// ValidatePipeline lints a pipeline configuration.
//
// Errors make the config unusable; warnings flag suspicious but runnable
// settings. The caller decides whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, a...)})
	}

	if p.Job == "" {
		warnf("job", "job name is empty; metrics will use the default job tag")
	}

	switch p.Source.Kind {
	case "":
		errf("source.kind", "source.kind is required")
	case "file":
		if p.Source.File.Path == "" {
			errf("source.file.path", "path is required for source.kind=file")
		}
	default:
		errf("source.kind", "unknown source kind %q", p.Source.Kind)
	}

	if p.Parser.Kind == "" {
		errf("parser.kind", "parser.kind is required")
	} else if !knownParserKinds[p.Parser.Kind] {
		errf("parser.kind", "unknown parser kind %q", p.Parser.Kind)
	}

	if p.Storage.Kind == "" {
		errf("storage.kind", "storage.kind is required")
	} else if !knownStorageKinds[p.Storage.Kind] {
		errf("storage.kind", "unknown storage kind %q", p.Storage.Kind)
	}
	if p.Storage.DSN == "" {
		errf("storage.dsn", "storage.dsn is required")
	}

	if p.Runtime.BatchSize < 0 {
		errf("runtime.batch_size", "batch_size must not be negative")
	}

	return issues
}
