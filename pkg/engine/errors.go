package engine

import "fmt"

// LoadErrorKind distinguishes why a project load failed, so callers can
// give actionable guidance: a missing toolchain is fixed differently
// than a broken project.
type LoadErrorKind string

const (
	// EnvironmentMissing means a required external toolchain (such as
	// the solc compiler) is not available.
	EnvironmentMissing LoadErrorKind = "environment-missing"

	// ProjectInvalid means the project path does not exist or contains
	// nothing the engine can analyze.
	ProjectInvalid LoadErrorKind = "project-invalid"

	// CompilationFailed means the toolchain ran but rejected the
	// project; Err carries the compiler diagnostics.
	CompilationFailed LoadErrorKind = "compilation-failed"
)

// LoadError reports a failed analysis run. Engines wrap toolchain
// failures with project and engine context and let them propagate;
// they are never retried.
type LoadError struct {
	Kind    LoadErrorKind
	Engine  string
	Project string
	Err     error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("engine %s: load failed (%s): project %s", e.Engine, e.Kind, e.Project)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// NotFoundError is returned by lookup accessors when a contract or
// function signature is absent from a successfully loaded project.
// Lookups never return an empty value in place of this error.
type NotFoundError struct {
	Contract  string
	Signature string
}

func (e *NotFoundError) Error() string {
	if e.Signature == "" {
		return fmt.Sprintf("contract %q not found in project", e.Contract)
	}
	return fmt.Sprintf("function %q not found in contract %q", e.Signature, e.Contract)
}

// UnknownEngineError is returned when an engine name has no registration.
type UnknownEngineError struct {
	Name      string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine %q\nAvailable engines: %v\nHint: check --engine or the engine setting in solgraph.yaml", e.Name, e.Available)
}
