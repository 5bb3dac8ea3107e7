package scripting

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResolution      = errors.New("resolution failed")
	ErrArgumentBinding = errors.New("argument binding failed")
	ErrExecution       = errors.New("script execution failed")
	ErrNullInstance    = errors.New("null script instance")
	ErrIO              = errors.New("script io failed")
	ErrRegistration    = errors.New("registration failed")
	ErrRegistrySealed  = errors.New("registry sealed after first script load")
)

// CallError reports a failed marshaled call. errors.Is matches Kind and
// anything in the Err chain, so a native binding failure surfacing through a
// script error matches both ErrExecution and ErrArgumentBinding.
type CallError struct {
	Kind   error
	Target string
	Err    error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Target, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Target, e.Kind, e.Err)
}

func (e *CallError) Is(target error) bool { return target == e.Kind }
func (e *CallError) Unwrap() error        { return e.Err }

func callErr(kind error, target string, err error) error {
	return &CallError{Kind: kind, Target: target, Err: err}
}

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARN"
	default:
		return "ERR "
	}
}

// Diagnostic is one build message attributed to a script section.
type Diagnostic struct {
	Section  string
	Row      int
	Col      int
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (%d, %d) : %s : %s", d.Section, d.Row, d.Col, d.Severity, d.Message)
}

// DiagnosticHandler receives every diagnostic of every build, in order.
type DiagnosticHandler func(Diagnostic)

// CompileError is returned by LoadScript when a section fails to parse,
// compile or run its top-level chunk.
type CompileError struct {
	Module      string
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "build %s failed", e.Module)
	for _, d := range e.Diagnostics {
		if d.Severity == SeverityError {
			b.WriteString("\n  ")
			b.WriteString(d.String())
		}
	}
	return b.String()
}
