// Package diagnostic collects the user-facing warnings and errors the
// def-use pass emits, as opposed to internal invariant violations
// (see internal/defuse's BugError), which never reach this list.
package diagnostic

import (
	"fmt"
	"strings"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// DiagnosticCode identifies the kind of condition a Diagnostic
// reports, independent of its message text.
type DiagnosticCode int

const (
	CodeUninitializedUse DiagnosticCode = iota
	CodeUninitializedOutParam
	CodeMissingReturn
	CodeUninitializedStackNext
)

func (c DiagnosticCode) String() string {
	switch c {
	case CodeUninitializedUse:
		return "uninitialized-use"
	case CodeUninitializedOutParam:
		return "uninitialized-out-param"
	case CodeMissingReturn:
		return "missing-return"
	case CodeUninitializedStackNext:
		return "uninitialized-stack-next"
	default:
		return "unknown"
	}
}

// Diagnostic is a single reported condition, anchored to the name of
// the declaration (variable, parameter, block) it concerns.
type Diagnostic struct {
	Severity Severity
	Code     DiagnosticCode
	Subject  string // e.g. the uninitialized variable or parameter name
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Code, d.Message)
}

// DiagnosticList accumulates Diagnostics over the course of a pass
// run. It is not safe for concurrent use; the pass is single-threaded.
type DiagnosticList struct {
	items []Diagnostic
}

// NewDiagnosticList builds an empty list.
func NewDiagnosticList() *DiagnosticList {
	return &DiagnosticList{}
}

// Add appends d to the list.
func (l *DiagnosticList) Add(d Diagnostic) {
	l.items = append(l.items, d)
}

// AddWarning appends a warning-severity diagnostic.
func (l *DiagnosticList) AddWarning(code DiagnosticCode, subject, message string) {
	l.Add(Diagnostic{Severity: SeverityWarning, Code: code, Subject: subject, Message: message})
}

// AddError appends an error-severity diagnostic.
func (l *DiagnosticList) AddError(code DiagnosticCode, subject, message string) {
	l.Add(Diagnostic{Severity: SeverityError, Code: code, Subject: subject, Message: message})
}

// Items returns the accumulated diagnostics in report order.
func (l *DiagnosticList) Items() []Diagnostic {
	if l == nil {
		return nil
	}
	return l.items
}

// HasErrors reports whether any accumulated diagnostic is an error.
func (l *DiagnosticList) HasErrors() bool {
	for _, d := range l.Items() {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the number of accumulated diagnostics.
func (l *DiagnosticList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Format renders the list as one line per diagnostic.
func (l *DiagnosticList) Format() string {
	var sb strings.Builder
	for _, d := range l.Items() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
