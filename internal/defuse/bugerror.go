package defuse

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

// BugError reports a violated internal invariant: a precondition that
// should have been guaranteed by an earlier pass (the write-set
// builder, the reference/type maps) or by this pass's own recursion
// discipline. It is never a user-facing diagnostic.
type BugError struct {
	msg   string
	node  interface{}
	cause error
}

func (e *BugError) Error() string {
	if e.node == nil {
		return e.msg
	}
	return fmt.Sprintf("%s\n%s", e.msg, spew.Sdump(e.node))
}

func (e *BugError) Unwrap() error { return e.cause }

// newBugError builds a *BugError carrying a stack trace and, when node
// is non-nil, a structural dump of the IR node involved.
func newBugError(node interface{}, format string, args ...interface{}) *BugError {
	msg := fmt.Sprintf(format, args...)
	return &BugError{msg: msg, node: node, cause: errors.New(msg)}
}

// bugCheck panics with a *BugError if cond is false. It mirrors the
// original pass's BUG_CHECK macro: a failed check here means this
// pass, not the input program, is wrong.
func bugCheck(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(newBugError(nil, format, args...))
	}
}

// bugCheckNode is bugCheck with the offending node attached to the
// resulting BugError for the structural dump.
func bugCheckNode(cond bool, node interface{}, format string, args ...interface{}) {
	if !cond {
		panic(newBugError(node, format, args...))
	}
}
