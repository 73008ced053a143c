package defuse_test

import (
	"fmt"
	"testing"

	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/config"
	"github.com/saruga/netir-defuse/internal/defs"
	"github.com/saruga/netir-defuse/internal/defuse"
	"github.com/saruga/netir-defuse/internal/diagnostic"
	"github.com/saruga/netir-defuse/internal/refmap"
	"github.com/saruga/netir-defuse/internal/storage"
	"github.com/saruga/netir-defuse/internal/typemap"
	"github.com/stretchr/testify/require"
)

// bitType returns a bit<width> base type, matching how the rest of the
// module names its generic integer type for tests that don't care
// about a specific dataplane header layout.
func bitType(width int) *ast.BaseType {
	return &ast.BaseType{Name: fmt.Sprintf("bit<%d>", width), Width: width}
}

// runUnit builds the StorageMap/ReferenceMap/TypeMap collaborators
// over prog, computes write-sets rooted at unit via compute, then runs
// the def-use pass over unit and fails the test on an internal error.
func runUnit(t *testing.T, prog *ast.Program, unit ast.Node, compute func(*defs.Builder) *defs.Definitions, opts config.Options) (ast.Node, *diagnostic.DiagnosticList) {
	t.Helper()
	sm := storage.BuildStorageMap(prog)
	rm := refmap.BuildReferenceMap(prog)
	tm := typemap.Infer(prog, sm)

	b := defs.NewBuilder(sm, nil)
	compute(b)

	result, diags, err := defuse.Process(unit, b.Definitions(), rm, tm, nil, opts)
	require.NoError(t, err)
	return result, diags
}

func hasCode(diags *diagnostic.DiagnosticList, code diagnostic.DiagnosticCode) bool {
	for _, d := range diags.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func hasCodeForSubject(diags *diagnostic.DiagnosticList, code diagnostic.DiagnosticCode, subject string) bool {
	for _, d := range diags.Items() {
		if d.Code == code && d.Subject == subject {
			return true
		}
	}
	return false
}
