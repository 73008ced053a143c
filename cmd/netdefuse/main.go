// Command netdefuse is a demo/debug driver for the def-use
// simplification pass: it builds a small sample IR in Go (this
// module's Non-goals exclude a surface parser), runs pkg/api.Simplify
// over it, and prints the resulting diagnostics and rewritten
// statement count.
//
// Usage:
//
//	netdefuse run [--scenario name] [--config file] [-v]
//	netdefuse check [--config file]
package main

import (
	"fmt"
	"os"

	"github.com/saruga/netir-defuse/internal/ast"
	"github.com/saruga/netir-defuse/internal/config"
	"github.com/saruga/netir-defuse/pkg/api"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile           string
	verbose              bool
	suppressStackShift   bool
	missingReturnIsError bool
	scenario             string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{suppressStackShift: true, missingReturnIsError: true}

	root := &cobra.Command{
		Use:     "netdefuse",
		Short:   "Demo driver for the network-dataplane def-use simplification pass",
		Version: version,
	}
	bindCommonFlags(root.PersistentFlags(), flags)

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	return root
}

// bindCommonFlags registers the flags shared by every subcommand onto
// fs, the way kubeadm's cmd/options helpers take an explicit
// *pflag.FlagSet rather than reaching for cmd.Flags() inline at every
// call site.
func bindCommonFlags(fs *pflag.FlagSet, flags *rootFlags) {
	fs.StringVar(&flags.configFile, "config", "", "Use specific config `file`")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "Trace entry into each analyzed unit via zap")
	fs.BoolVar(&flags.suppressStackShift, "suppress-stack-shift-warnings", true, "Suppress uninitialized-use warnings for push_front/pop_front reads")
	fs.BoolVar(&flags.missingReturnIsError, "missing-return-is-error", true, "Report a non-void function falling through without returning as an error, not a warning")
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pass over an embedded sample program and print diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(flags)
		},
	}
	cmd.Flags().StringVar(&flags.scenario, "scenario", "dead-write", "Sample to run: dead-write|side-effect|slice-overwrite|parser-join")
	return cmd
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and print the resolved configuration without running the pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(flags)
		},
	}
}

func resolveOptions(flags *rootFlags) (api.Options, error) {
	var cfg *config.Config
	if flags.configFile != "" {
		c, err := config.LoadFile(flags.configFile)
		if err != nil {
			return api.Options{}, err
		}
		cfg = c
	} else if c, _, err := config.Load("."); err == nil {
		cfg = c
	}

	suppress := flags.suppressStackShift
	missingErr := flags.missingReturnIsError
	resolved := cfg.Merge(config.MergeOptions{
		SuppressStackShiftWarnings: &suppress,
		MissingReturnIsError:       &missingErr,
	})

	var logger *zap.Logger
	if flags.verbose || resolved.Trace {
		l, err := zap.NewDevelopment()
		if err != nil {
			return api.Options{}, err
		}
		logger = l
	}

	return api.Options{
		SuppressStackShiftWarnings: resolved.SuppressStackShiftWarnings,
		MissingReturnIsError:       resolved.MissingReturnIsError,
		Logger:                     logger,
	}, nil
}

func runCheck(flags *rootFlags) error {
	opts, err := resolveOptions(flags)
	if err != nil {
		return err
	}
	fmt.Printf("suppressStackShiftWarnings: %v\n", opts.SuppressStackShiftWarnings)
	fmt.Printf("missingReturnIsError:       %v\n", opts.MissingReturnIsError)
	return nil
}

func runScenario(flags *rootFlags) error {
	opts, err := resolveOptions(flags)
	if err != nil {
		return err
	}

	var prog *ast.Program
	switch flags.scenario {
	case "dead-write":
		prog = sampleDeadWrite()
	case "side-effect":
		prog = sampleSideEffectingDeadAssign()
	case "slice-overwrite":
		prog = sampleSliceOverwrite()
	case "parser-join":
		prog = sampleParserJoin()
	default:
		return fmt.Errorf("unknown scenario %q", flags.scenario)
	}

	result := api.Simplify(prog, opts)
	fmt.Printf("units analyzed: %d\n", result.Stats.UnitsAnalyzed)
	fmt.Printf("statements removed: %d\n", result.Stats.StatementsRemoved)
	for _, d := range result.Diagnostics.Items() {
		fmt.Println(d.String())
	}
	for name, e := range result.Errs {
		fmt.Fprintf(os.Stderr, "%s: internal error: %v\n", name, e)
	}
	if result.Errs != nil {
		os.Exit(1)
	}
	return nil
}
