// Command pipelens runs pipeline scripts with source instrumentation.
//
//	pipelens run script.pipe --var x=7
//	pipelens check script.pipe
//
// The run command compiles and evaluates a script; inspect reports go to
// stderr, the final value to stdout. The active profile comes from
// PIPELENS_ENV or the --env flag, and a pipelens.yaml next to the script
// can override which profiles instrumentation is live in.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/pipelens/pipelens/pkg/evaluator"
	"github.com/pipelens/pipelens/pkg/inspect"
	"github.com/pipelens/pipelens/pkg/parser"
)

var (
	// Global flags
	envFlag   string
	noColor   bool
	verbose   bool
	varFlags  []string
	showValue bool
)

var rootCmd = &cobra.Command{
	Use:   "pipelens",
	Short: "Pipeline expression engine with source instrumentation",
	Long: `pipelens evaluates pipeline scripts where |> pipes a value into the
next function. Chains ending in |> inspect() print their own annotated
source text when they run, showing the value and elapsed time at each
step. Outside development profiles the instrumentation is stripped at
compile time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run <script.pipe>",
	Short: "Compile and evaluate a pipeline script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScript(cmd.Context(), args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <script.pipe>",
	Short: "Parse a script and validate its instrumentation without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkScript(cmd.Context(), args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pipelens version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pipelens v0.1.0-dev")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "execution profile (defaults to PIPELENS_ENV or \"dev\")")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable ANSI styling of inspect reports")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "variable binding name=value (repeatable)")
	runCmd.Flags().BoolVar(&showValue, "print", true, "print the final value to stdout")

	rootCmd.AddCommand(runCmd, checkCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pipelens:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger honoring the verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadGate reads the pipelens.yaml next to the script, falling back to
// the default gate when there is none.
func loadGate(ctx context.Context, scriptPath string) (*inspect.Gate, string, error) {
	cfgPath := filepath.Join(filepath.Dir(scriptPath), "pipelens.yaml")
	return inspect.LoadGate(ctx, cfgPath)
}

func runScript(ctx context.Context, path string) error {
	logger := newLogger()

	gate, cfgEnv, err := loadGate(ctx, path)
	if err != nil {
		return err
	}
	profile := activeProfile(cfgEnv)

	expr, err := parser.ParseFile(path)
	if err != nil {
		return err
	}
	expr, err = inspect.Transform(ctx, expr, inspect.Config{
		Profile: profile,
		Gate:    gate,
		FS:      afs.New(),
	})
	if err != nil {
		return err
	}

	bindings, err := parseBindings(varFlags)
	if err != nil {
		return err
	}

	eval := evaluator.New(
		evaluator.WithProfile(profile),
		evaluator.WithGate(gate),
		evaluator.WithColor(!noColor),
		evaluator.WithLogger(logger),
		evaluator.WithDebug(verbose),
	)

	result, err := eval.EvalWithBindings(ctx, expr, bindings)
	if err != nil {
		return err
	}

	if showValue && result != nil {
		fmt.Println(inspect.FormatValue(result))
	}
	return nil
}

func checkScript(ctx context.Context, path string) error {
	gate, cfgEnv, err := loadGate(ctx, path)
	if err != nil {
		return err
	}

	expr, err := parser.ParseFile(path)
	if err != nil {
		return err
	}
	if _, err := inspect.Transform(ctx, expr, inspect.Config{
		Profile: activeProfile(cfgEnv),
		Gate:    gate,
	}); err != nil {
		return err
	}

	fmt.Println("ok:", path)
	return nil
}

// activeProfile resolves the execution profile: the --env flag wins over
// the profile LoadGate resolved from the environment and config file.
func activeProfile(resolved string) string {
	if envFlag != "" {
		return envFlag
	}
	return resolved
}

// parseBindings turns --var name=value flags into evaluation bindings.
// Values parse as numbers or booleans when they look like one, otherwise
// they stay strings.
func parseBindings(flags []string) (map[string]interface{}, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	bindings := make(map[string]interface{}, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q, expected name=value", f)
		}
		bindings[name] = parseValue(raw)
	}
	return bindings, nil
}

func parseValue(raw string) interface{} {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
