// Package cmd wires the jackc command tree with cobra, in the style of
// the retrieval pack's dwscript driver: a root command that performs the
// default action (compile), plus a debugging subcommand (tokens).
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirkdrichardson/jackc/internal/driver"
)

var (
	verbose  bool
	toStdout bool
)

// usageErr marks a path/argument problem (invalid path, no .jack files
// found) as distinct from a compilation failure, so the CLI can map it
// to exit code 2 per spec.md §6.
type usageErr struct{ error }

func usageErrorf(format string, args ...any) error {
	return usageErr{fmt.Errorf(format, args...)}
}

var rootCmd = &cobra.Command{
	Use:   "jackc [path]",
	Short: "Compile Jack source to Hack VM code",
	Long: `jackc is the front end of a two-tier compiler for the Jack
programming language (the object-oriented teaching language from the
Nand2Tetris course). It consumes .jack source files and emits
stack-oriented VM code; a separate VM-to-assembly translator and
assembler are out of scope of this tool.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print each file as it compiles")
	rootCmd.Flags().BoolVar(&toStdout, "stdout", false, "write VM output to stdout instead of <name>.vm (single-file input only)")
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

// IsUsageError reports whether err originated from an invalid path or
// an empty file set, which the CLI maps to exit code 2 rather than 1.
func IsUsageError(err error) bool {
	var u usageErr
	return errors.As(err, &u)
}

func runCompile(command *cobra.Command, args []string) error {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}

	files, err := driver.CollectFiles(path)
	if err != nil {
		return usageErr{err}
	}
	if len(files) == 0 {
		return usageErrorf("no .jack files found under %q", path)
	}

	if toStdout {
		if len(files) != 1 {
			return usageErrorf("--stdout requires a single input file, got %d", len(files))
		}
		source, err := driver.ReadSource(files[0])
		if err != nil {
			return err
		}
		return compileToStdout(files[0], source)
	}

	results := driver.CompileAll(files)

	failed := 0
	for _, r := range results {
		if verbose {
			fmt.Fprintf(command.OutOrStdout(), "compiling %s\n", r.InputPath)
		}
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.InputPath, r.Err)
			continue
		}
		if verbose {
			fmt.Fprintf(command.OutOrStdout(), "wrote %s\n", r.OutputPath)
		}
	}

	fmt.Fprintf(command.OutOrStdout(), "compiled %d/%d files\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to compile", failed, len(results))
	}
	return nil
}
