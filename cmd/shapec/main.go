// Command shapec is the compiler driver: read a
// program from argv[1] or stdin, emit the generated C to stdout (or a
// file given by -o), and exit non-zero on a fatal (OOM) error. A `repl`
// subcommand built on liner provides an interactive front end to the
// same Compiler used by one-shot compilation.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shapelang/shapec/internal/compiler"
	"github.com/shapelang/shapec/internal/diag"
	"github.com/shapelang/shapec/internal/eval"
	"github.com/shapelang/shapec/internal/parser"
	"github.com/shapelang/shapec/internal/value"
)

var (
	outPath string
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "shapec [file]",
		Short: "Compile a staged Lisp program to C",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCompile,
	}
	root.Flags().StringVarP(&outPath, "output", "o", "", "write generated C to this file instead of stdout")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(replCmd())

	cobra.OnInitialize(func() {
		if verbose {
			diag.Log.SetLevel(logrus.DebugLevel)
		}
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	var src []byte
	var err error
	if len(args) == 1 {
		src, err = os.ReadFile(args[0])
	} else {
		src, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return errors.Wrap(err, "reading input")
	}

	c := compiler.New()
	result, cerr := c.CompileSource(string(src))
	if cerr != nil {
		if de, ok := cerr.(*diag.Error); ok && de.Kind.Fatal() {
			return de
		}
		return cerr
	}

	out := compiler.Format(result)
	if outPath != "" {
		return errors.Wrap(os.WriteFile(outPath, []byte(out), 0o644), "writing output")
	}
	fmt.Print(out)
	return nil
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive read-eval-print loop over the staged evaluator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

func runRepl() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	prompt := color.New(color.FgCyan).Sprint("shapec> ")
	errColor := color.New(color.FgRed)

	menv := eval.NewRootMenv(eval.DefaultEnv())

	for {
		text, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}
		line.AppendHistory(text)

		p := parser.New(text)
		expr, perr := p.Parse()
		if perr != nil {
			errColor.Println(perr)
			continue
		}
		if expr == nil {
			continue
		}

		result, nextMenv := eval.EvalProgram([]*value.Value{expr}, menv)
		menv = nextMenv
		if value.IsCode(result) {
			fmt.Println(result.Str)
		} else {
			fmt.Println(parser.Unparse(result))
		}
	}
}
