// Command langvm is the interpreter's CLI entry point: run a script file,
// or drop into a REPL when no file is given. The flag surface and
// run-file/REPL split follow estevaofon-noxy's cmd/noxy/main.go; cobra/
// pflag replace its bare `flag` package and liner/go-isatty replace its
// bufio.Scanner REPL loop, per SPEC_FULL.md's ambient-stack section.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"langvm/internal/compiler"
	"langvm/internal/disasm"
	"langvm/internal/lexer"
	"langvm/internal/natives"
	"langvm/internal/object"
	"langvm/internal/parser"
	"langvm/internal/symboltable"
	"langvm/internal/vm"
)

const version = "0.1.0"

func main() {
	var (
		showDisasm bool
		trace      bool
		rootPath   string
	)

	root := &cobra.Command{
		Use:     "langvm [file]",
		Short:   "Run or REPL a langvm script",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runREPL(rootPath, showDisasm, trace)
			}
			return runFile(args[0], rootPath, showDisasm, trace)
		},
	}
	root.Flags().BoolVarP(&showDisasm, "disassembly", "d", false, "print bytecode disassembly before running")
	root.Flags().BoolVarP(&trace, "trace", "t", false, "trace VM instruction execution")
	root.Flags().StringVar(&rootPath, "root", ".", "root path natives resolve plugins/files relative to")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMachine(rootPath string, trace bool) *vm.VM {
	globals := symboltable.New()
	var logger *log.Logger
	if trace {
		logger = log.New(os.Stderr, "", 0)
	}
	machine := vm.NewWithConfig(globals, vm.VMConfig{RootPath: rootPath, Logger: logger, Trace: trace})
	natives.RegisterAll(machine, natives.DefaultConfig(rootPath))
	return machine
}

func runFile(path, rootPath string, showDisasm, trace bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	p := parser.New(lexer.New(string(content)))
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		for _, msg := range p.Errors() {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}

	machine := newMachine(rootPath, trace)
	c := compiler.New(machine.Globals())
	ck, err := c.CompileProgram(prog)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	if showDisasm {
		fmt.Print(disasm.Disassemble(ck))
	}

	mainFn := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	if _, err := machine.Interpret(mainFn); err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	return nil
}

// runREPL evaluates one line (or backslash-continued/block-continued
// group of lines) at a time against a single shared VM, so assignments
// from one line stay visible to the next — the same persistence
// estevaofon-noxy's startREPL gives its shared machine. The exact "quit"
// exit command (not a prefix, not case-folded) is original_source/src/
// main.rs's repl() convention, per SPEC_FULL.md §4.
func runREPL(rootPath string, showDisasm, trace bool) error {
	machine := newMachine(rootPath, trace)
	fmt.Printf("langvm %s\n", version)
	fmt.Println("Type 'quit' to exit.")

	if isatty.IsTerminal(os.Stdin.Fd()) {
		return replWithLiner(machine, showDisasm)
	}
	return replWithScanner(machine, showDisasm)
}

func replWithLiner(machine *vm.VM, showDisasm bool) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	var buffer strings.Builder
	for {
		prompt := ">>> "
		if buffer.Len() > 0 {
			prompt = "... "
		}
		text, err := line.Prompt(prompt)
		if err != nil {
			return nil
		}
		line.AppendHistory(text)
		if !replStep(machine, &buffer, text, showDisasm) {
			return nil
		}
	}
}

func replWithScanner(machine *vm.VM, showDisasm bool) error {
	scanner := bufio.NewScanner(os.Stdin)
	var buffer strings.Builder
	for {
		if buffer.Len() > 0 {
			fmt.Print("... ")
		} else {
			fmt.Print(">>> ")
		}
		if !scanner.Scan() {
			return nil
		}
		if !replStep(machine, &buffer, scanner.Text(), showDisasm) {
			return nil
		}
	}
}

// replStep folds one raw input line into buffer and, once a complete
// program has accumulated, compiles and runs it. It returns false when
// the REPL should exit.
func replStep(machine *vm.VM, buffer *strings.Builder, raw string, showDisasm bool) bool {
	if buffer.Len() == 0 && strings.TrimSpace(raw) == "quit" {
		return false
	}
	if buffer.Len() == 0 && strings.TrimSpace(raw) == "" {
		return true
	}

	if buffer.Len() > 0 {
		buffer.WriteByte('\n')
	}
	buffer.WriteString(strings.TrimSuffix(raw, "\\"))
	if strings.HasSuffix(raw, "\\") {
		return true
	}

	src := buffer.String()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		if incompleteInput(p.Errors()) {
			return true
		}
		for _, msg := range p.Errors() {
			fmt.Println(msg)
		}
		buffer.Reset()
		return true
	}
	buffer.Reset()

	c := compiler.New(machine.Globals())
	ck, err := c.CompileProgram(prog)
	if err != nil {
		fmt.Println(err)
		return true
	}
	if showDisasm {
		fmt.Print(disasm.Disassemble(ck))
	}

	mainFn := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	result, err := machine.Interpret(mainFn)
	if err != nil {
		fmt.Println(err)
		return true
	}
	if result.Kind != object.KindNone {
		fmt.Println(result.String())
	}
	return true
}

func incompleteInput(errs []string) bool {
	for _, msg := range errs {
		if strings.Contains(msg, "found EOF") {
			return true
		}
	}
	return false
}
