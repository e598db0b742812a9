package runtime

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/tanema/loxvm/src/object"
	"github.com/tanema/loxvm/src/parse"
)

type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

const (
	prompt         = "> "
	continuePrompt = "...> "
)

// REPL will start an interactive repl reading and running statements until EOF
// or a second interrupt. Globals persist between inputs and input that ends
// without a semicolon is printed as an expression.
func (vm *VM) REPL() error {
	rl, err := readline.New(prompt)
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()
	return vm.repl(rl)
}

func (vm *VM) repl(rl lineReader) error {
	var buf strings.Builder
	for {
		src, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if buf.Len() > 0 {
				rl.SetPrompt(prompt)
				buf.Reset()
				fmt.Fprint(vm.stderr, "Press ctrl-c again to quit.\n")
				continue
			}
			return nil
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		buf.WriteString(src)
		buf.WriteString("\n")
		fn, err := vm.compileInput(buf.String())
		if errors.Is(err, parse.ErrIncomplete) {
			rl.SetPrompt(continuePrompt)
			continue
		}
		rl.SetPrompt(prompt)
		buf.Reset()
		if err != nil {
			fmt.Fprintln(vm.stderr, err)
			continue
		}
		if err := vm.Run(fn); err != nil {
			fmt.Fprintln(vm.stderr, err)
		}
	}
}

func (vm *VM) compileInput(src string) (*object.Function, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed != "" && !strings.HasSuffix(trimmed, ";") && !strings.HasSuffix(trimmed, "}") {
		if fn, err := vm.Compile("<repl>", strings.NewReader("print("+trimmed+");")); err == nil {
			return fn, nil
		}
	}
	return vm.Compile("<repl>", strings.NewReader(src))
}
