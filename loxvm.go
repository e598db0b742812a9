package loxvm

import (
	"io"
	"strings"

	"github.com/tanema/loxvm/src/runtime"
)

// Interpret will compile and run lox source read from src on a fresh vm.
func Interpret(filename string, src io.Reader, opts ...runtime.Option) (runtime.InterpretResult, error) {
	vm := runtime.New(opts...)
	defer func() { _ = vm.Close() }()
	return vm.Interpret(filename, src)
}

// String will simply compile and run lox source code.
func String(label, src string, opts ...runtime.Option) (runtime.InterpretResult, error) {
	return Interpret(label, strings.NewReader(src), opts...)
}
