// Package loxvm is a bytecode virtual machine for lox, a small dynamically
// typed scripting language with closures, classes and single inheritance.
//
// Source is compiled in a single pass into chunks of bytecode that are run on
// a stack based vm. All runtime objects live on a mark and sweep garbage
// collected heap that the compiler and the vm both register roots with.
//
// The cli in cmd/lox runs files, stdin or an interactive repl. Embedders can
// use Interpret, or runtime.New for a vm that is reused between runs and has
// go native functions defined in it.
package loxvm
