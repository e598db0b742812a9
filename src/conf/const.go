// Package conf contains the constants that are used across packages for configuring
// versions, stack sizes and collector tuning.
package conf

import (
	"fmt"
	"time"
)

const (
	// LOXVERSION is the version of the loxvm application.
	LOXVERSION = "loxvm 0.1.0"
	// UINT8COUNT is the amount of values addressable by a single byte operand.
	UINT8COUNT = 256
	// FRAMESMAX is the max depth of nested calls.
	FRAMESMAX = 64
	// STACKMAX is the size of the value stack, it is allocated once at vm startup.
	STACKMAX = FRAMESMAX * UINT8COUNT
	// MAXLOCALS max allowed vars defined in a fn scope.
	MAXLOCALS = UINT8COUNT
	// MAXUPVALUES max allowed upvals referred in a fn scope.
	MAXUPVALUES = UINT8COUNT
	// MAXCONST max amount of consts that a chunk can store.
	MAXCONST = UINT8COUNT
	// MAXARGS max amount of arguments that a call can pass, one opcode exists for
	// each argument count.
	MAXARGS = 8
	// MAXJUMP is the largest distance a jump or loop can travel.
	MAXJUMP = 1<<16 - 1
	// GCINITIALTHRESHOLD is the amount of bytes allocated before the first collection.
	GCINITIALTHRESHOLD = 1024 * 1024
	// GCGROWFACTOR is the multiplier applied to live bytes to find the next threshold.
	GCGROWFACTOR = 2
)

// FullVersion returns the version and copyright.
func FullVersion() string {
	return fmt.Sprintf("%v %v", LOXVERSION, Copyright())
}

// Copyright is the copyright to be written out in the CLI.
func Copyright() string {
	return fmt.Sprintf("Copyright (C) %v", time.Now().Year())
}
