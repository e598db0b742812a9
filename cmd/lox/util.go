package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/fatih/color"
	"github.com/lestrrat-go/strftime"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/tanema/loxvm/src/lerrors"
)

// exit codes follow sysexits.h
const (
	exitDataErr     = 65
	exitSoftwareErr = 70
)

var red = color.New(color.FgRed).SprintFunc()

func printErr(w io.Writer, err error) {
	fmt.Fprintf(w, "%s\n", red(err.Error()))
}

func exitCode(err error) int {
	kind, ok := lerrors.KindOf(err)
	switch {
	case !ok:
		return 1
	case kind == lerrors.CompileErr:
		return exitDataErr
	default:
		return exitSoftwareErr
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") || !isTerminal(os.Stderr) {
		color.NoColor = true
	}
}

func newLogger(w io.Writer, level, timeFormat string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.Wrap(err, "bad log level")
	}
	stamp, err := strftime.New(timeFormat)
	if err != nil {
		return zerolog.Nop(), errors.Wrap(err, "bad log time format")
	}
	out := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: color.NoColor,
		FormatTimestamp: func(i any) string {
			str, _ := i.(string)
			t, err := time.Parse(zerolog.TimeFieldFormat, str)
			if err != nil {
				return str
			}
			return stamp.FormatString(t)
		},
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func openScript(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open script")
	} else if info.IsDir() {
		return nil, errors.Errorf("cannot open script: %v is a directory", path)
	}
	return os.Open(path)
}

func runProfiling(filename string) (func(), error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}
