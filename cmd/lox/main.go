// Package main is the main entrypoint to the lox application
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tanema/loxvm/src/conf"
	"github.com/tanema/loxvm/src/dis"
	"github.com/tanema/loxvm/src/runtime"
)

var rootCmd = &cobra.Command{
	Use:           "lox [script]",
	Short:         "Run lox scripts or start an interactive session",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	viper.SetEnvPrefix("lox")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.Flags()
	flags.StringP("execute", "e", "", "execute string 'stat'")
	flags.BoolP("list", "l", false, "list opcodes")
	flags.BoolP("parse-only", "p", false, "parse only")
	flags.BoolP("interactive", "i", false, "enter interactive mode after executing a script")
	flags.BoolP("version", "v", false, "show version information")
	flags.Bool("trace", false, "trace every executed instruction to stderr")
	flags.Bool("gc-stress", false, "collect garbage before every allocation")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "disabled", "log level (trace, debug, info, warn, error, disabled)")
	flags.String("log-time-format", "%H:%M:%S", "strftime pattern for log timestamps")
	cobra.CheckErr(viper.BindPFlags(flags))
}

func main() {
	os.Exit(execute())
}

func execute() int {
	if profile := os.Getenv("LOX_PROFILE"); profile != "" {
		stop, err := runProfiling(profile)
		if err != nil {
			printErr(os.Stderr, err)
			return 1
		}
		defer stop()
	}
	if err := rootCmd.Execute(); err != nil {
		printErr(os.Stderr, err)
		return exitCode(err)
	}
	return 0
}

func run(cmd *cobra.Command, args []string) error {
	processGlobalFlags()
	if viper.GetBool("version") {
		printVersion(cmd.ErrOrStderr())
	}

	logger, err := newLogger(cmd.ErrOrStderr(), viper.GetString("log-level"), viper.GetString("log-time-format"))
	if err != nil {
		return err
	}
	opts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithStdout(cmd.OutOrStdout()),
		runtime.WithStderr(cmd.ErrOrStderr()),
		runtime.WithGCStress(viper.GetBool("gc-stress")),
	}
	if viper.GetBool("trace") {
		opts = append(opts, runtime.WithTrace(cmd.ErrOrStderr()))
	}
	vm := runtime.New(opts...)
	defer func() { _ = vm.Close() }()

	s := &session{
		vm:          vm,
		stderr:      cmd.ErrOrStderr(),
		list:        viper.GetBool("list"),
		parseOnly:   viper.GetBool("parse-only"),
		interactive: viper.GetBool("interactive"),
	}

	if code := viper.GetString("execute"); code != "" {
		return s.load("<string>", strings.NewReader(code))
	} else if len(args) > 0 {
		return s.loadFile(args[0])
	} else if !isTerminal(os.Stdin) {
		return s.load("<stdin>", cmd.InOrStdin())
	} else if !viper.GetBool("version") {
		return s.repl()
	}
	return nil
}

type session struct {
	vm          *runtime.VM
	stderr      io.Writer
	list        bool
	parseOnly   bool
	interactive bool
}

func (s *session) loadFile(path string) error {
	src, err := openScript(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	return s.load(path, src)
}

func (s *session) load(filename string, src io.Reader) error {
	fn, err := s.vm.Compile(filename, src)
	if err != nil {
		return err
	}
	if s.list {
		dis.Function(s.stderr, fn)
	}
	if !s.parseOnly {
		if err := s.vm.Run(fn); err != nil {
			return err
		}
	}
	if s.interactive {
		return s.repl()
	}
	return nil
}

func (s *session) repl() error {
	printVersion(s.stderr)
	fmt.Fprint(s.stderr, "Press ctrl-c to quit or clear current buffer.\n")
	return s.vm.REPL()
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%v\n", conf.FullVersion())
}
