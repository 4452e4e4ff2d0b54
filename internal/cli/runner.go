package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Makepad-fr/tarefas/internal/config"
	"github.com/Makepad-fr/tarefas/internal/logging"
	"github.com/Makepad-fr/tarefas/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Swapped in tests.
var (
	stdin      io.Reader = os.Stdin
	isTerminal           = func() bool { return isatty.IsTerminal(os.Stdout.Fd()) }
)

// exitError carries an exit code. An empty msg prints nothing.
type exitError struct {
	code int
	msg  string
	hint string
}

func (e *exitError) Error() string { return e.msg }

func usagef(format string, a ...any) error {
	return &exitError{code: 2, msg: fmt.Sprintf(format, a...)}
}

// globals holds root flags and what PersistentPreRunE resolves from them.
type globals struct {
	cfgPath     string
	noColor     bool
	theme       string
	metricsAddr string
	logLevel    string

	cfg config.Config
	log *slog.Logger
}

// Run executes the command line and returns an exit code
// (0 ok, 1 error, 2 usage).
func Run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			ui.Fail(ee.msg)
		}
		if ee.hint != "" {
			ui.Hint(ee.hint)
		}
		return ee.code
	}
	ui.Fail(err.Error())
	return 1
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "tarefas",
		Short:         "tarefas - a tiny synced to-do list",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown subcommand: %s", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &exitError{code: 2}
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.resolve(cmd)
		},
	}
	root.SetOut(ui.Stdout)
	root.SetErr(ui.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usagef("%s", err.Error())
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.cfgPath, "config", "", "config file (default <data dir>/config.yaml)")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colour output")
	pf.StringVar(&g.theme, "theme", "classic", "colour theme: classic|neon|mono")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	pf.StringVar(&g.logLevel, "log-level", "", "debug|info|warn|error")

	root.AddCommand(
		newAddCmd(g),
		newListCmd(g),
		newEditCmd(g),
		newRemoveCmd(g),
		newExportCmd(g),
		newAuthCmd(g),
		newServeCmd(g),
		newMCPCmd(g),
	)
	return root
}

// resolve loads config and applies flag overrides.
func (g *globals) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(g.cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = g.metricsAddr
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	cfg.NoColor = cfg.NoColor || g.noColor
	g.cfg = cfg

	ui.SetColor(!cfg.NoColor)
	ui.SetTheme(g.theme)
	g.log = logging.New(logging.ParseLevel(cfg.LogLevel))
	return nil
}

// exactArgs and minArgs report arity problems as usage errors.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", cmd.UseLine())
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: %s", cmd.UseLine())
		}
		return nil
	}
}
