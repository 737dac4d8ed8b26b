// Package cmd provides the command-line interface of the chameneos game.
package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/chameneos/game"
	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/id"
	"github.com/sarchlab/chameneos/monitoring"
	"github.com/sarchlab/chameneos/tracing"
	"github.com/sarchlab/chameneos/wire"
)

type options struct {
	transport        string
	timeout          time.Duration
	verbose          bool
	chatty           bool
	traceDB          string
	monitor          bool
	monitorPort      int
	openBrowser      bool
	deterministicIDs bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "chameneos N",
		Short: "Chameneos plays rounds of creatures meeting through a broker.",
		Long: `Chameneos plays rounds of creatures that meet in pairs through a ` +
			`broker and change their colors after every meeting. Each round ` +
			`stops after N pairings and reports the meetings of every creature.`,
		Args: budgetArg,
		RunE: opts.run,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.transport, "transport", "mem",
		"channel transport, mem for in-process pipes or os for kernel pipes")
	flags.DurationVar(&opts.timeout, "timeout", 0,
		"abort a round that runs longer than this, 0 for no limit")
	flags.BoolVar(&opts.verbose, "verbose", false,
		"log the protocol events to stderr")
	flags.BoolVar(&opts.chatty, "chatty", false,
		"also log every announcement and meeting, implies --verbose")
	flags.StringVar(&opts.traceDB, "trace-db", "",
		"record the run into <name>.sqlite3, auto generates a name")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"serve the progress of the game over HTTP")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"port of the monitoring server, below 1000 picks a random port")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"open the monitoring page in a browser")
	flags.BoolVar(&opts.deterministicIDs, "deterministic-ids", true,
		"use sequential round IDs instead of globally unique ones")

	return cmd
}

func budgetArg(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no argument given")
	}

	if len(args) > 1 {
		return fmt.Errorf("expected one argument, got %d", len(args))
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("argument %q is not a number", args[0])
	}

	if n < 0 {
		return fmt.Errorf("argument %d must not be negative", n)
	}

	return nil
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	budget, _ := strconv.Atoi(args[0])

	transport, err := wire.ParseTransport(o.transport)
	if err != nil {
		return err
	}

	hooks, err := o.hooks(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder := game.MakeBuilder().
		WithBudget(budget).
		WithTransport(transport).
		WithRoundTimeout(o.timeout).
		WithOutput(cmd.OutOrStdout())
	if !o.deterministicIDs {
		builder = builder.WithIDGenerator(id.NewParallelIDGenerator())
	}

	g := builder.Build("Game")
	for _, h := range hooks {
		g.AcceptHook(h)
	}

	_, err = g.Run(ctx)

	return err
}

func (o *options) hooks(cmd *cobra.Command) ([]hooking.Hook, error) {
	var hooks []hooking.Hook

	if o.verbose || o.chatty {
		logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags|log.Lmicroseconds)
		tracer := tracing.NewLogTracer(logger)
		tracer.Chatty = o.chatty
		hooks = append(hooks, tracer)
	}

	if o.traceDB != "" {
		name := o.traceDB
		if name == "auto" {
			name = ""
		}

		tracer := tracing.NewSQLiteTracer(name)

		err := tracer.Init()
		if err != nil {
			return nil, err
		}

		hooks = append(hooks, tracer)
	}

	if o.monitor {
		m := monitoring.NewMonitor().WithPortNumber(o.monitorPort)

		url, err := m.StartServer()
		if err != nil {
			return nil, err
		}

		if o.openBrowser {
			err = m.OpenInBrowser(url)
			if err != nil {
				log.Printf("opening browser: %v", err)
			}
		}

		hooks = append(hooks, m)
	}

	return hooks, nil
}

// Execute runs the root command. Any failure, including an interrupted
// round, exits with status 1 after the registered exit handlers have run.
func Execute() {
	err := rootCmd.Execute()
	atexit.Exit(exitCode(rootCmd, err))
}

// exitCode returns the process status for the outcome of cmd. An aborted
// round ends its partial report with an empty line.
func exitCode(cmd *cobra.Command, err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, game.ErrAborted) {
		fmt.Fprintln(cmd.OutOrStdout())
	}

	return 1
}
