package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cascade-sim/internal/logging"
	"cascade-sim/internal/metrics"
	"cascade-sim/internal/montecarlo"
	"cascade-sim/internal/scenario"
	"cascade-sim/internal/tui"
)

var (
	simScenarioPath string
	simBuiltin      string
	simGraphFile    string
	simOutFile      string
	simForecastFile string
	simPrintOnly    bool
	simTUI          bool
	simRuns         int
	simSeed         uint64
	simScheduling   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a cascading failure simulation",
	Long:  "simulate loads a scenario, fetches its graph context and prints the Monte Carlo forecast.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScenario(cmd)
		if err != nil {
			return err
		}

		useTUI := simTUI && term.IsTerminal(int(os.Stdout.Fd()))
		if simTUI && !useTUI {
			logger.Warn("stdout is not a terminal, --tui ignored")
		}
		colorize := term.IsTerminal(int(os.Stdout.Fd()))
		writer, cleanup, err := newWriters(cfg, simPrintOnly, colorize, useTUI, simOutFile, simForecastFile)
		if err != nil {
			return err
		}
		defer cleanup()

		provider, err := newProvider(cfg, simGraphFile)
		if err != nil {
			return err
		}
		o, err := newOrchestrator(cfg, provider, metrics.New(nil))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var progress montecarlo.ProgressFunc
		log := logger
		var ui *tui.TUIWriter
		if useTUI {
			ui = tui.NewTUIWriter(sc)
			log = logging.NewWithLevel(cfg.Log.Level, ui)
			progress = ui.Progress
			go func() {
				// quitting the UI cancels outstanding runs
				ui.Wait()
				stop()
			}()
		}
		ctx = logging.NewContext(ctx, log)

		res, runErr := o.Run(ctx, sc, progress)
		if runErr != nil {
			if ui != nil {
				ui.Fail(runErr)
				ui.Wait()
			}
			if errors.Is(runErr, montecarlo.ErrCancelled) {
				return fmt.Errorf("simulation interrupted before any run completed: %w", runErr)
			}
			return runErr
		}

		if err := writer.WriteResult(res); err != nil {
			log.Error("result write failed", "error", err)
		}
		if ui != nil {
			_ = ui.WriteResult(res)
			ui.Wait()
		}
		return nil
	},
}

// loadScenario resolves --scenario or --builtin and applies flag overrides.
func loadScenario(cmd *cobra.Command) (*scenario.Parameters, error) {
	var sc *scenario.Parameters
	switch {
	case simScenarioPath != "" && simBuiltin != "":
		return nil, errors.New("--scenario and --builtin are mutually exclusive")
	case simScenarioPath != "":
		p, err := scenario.Load(simScenarioPath)
		if err != nil {
			return nil, err
		}
		sc = p
	case simBuiltin != "":
		p, ok := scenario.BuiltIn()[simBuiltin]
		if !ok {
			return nil, fmt.Errorf("unknown built-in scenario %q", simBuiltin)
		}
		sc = &p
	default:
		return nil, errors.New("--scenario or --builtin required")
	}

	if cmd.Flags().Changed("runs") {
		sc.MonteCarloRuns = simRuns
	}
	if cmd.Flags().Changed("seed") {
		seed := simSeed
		sc.Seed = &seed
	}
	if cmd.Flags().Changed("scheduling") {
		sc.Scheduling = scenario.Scheduling(simScheduling)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func init() {
	simulateCmd.Flags().StringVar(&simScenarioPath, "scenario", "", "Path to scenario YAML")
	simulateCmd.Flags().StringVar(&simBuiltin, "builtin", "", "Name of a built-in scenario (see 'scenarios')")
	simulateCmd.Flags().StringVar(&simGraphFile, "graph", "", "Static graph YAML used instead of the knowledge graph")
	simulateCmd.Flags().StringVar(&simOutFile, "out", "", "Write the result to this JSONL file")
	simulateCmd.Flags().StringVar(&simForecastFile, "forecast-out", "", "Write per-node forecast rows to this JSONL file (requires --out)")
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print the result to STDOUT instead of writing to GreptimeDB")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Show progress and summary in a terminal UI")
	simulateCmd.Flags().IntVar(&simRuns, "runs", 0, "Override the number of Monte Carlo runs")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Batch seed for reproducible runs")
	simulateCmd.Flags().StringVar(&simScheduling, "scheduling", "", "Worklist scheduling (fifo or event)")
}
