package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/worldline-dev/worldline"
	"github.com/worldline-dev/worldline/genarg"
	"github.com/worldline-dev/worldline/gendriver"
	"github.com/worldline-dev/worldline/report"
)

var (
	concurrencyFlag   int
	repetitionsFlag   int
	searchThreadsFlag int
	numTestsFlag      int
	maxShrinkFlag     int
	seedFlag          int64
	buggyPutFlag      bool
	racyIncFlag       bool
	reportStyleFlag   string
	configFileFlag    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and check concurrent histories against the key-value store",
	Run:   runCommand,
}

func init() {
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 2, "number of concurrent threads per generated trial")
	runCmd.Flags().IntVar(&repetitionsFlag, "repetitions", 5, "number of fresh-system replays per generated trial")
	runCmd.Flags().IntVar(&searchThreadsFlag, "search-threads", 0, "search engine worker count (0 = NumCPU)")
	runCmd.Flags().IntVar(&numTestsFlag, "num-tests", 0, "number of generated trials (0 = library default)")
	runCmd.Flags().IntVar(&maxShrinkFlag, "max-shrink", 50, "maximum shrink attempts after a failing trial")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "random seed (0 = derived from current time)")
	runCmd.Flags().BoolVar(&buggyPutFlag, "buggy-put", false, "inject a bug: Put silently stores value+1")
	runCmd.Flags().BoolVar(&racyIncFlag, "racy-inc", false, "inject a bug: Inc reads and writes without a single held lock, losing concurrent updates")
	runCmd.Flags().StringVar(&reportStyleFlag, "report-style", "", "reporter style: verbose, terse, dots, silent (default resolves from WORLDLINE_REPORT_STYLE)")
	runCmd.Flags().StringVar(&configFileFlag, "config", "", "path to a TOML file overriding concurrency/repetitions/search-threads/deadline")
}

func runCommand(cmd *cobra.Command, args []string) {
	fileCfg, err := loadFileConfig(configFileFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("couldn't load config file")
	}

	reporterCfg := report.Config{}
	if reportStyleFlag != "" {
		reporterCfg.Style = report.Style(reportStyleFlag)
	} else if fileCfg != nil && fileCfg.ReportStyle != "" {
		reporterCfg.Style = report.Style(fileCfg.ReportStyle)
	}
	reporter := report.NewConsoleReporter(os.Stderr, reporterCfg)

	opGens := []worldline.OpGen[*kvStore, kvModel, demoCtx]{putOp(), getOp(), incOp()}

	opts := []worldline.Option[*kvStore, kvModel, demoCtx]{
		worldline.WithContextGen[*kvStore, kvModel, demoCtx](genarg.Const(demoCtx{Keys: []string{"alpha", "beta", "gamma"}})),
		worldline.WithInitSystem[*kvStore, kvModel, demoCtx](func(ctx demoCtx) (*kvStore, error) {
			return newKVStore(buggyPutFlag, racyIncFlag), nil
		}),
		worldline.WithInitModel[*kvStore, kvModel, demoCtx](func(ctx demoCtx) kvModel {
			return make(kvModel)
		}),
		worldline.WithConcurrency[*kvStore, kvModel, demoCtx](concurrencyFlag),
		worldline.WithRepetitions[*kvStore, kvModel, demoCtx](repetitionsFlag),
		worldline.WithReporter[*kvStore, kvModel, demoCtx](reporter),
	}
	if searchThreadsFlag > 0 {
		opts = append(opts, worldline.WithSearchThreads[*kvStore, kvModel, demoCtx](searchThreadsFlag))
	}
	opts = worldline.ApplyFileConfig[*kvStore, kvModel, demoCtx](fileCfg, opts)

	iterOpts := gendriver.Config{Seed: seedFlag, NumTests: numTestsFlag, MaxShrink: maxShrinkFlag}

	fmt.Fprintln(os.Stderr, color.Cyan.Sprint("checking key-value store..."))

	summary := worldline.CheckSystem[*kvStore, kvModel, demoCtx](
		"kv store linearizes under concurrent put/get/inc",
		iterOpts,
		opGens,
		opts...,
	)

	fmt.Fprintln(os.Stderr)
	if summary.Result == "pass" {
		fmt.Fprintln(os.Stderr, color.Green.Sprintf("✓ %d trials passed (seed=%d)", summary.NumTests, summary.Seed))
		return
	}

	fmt.Fprintln(os.Stderr, color.Red.Sprintf("✗ failed after %d trials (seed=%d)", summary.NumTests, summary.Seed))
	if summary.Shrunk != nil {
		fmt.Fprintf(os.Stderr, "shrunk to %d thread(s) after %d shrink step(s), %d total nodes visited\n",
			len(summary.Shrunk.Smallest.Threads), summary.Shrunk.Depth, summary.Shrunk.TotalNodesVisited)
		if summary.Shrunk.Outcome.Err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", summary.Shrunk.Outcome.Err)
		}
	}
	os.Exit(1)
}

func loadFileConfig(path string) (*worldline.FileConfig, error) {
	if path == "" {
		return nil, nil
	}
	return worldline.LoadOptionsFile(path)
}
