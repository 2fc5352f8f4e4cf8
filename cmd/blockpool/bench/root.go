package bench

import (
	"fmt"

	"github.com/openziti/blockpool/bench"
	"github.com/openziti/blockpool/cf"
	"github.com/openziti/blockpool/cmd/blockpool/blockpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	benchCmd.Flags().IntVarP(&iterations, "iterations", "i", 0, "Allocations per round")
	benchCmd.Flags().IntVarP(&rounds, "rounds", "r", 0, "Timed rounds per scenario")
	benchCmd.Flags().IntVarP(&warmup, "warmup", "w", -1, "Untimed rounds per scenario")
	benchCmd.Flags().IntVarP(&blockSize, "block-size", "b", 0, "Pool block size (in bytes)")
	benchCmd.Flags().IntVarP(&growthBatch, "growth-batch", "g", 0, "Blocks acquired per pool growth")
	benchCmd.Flags().StringVarP(&metricsPath, "metrics-path", "m", "", "Write round timings under this path")
	benchCmd.Flags().StringSliceVarP(&selected, "scenario", "s", nil, fmt.Sprintf("Scenario to run %v", bench.ScenarioNames()))
	benchCmd.Flags().BoolVarP(&configDump, "dump", "d", false, "Dump the processed config")
	blockpool.RootCmd.AddCommand(benchCmd)
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time allocate/release loops through the heap, the pool and the pooled allocator",
	Args:  cobra.NoArgs,
	Run:   runBench,
}
var iterations int
var rounds int
var warmup int
var blockSize int
var growthBatch int
var metricsPath string
var selected []string
var configDump bool

func runBench(_ *cobra.Command, _ []string) {
	cfg := bench.DefaultConfig()
	if blockpool.ConfigPath != "" {
		var err error
		if cfg, err = bench.LoadConfig(blockpool.ConfigPath); err != nil {
			logrus.Fatalf("error loading config (%v)", err)
		}
	}
	if iterations > 0 {
		cfg.Iterations = iterations
	}
	if rounds > 0 {
		cfg.Rounds = rounds
	}
	if warmup >= 0 {
		cfg.Warmup = warmup
	}
	if blockSize > 0 {
		cfg.Pool.BlockSize = blockSize
	}
	if growthBatch > 0 {
		cfg.Pool.GrowthBatch = growthBatch
	}
	if metricsPath != "" {
		cfg.MetricsPath = metricsPath
	}
	if len(selected) > 0 {
		cfg.Scenarios = selected
	}
	if configDump {
		logrus.Infof(cf.Dump("bench", cfg))
		logrus.Infof(cf.Dump("pool", cfg.Pool))
	}

	r, err := bench.NewRunner(cfg)
	if err != nil {
		logrus.Fatalf("error creating runner (%v)", err)
	}
	results, err := r.Run()
	if err != nil {
		logrus.Fatalf("error running bench (%v)", err)
	}
	fmt.Print(results.String())
}
