package blockpool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&doCpuProfile, "cpu", false, "Enable CPU profiling")
	RootCmd.PersistentFlags().BoolVar(&doMemoryProfile, "memory", false, "Enable memory profiling")
	RootCmd.PersistentFlags().BoolVar(&doMutexProfile, "mutex", false, "Enable mutex profiling")
	RootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "Config file path")
}

var RootCmd = &cobra.Command{
	Use:   strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0])),
	Short: "Fixed-block memory pool benchmarks",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		// pkg/profile allows a single active profile
		switch {
		case doCpuProfile:
			activeProfile = profile.Start(profile.CPUProfile)
		case doMemoryProfile:
			activeProfile = profile.Start(profile.MemProfile)
		case doMutexProfile:
			activeProfile = profile.Start(profile.MutexProfile)
		}
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if activeProfile != nil {
			activeProfile.Stop()
		}
	},
}
var verbose bool
var doCpuProfile bool
var doMemoryProfile bool
var doMutexProfile bool
var activeProfile interface{ Stop() }
var ConfigPath string
