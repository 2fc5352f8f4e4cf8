package main

import (
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/michaelquigley/pfxlog"
	_ "github.com/openziti/blockpool/cmd/blockpool/bench"
	"github.com/openziti/blockpool/cmd/blockpool/blockpool"
	_ "github.com/openziti/blockpool/cmd/blockpool/influx"
	"github.com/sirupsen/logrus"
)

func init() {
	pfxlog.Global(logrus.InfoLevel)
	pfxlog.SetPrefix("github.com/openziti/blockpool/")
}

func main() {
	go dumpStacksOnQuit()
	if err := blockpool.RootCmd.Execute(); err != nil {
		logrus.Fatalf("error (%v)", err)
	}
}

// dumpStacksOnQuit writes every goroutine stack to stderr on SIGQUIT and keeps the process running.
func dumpStacksOnQuit() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGQUIT)
	for range quit {
		logrus.Warnf("received SIGQUIT, dumping goroutines")
		if err := pprof.Lookup("goroutine").WriteTo(os.Stderr, 2); err != nil {
			logrus.Errorf("error dumping goroutines (%v)", err)
		}
	}
}
