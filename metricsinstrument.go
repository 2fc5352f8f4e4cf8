package blockpool

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openziti/blockpool/cf"
	"github.com/openziti/blockpool/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type MetricsInstrument struct {
	lock      sync.Mutex
	config    *metricsInstrumentConfig
	instances []*metricsInstrumentInstance
}

type metricsInstrumentConfig struct {
	Path       string `cf:"path"`
	SnapshotMs int    `cf:"snapshot_ms"`
}

func NewMetricsInstrument(config map[string]interface{}) (Instrument, error) {
	i := &MetricsInstrument{
		config: &metricsInstrumentConfig{
			SnapshotMs: 1000,
		},
	}
	if err := cf.Load(config, i.config); err != nil {
		return nil, errors.Wrap(err, "unable to load config")
	}
	if i.config.SnapshotMs < 1 {
		return nil, errors.Errorf("invalid snapshot_ms [%d]", i.config.SnapshotMs)
	}
	logrus.Infof(cf.Dump("config", i.config))
	return i, nil
}

func (self *MetricsInstrument) NewInstance(id string, blockSz int) InstrumentInstance {
	self.lock.Lock()
	defer self.lock.Unlock()
	ii := &metricsInstrumentInstance{
		id:      id,
		blockSz: blockSz,
		close:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	go ii.snapshotter(self.config.SnapshotMs)
	self.instances = append(self.instances, ii)
	return ii
}

// WriteAllSamples writes the samples of every closed instance under the configured path, one directory
// per pool.
func (self *MetricsInstrument) WriteAllSamples() error {
	self.lock.Lock()
	defer self.lock.Unlock()

	if self.config.Path == "" {
		return errors.New("no metrics path configured")
	}
	for _, ii := range self.instances {
		if atomic.LoadInt32(&ii.closed) == 0 {
			logrus.Warnf("skipping open pool [%s]", ii.id)
			continue
		}
		<-ii.done
		if err := os.MkdirAll(self.config.Path, os.ModePerm); err != nil {
			return err
		}
		outPath, err := ioutil.TempDir(self.config.Path, strings.ReplaceAll(fmt.Sprintf("%s_", ii.id), ":", "-"))
		if err != nil {
			return err
		}
		logrus.Infof("writing metrics to: %s", outPath)

		values := map[string]string{"block_sz": fmt.Sprintf("%d", ii.blockSz)}
		if err := util.WriteMetricsId(fmt.Sprintf("blockpool.%d", configVersion), outPath, values); err != nil {
			return err
		}
		for name, samples := range ii.datasets() {
			if err := util.WriteSamples(name, outPath, samples); err != nil {
				return err
			}
		}
	}
	return nil
}

type metricsInstrumentInstance struct {
	id      string
	blockSz int
	close   chan struct{}
	done    chan struct{}
	closed  int32

	growths      []*util.Sample
	growthsAccum int64
	issued       []*util.Sample
	issuedVal    int64
	pops         []*util.Sample
	popsAccum    int64
	pushes       []*util.Sample
	pushesAccum  int64
	leased       []*util.Sample
	leasedVal    int64
	errors       []*util.Sample
	errorsAccum  int64
	leaked       []*util.Sample
	leakedVal    int64
}

/*
 * growth
 */
func (self *metricsInstrumentInstance) Grew(_, issued int) {
	atomic.AddInt64(&self.growthsAccum, 1)
	atomic.StoreInt64(&self.issuedVal, int64(issued))
}

func (self *metricsInstrumentInstance) GrowthFailed(err error) {
	logrus.Errorf("growth failed (%v)", err)
	atomic.AddInt64(&self.errorsAccum, 1)
}

/*
 * leases
 */
func (self *metricsInstrumentInstance) Popped() {
	atomic.AddInt64(&self.popsAccum, 1)
	atomic.AddInt64(&self.leasedVal, 1)
}

func (self *metricsInstrumentInstance) Pushed() {
	atomic.AddInt64(&self.pushesAccum, 1)
	atomic.AddInt64(&self.leasedVal, -1)
}

func (self *metricsInstrumentInstance) ContractViolation(err error) {
	logrus.Errorf("contract violation (%v)", err)
	atomic.AddInt64(&self.errorsAccum, 1)
}

/*
 * lifecycle
 */
func (self *metricsInstrumentInstance) Leaked(outstanding int) {
	atomic.StoreInt64(&self.leakedVal, int64(outstanding))
}

func (self *metricsInstrumentInstance) Closed() {
	if atomic.CompareAndSwapInt32(&self.closed, 0, 1) {
		logrus.Infof("closing snapshotter")
		close(self.close)
	}
}

func (self *metricsInstrumentInstance) snapshotter(ms int) {
	logrus.Infof("started")
	defer logrus.Infof("exited")
	defer close(self.done)

	ticker := time.NewTicker(time.Duration(ms) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			self.snapshot()
		case <-self.close:
			self.snapshot()
			return
		}
	}
}

func (self *metricsInstrumentInstance) snapshot() {
	now := time.Now()
	self.growths = append(self.growths, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.growthsAccum, 0)})
	self.issued = append(self.issued, &util.Sample{Ts: now, V: atomic.LoadInt64(&self.issuedVal)})
	self.pops = append(self.pops, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.popsAccum, 0)})
	self.pushes = append(self.pushes, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.pushesAccum, 0)})
	self.leased = append(self.leased, &util.Sample{Ts: now, V: atomic.LoadInt64(&self.leasedVal)})
	self.errors = append(self.errors, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.errorsAccum, 0)})
	self.leaked = append(self.leaked, &util.Sample{Ts: now, V: atomic.LoadInt64(&self.leakedVal)})
}

func (self *metricsInstrumentInstance) datasets() map[string][]*util.Sample {
	return map[string][]*util.Sample{
		"growths": self.growths,
		"issued":  self.issued,
		"pops":    self.pops,
		"pushes":  self.pushes,
		"leased":  self.leased,
		"errors":  self.errors,
		"leaked":  self.leaked,
	}
}

// PoolDatasets names the sample files written for every pool.
var PoolDatasets = []string{"growths", "issued", "pops", "pushes", "leased", "errors", "leaked"}
