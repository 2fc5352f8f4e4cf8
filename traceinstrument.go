package blockpool

import (
	"sync/atomic"

	"github.com/openziti/blockpool/cf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type traceInstrument struct {
	config *traceInstrumentConfig
}

type traceInstrumentConfig struct {
	Growth bool `cf:"growth"`
	Leases bool `cf:"leases"`
	Error  bool `cf:"error"`
}

func NewTraceInstrument(config map[string]interface{}) (Instrument, error) {
	i := &traceInstrument{
		config: &traceInstrumentConfig{Growth: true, Error: true},
	}
	if err := cf.Load(config, i.config); err != nil {
		return nil, errors.Wrap(err, "unable to load config")
	}
	logrus.Infof(cf.Dump("config", i.config))
	return i, nil
}

func (self *traceInstrument) NewInstance(id string, blockSz int) InstrumentInstance {
	return &traceInstrumentInstance{
		log: logrus.WithField("pool", id).WithField("block_sz", blockSz),
		i:   self,
	}
}

type traceInstrumentInstance struct {
	log    *logrus.Entry
	i      *traceInstrument
	leased int64
}

/*
 * growth
 */
func (self *traceInstrumentInstance) Grew(blocks, issued int) {
	if self.i.config.Growth {
		self.log.Infof("grew by [%d] blocks, [%d] issued", blocks, issued)
	}
}

func (self *traceInstrumentInstance) GrowthFailed(err error) {
	if self.i.config.Error {
		self.log.Errorf("growth failed (%v)", err)
	}
}

/*
 * leases
 */
func (self *traceInstrumentInstance) Popped() {
	leased := atomic.AddInt64(&self.leased, 1)
	if self.i.config.Leases {
		self.log.Infof("pop, [%d] leased", leased)
	}
}

func (self *traceInstrumentInstance) Pushed() {
	leased := atomic.AddInt64(&self.leased, -1)
	if self.i.config.Leases {
		self.log.Infof("push, [%d] leased", leased)
	}
}

func (self *traceInstrumentInstance) ContractViolation(err error) {
	if self.i.config.Error {
		self.log.Errorf("contract violation (%v)", err)
	}
}

/*
 * lifecycle
 */
func (self *traceInstrumentInstance) Leaked(outstanding int) {
	self.log.Warnf("[%d] blocks leaked", outstanding)
}

func (self *traceInstrumentInstance) Closed() {
	self.log.Info("closed")
}
