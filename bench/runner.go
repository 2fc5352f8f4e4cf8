package bench

import (
	"fmt"
	"time"

	"github.com/openziti/blockpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Runner struct {
	cfg *Config
}

func NewRunner(cfg *Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid bench config")
	}
	return &Runner{cfg: cfg}, nil
}

// Run executes every selected scenario against a fresh pool and closes the pool afterwards. A leak
// reported by the pool fails the run.
func (self *Runner) Run() (*Results, error) {
	i, err := blockpool.NewInstrument(self.cfg.Pool.Instrument, self.cfg.Pool.InstrumentConfig)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create instrument")
	}
	pool, err := blockpool.NewBlockPool("bench", self.cfg.Pool, i)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pool")
	}
	alloc, err := blockpool.NewAllocator[Packet](pool)
	if err != nil {
		_ = pool.Close()
		return nil, errors.Wrap(err, "unable to create allocator")
	}
	shared, err := blockpool.NewSharedAllocator(alloc)
	if err != nil {
		_ = pool.Close()
		return nil, errors.Wrap(err, "unable to create shared allocator")
	}
	env := &env{
		pool:    pool,
		alloc:   alloc,
		shared:  shared,
		handles: make([]*blockpool.Shared[Packet], 0, self.cfg.Iterations),
		packets: make([]*Packet, 0, self.cfg.Iterations),
		blocks:  make([]blockpool.Block, 0, self.cfg.Iterations),
	}

	var selected []*Scenario
	pooled := false
	for _, name := range self.cfg.Scenarios {
		s, err := scenarioNamed(name)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		selected = append(selected, s)
		pooled = pooled || s.Pooled
	}

	results := newResults(self.cfg.Iterations)
	if pooled {
		start := time.Now()
		if err := pool.Reserve(self.cfg.Iterations); err != nil {
			_ = pool.Close()
			return nil, errors.Wrap(err, "unable to reserve")
		}
		logrus.Infof("reserved [%d] blocks of [%d] bytes in [%v]", self.cfg.Iterations, pool.Size(), time.Since(start))
	}
	results.Reserved = pool.Stats().Growths

	for order, s := range selected {
		if err := self.run(order, s, env, results); err != nil {
			if cerr := pool.Close(); cerr != nil {
				logrus.Errorf("error closing pool (%v)", cerr)
			}
			return results, err
		}
	}

	results.Growths = pool.Stats().Growths - results.Reserved
	if results.Growths > 0 {
		logrus.Warnf("[%d] growths after reserve", results.Growths)
	}
	if err := pool.Close(); err != nil {
		return results, errors.Wrap(err, "pool teardown")
	}
	if mi, ok := i.(*blockpool.MetricsInstrument); ok {
		if err := mi.WriteAllSamples(); err != nil {
			return results, errors.Wrap(err, "error writing pool metrics")
		}
	}

	if self.cfg.MetricsPath != "" {
		values := map[string]string{
			"block_sz":     fmt.Sprintf("%d", pool.Size()),
			"growth_batch": fmt.Sprintf("%d", self.cfg.Pool.GrowthBatch),
			"rounds":       fmt.Sprintf("%d", self.cfg.Rounds),
		}
		if err := results.Write(self.cfg.MetricsPath, values); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (self *Runner) run(order int, s *Scenario, env *env, results *Results) error {
	for i := 0; i < self.cfg.Warmup; i++ {
		if err := s.Run(env, self.cfg.Iterations); err != nil {
			return errors.Wrapf(err, "scenario [%s] warmup [%d]", s.Name, i)
		}
	}
	r := results.result(order, s.Name)
	for i := 0; i < self.cfg.Rounds; i++ {
		start := time.Now()
		if err := s.Run(env, self.cfg.Iterations); err != nil {
			return errors.Wrapf(err, "scenario [%s] round [%d]", s.Name, i)
		}
		elapsed := time.Since(start)
		r.add(start, elapsed)
		logrus.Infof("%s: [%d] ms", s.Name, elapsed.Milliseconds())
	}
	return nil
}
