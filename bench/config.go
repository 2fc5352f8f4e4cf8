package bench

import (
	"unsafe"

	"github.com/openziti/blockpool"
	"github.com/openziti/blockpool/cf"
	"github.com/pkg/errors"
)

type Config struct {
	Iterations  int      `cf:"iterations"`
	Rounds      int      `cf:"rounds"`
	Warmup      int      `cf:"warmup"`
	Scenarios   []string `cf:"scenarios"`
	MetricsPath string   `cf:"metrics_path"`

	Pool *blockpool.Config `cf:"-"`
}

// DefaultConfig sizes the pool's blocks for a packet plus a 32 byte allowance for a co-located control
// block.
func DefaultConfig() *Config {
	pool := blockpool.DefaultConfig()
	pool.BlockSize = int(unsafe.Sizeof(Packet{})) + 32
	return &Config{
		Iterations: 1000 * 1000,
		Rounds:     3,
		Warmup:     0,
		Scenarios:  ScenarioNames(),
		Pool:       pool,
	}
}

// Load overlays the 'bench' and 'pool' sections of a config document.
func (self *Config) Load(data map[string]interface{}) error {
	if v, found := data["bench"]; found {
		m, ok := v.(map[string]interface{})
		if !ok {
			return errors.New("invalid 'bench' section")
		}
		if err := cf.Load(m, self); err != nil {
			return errors.Wrap(err, "unable to load bench config")
		}
	}
	if v, found := data["pool"]; found {
		m, ok := v.(map[string]interface{})
		if !ok {
			return errors.New("invalid 'pool' section")
		}
		if err := self.Pool.Load(m); err != nil {
			return err
		}
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := blockpool.ReadConfigMap(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := cfg.Load(data); err != nil {
		return nil, errors.Wrapf(err, "error loading [%s]", path)
	}
	return cfg, nil
}

func (self *Config) Validate() error {
	if self.Iterations < 1 {
		return errors.Errorf("iterations must be positive [%d]", self.Iterations)
	}
	if self.Rounds < 1 {
		return errors.Errorf("rounds must be positive [%d]", self.Rounds)
	}
	if self.Warmup < 0 {
		return errors.Errorf("warmup must not be negative [%d]", self.Warmup)
	}
	if len(self.Scenarios) < 1 {
		return errors.New("no scenarios selected")
	}
	for _, name := range self.Scenarios {
		if _, err := scenarioNamed(name); err != nil {
			return err
		}
	}
	if self.Pool == nil {
		return errors.New("no pool config")
	}
	if self.Pool.Instrument == "metrics" {
		if _, found := self.Pool.InstrumentConfig["path"]; !found {
			return errors.New("metrics instrument requires 'instrument_config.path'")
		}
	}
	return self.Pool.Validate()
}
