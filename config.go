package blockpool

import (
	"io/ioutil"

	"github.com/openziti/blockpool/cf"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configVersion = 1

type Config struct {
	BlockSize   int    `cf:"block_size"`
	GrowthBatch int    `cf:"growth_batch"`
	MaxBlocks   int    `cf:"max_blocks"`
	Instrument  string `cf:"instrument"`

	// InstrumentConfig is handed to the selected instrument.
	InstrumentConfig map[string]interface{} `cf:"-"`

	// SystemAllocator backs growth batches; HeapAllocator when nil.
	SystemAllocator SystemAllocator `cf:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		BlockSize:   1024,
		GrowthBatch: 256,
		Instrument:  "nil",
	}
}

// Load overlays the values found in data onto the config. data must carry a matching 'config_version'.
func (self *Config) Load(data map[string]interface{}) error {
	if v, found := data["config_version"]; found {
		if i, ok := v.(int); ok {
			if i != configVersion {
				return errors.Errorf("invalid config version [%d != %d]", i, configVersion)
			}
		} else {
			return errors.New("invalid 'config_version' value")
		}
	} else {
		return errors.New("missing 'config_version'")
	}
	if err := cf.Load(data, self); err != nil {
		return errors.Wrap(err, "unable to load pool config")
	}
	if v, found := data["instrument_config"]; found {
		if m, ok := v.(map[string]interface{}); ok {
			self.InstrumentConfig = m
		} else {
			return errors.New("invalid 'instrument_config' value")
		}
	}
	return nil
}

func (self *Config) Validate() error {
	if self.BlockSize < 1 {
		return errors.Wrapf(ErrBlockSize, "block_size must be positive [%d]", self.BlockSize)
	}
	if self.GrowthBatch < 1 {
		return errors.Errorf("growth_batch must be positive [%d]", self.GrowthBatch)
	}
	if self.MaxBlocks < 0 {
		return errors.Errorf("max_blocks must not be negative [%d]", self.MaxBlocks)
	}
	return nil
}

// LoadConfig reads a YAML document from path and returns the default config overlaid with its 'pool'
// section, or with the document root when no such section exists.
func LoadConfig(path string) (*Config, error) {
	data, err := ReadConfigMap(path)
	if err != nil {
		return nil, err
	}
	if v, found := data["pool"]; found {
		if m, ok := v.(map[string]interface{}); ok {
			data = m
		} else {
			return nil, errors.Errorf("invalid 'pool' section in [%s]", path)
		}
	}
	cfg := DefaultConfig()
	if err := cfg.Load(data); err != nil {
		return nil, errors.Wrapf(err, "error loading [%s]", path)
	}
	return cfg, nil
}

// ReadConfigMap reads a YAML document from path into a string-keyed map.
func ReadConfigMap(path string) (map[string]interface{}, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading [%s]", path)
	}
	data := make(map[string]interface{})
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrapf(err, "error parsing [%s]", path)
	}
	return cf.Normalize(data), nil
}
