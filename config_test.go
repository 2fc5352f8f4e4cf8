package blockpool

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Load(map[string]interface{}{
		"config_version":    1,
		"block_size":        1564,
		"growth_batch":      1024,
		"max_blocks":        4096,
		"instrument":        "trace",
		"instrument_config": map[string]interface{}{"leases": true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1564, cfg.BlockSize)
	assert.Equal(t, 1024, cfg.GrowthBatch)
	assert.Equal(t, 4096, cfg.MaxBlocks)
	assert.Equal(t, "trace", cfg.Instrument)
	assert.Equal(t, true, cfg.InstrumentConfig["leases"])
	assert.NoError(t, cfg.Validate())
}

func TestConfigLoadVersion(t *testing.T) {
	assert.Error(t, DefaultConfig().Load(map[string]interface{}{}))
	assert.Error(t, DefaultConfig().Load(map[string]interface{}{"config_version": 2}))
	assert.Error(t, DefaultConfig().Load(map[string]interface{}{"config_version": "1"}))
	assert.Error(t, DefaultConfig().Load(map[string]interface{}{"config_version": 1, "block_size": "big"}))
}

func TestLoadConfigYaml(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockpool-config")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "pool.yml")
	doc := `
pool:
  config_version: 1
  block_size: 1564
  growth_batch: 512
  instrument: trace
  instrument_config:
    growth: false
`
	require.NoError(t, ioutil.WriteFile(path, []byte(doc), os.ModePerm))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1564, cfg.BlockSize)
	assert.Equal(t, 512, cfg.GrowthBatch)
	assert.Equal(t, 0, cfg.MaxBlocks)
	assert.Equal(t, false, cfg.InstrumentConfig["growth"])

	p, err := NewBlockPool("yaml", cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1564, p.Size())
	assert.NoError(t, p.Close())

	_, err = LoadConfig(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}
