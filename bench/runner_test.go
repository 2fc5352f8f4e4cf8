package bench

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/openziti/blockpool/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Iterations = 1000
	cfg.Rounds = 2
	cfg.Warmup = 1
	cfg.Pool.GrowthBatch = 16
	return cfg
}

func TestRunAllScenarios(t *testing.T) {
	r, err := NewRunner(testConfig())
	require.NoError(t, err)
	results, err := r.Run()
	require.NoError(t, err)

	all := results.All()
	require.Len(t, all, len(ScenarioNames()))
	for i, res := range all {
		assert.Equal(t, ScenarioNames()[i], res.Name)
		assert.Len(t, res.Samples, 2)
		assert.True(t, res.Min() <= res.Mean())
		assert.True(t, res.Mean() <= res.Max())
	}
	assert.Equal(t, 1, results.Reserved)
	assert.Equal(t, 0, results.Growths)
	_, found := results.Get("allocate_shared")
	assert.True(t, found)
	_, found = results.Get("bogus")
	assert.False(t, found)
	t.Log(results.String())
}

func TestRunHeapOnlySkipsReserve(t *testing.T) {
	cfg := testConfig()
	cfg.Scenarios = []string{"make_shared", "raw_new_delete"}
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	results, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, results.Reserved)
	assert.Len(t, results.All(), 2)
}

func TestRunFailsPastMaxBlocks(t *testing.T) {
	cfg := testConfig()
	cfg.Scenarios = []string{"pool_raw"}
	cfg.Pool.MaxBlocks = 10
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	_, err = r.Run()
	assert.Error(t, err)
}

func TestRunWritesResults(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockpool-bench")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	cfg := testConfig()
	cfg.Scenarios = []string{"pool_raw", "allocate_shared"}
	cfg.MetricsPath = dir
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	_, err = r.Run()
	require.NoError(t, err)

	found, err := util.DiscoverMetrics(dir)
	require.NoError(t, err)
	mid, ok := found[dir]
	require.True(t, ok)
	assert.Equal(t, MetricsId, mid.Id)
	assert.Equal(t, "1000", mid.Values["iterations"])
	assert.Equal(t, "pool_raw,allocate_shared", mid.Values["scenarios"])

	samples, err := util.ReadSamples(filepath.Join(dir, "pool_raw.csv"))
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestRunWritesPoolMetrics(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockpool-bench")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	cfg := testConfig()
	cfg.Scenarios = []string{"pool_raw"}
	cfg.Pool.Instrument = "metrics"
	cfg.Pool.InstrumentConfig = map[string]interface{}{"path": dir, "snapshot_ms": 5}
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	_, err = r.Run()
	require.NoError(t, err)

	found, err := util.DiscoverMetrics(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	for root, mid := range found {
		assert.Equal(t, "blockpool.1", mid.Id)
		pops, err := util.ReadSamples(filepath.Join(root, "pops.csv"))
		require.NoError(t, err)
		var total int64
		for _, s := range pops {
			total += s.V
		}
		assert.Equal(t, int64(3*1000), total)
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Scenarios = []string{"bogus"}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Iterations = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Scenarios = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Pool.BlockSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Pool.Instrument = "metrics"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Pool.BlockSize = 100
	cfg.Iterations = 10
	r, err := NewRunner(cfg)
	require.NoError(t, err)
	_, err = r.Run()
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockpool-bench")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "bench.yml")
	doc := `
bench:
  iterations: 5000
  rounds: 4
  scenarios:
    - pool_raw
pool:
  config_version: 1
  block_size: 1564
  growth_batch: 128
`
	require.NoError(t, ioutil.WriteFile(path, []byte(doc), os.ModePerm))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Iterations)
	assert.Equal(t, 4, cfg.Rounds)
	assert.Equal(t, []string{"pool_raw"}, cfg.Scenarios)
	assert.Equal(t, 1564, cfg.Pool.BlockSize)
	assert.Equal(t, 128, cfg.Pool.GrowthBatch)
	assert.NoError(t, cfg.Validate())
}
