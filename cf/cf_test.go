package cf

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	BlockSize  int      `cf:"block_size"`
	Batch      uint32   `cf:"growth_batch"`
	Scale      float64  `cf:"scale"`
	Verbose    bool     `cf:"verbose"`
	Instrument string   `cf:"instrument"`
	Scenarios  []string `cf:"scenarios"`
	Hook       func()   `cf:"-"`
	Untagged   int
}

func TestLoad(t *testing.T) {
	c := &testConfig{BlockSize: 1024, Batch: 256}
	d := make(map[string]interface{})
	d["block_size"] = 1564
	d["growth_batch"] = 512
	d["scale"] = 2
	d["verbose"] = true
	d["instrument"] = "trace"
	d["scenarios"] = []interface{}{"pool_raw", "allocate_shared"}
	d["Untagged"] = 7
	d["-"] = "ignored"
	assert.NoError(t, Load(d, c))
	assert.Equal(t, 1564, c.BlockSize)
	assert.Equal(t, uint32(512), c.Batch)
	assert.Equal(t, 2.0, c.Scale)
	assert.True(t, c.Verbose)
	assert.Equal(t, "trace", c.Instrument)
	assert.Equal(t, []string{"pool_raw", "allocate_shared"}, c.Scenarios)
	assert.Equal(t, 7, c.Untagged)
	assert.Nil(t, c.Hook)
	fmt.Println(Dump("config", c))
}

func TestLoadMismatch(t *testing.T) {
	c := &testConfig{}
	assert.Error(t, Load(map[string]interface{}{"block_size": "big"}, c))
	assert.Error(t, Load(map[string]interface{}{"growth_batch": -1}, c))
	assert.Error(t, Load(map[string]interface{}{"verbose": 1}, c))
	assert.Error(t, Load(map[string]interface{}{}, *c))
}

func TestDumpSkipsIgnored(t *testing.T) {
	out := Dump("config", &testConfig{BlockSize: 64})
	assert.Contains(t, out, "block_size")
	assert.NotContains(t, out, "Hook")
}

func TestNormalize(t *testing.T) {
	in := map[string]interface{}{
		"pool": map[interface{}]interface{}{
			"block_size": 64,
			"nested":     []interface{}{map[interface{}]interface{}{1: "one"}},
		},
	}
	out := Normalize(in)
	pool, ok := out["pool"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, 64, pool["block_size"])
	nested := pool["nested"].([]interface{})
	assert.Equal(t, map[string]interface{}{"1": "one"}, nested[0])
}
