package util

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadSamples(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockpool-util")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	now := time.Now()
	in := []*Sample{{Ts: now, V: 3}, {Ts: now.Add(time.Second), V: -1}}
	require.NoError(t, WriteSamples("pops", dir, in))

	out, err := ReadSamples(filepath.Join(dir, "pops.csv"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, now.UnixNano(), out[0].Ts.UnixNano())
	assert.Equal(t, int64(3), out[0].V)
	assert.Equal(t, int64(-1), out[1].V)
}

func TestReadSamplesMalformed(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockpool-util")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, ioutil.WriteFile(path, []byte("1,2\n3\n"), os.ModePerm))
	_, err = ReadSamples(path)
	assert.Error(t, err)
}

func TestDiscoverMetrics(t *testing.T) {
	dir, err := ioutil.TempDir("", "blockpool-util")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(dir) }()

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, os.ModePerm))
	require.NoError(t, WriteMetricsId("blockpool.1", sub, map[string]string{"block_sz": "1564"}))

	found, err := DiscoverMetrics(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	mid, ok := found[sub]
	require.True(t, ok)
	assert.Equal(t, "blockpool.1", mid.Id)
	assert.Equal(t, "1564", mid.Values["block_sz"])
}
