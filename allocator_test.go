package blockpool

import (
	"log"
	"testing"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type packet struct {
	seq  uint32
	data [1500]byte
}

type header struct {
	id    uint64
	flags uint16
}

type pointerful struct {
	name string
}

func TestNewAllocatorChecksLayout(t *testing.T) {
	p, _ := newTestPool(t, 64, 4)

	_, err := NewAllocator[header](p)
	assert.NoError(t, err)

	_, err = NewAllocator[packet](p)
	assert.True(t, errors.Is(err, ErrBlockSize))

	_, err = NewAllocator[pointerful](p)
	assert.True(t, errors.Is(err, ErrPointerType))

	_, err = NewAllocator[*header](p)
	assert.True(t, errors.Is(err, ErrPointerType))

	_, err = NewAllocator[[]byte](p)
	assert.True(t, errors.Is(err, ErrPointerType))

	_, err = NewAllocator[[4]uint64](p)
	assert.NoError(t, err)

	_, err = NewAllocator[header](nil)
	assert.Error(t, err)
	assert.NoError(t, p.Close())
}

func TestAllocateDeallocate(t *testing.T) {
	p, ci := newTestPool(t, 64, 4)
	a, err := NewAllocator[header](p)
	require.NoError(t, err)

	h, err := a.Allocate(1)
	require.NoError(t, err)
	h.id = 42
	h.flags = 7
	assert.Equal(t, uintptr(0), uintptr(unsafe.Pointer(h))%unsafe.Alignof(*h))
	assert.Equal(t, 1, p.Stats().Leased)

	assert.NoError(t, a.Deallocate(h, 1))
	assert.Equal(t, 0, p.Stats().Leased)
	assert.True(t, errors.Is(a.Deallocate(h, 1), ErrDoubleRelease))
	assert.True(t, errors.Is(a.Deallocate(&header{}, 1), ErrForeignBlock))
	assert.True(t, errors.Is(a.Deallocate(nil, 1), ErrForeignBlock))
	assert.Equal(t, 1, ci.pushes)
	assert.NoError(t, p.Close())
}

func TestAllocateCountMustBeOne(t *testing.T) {
	p, _ := newTestPool(t, 64, 4)
	a, err := NewAllocator[header](p)
	require.NoError(t, err)

	_, err = a.Allocate(0)
	assert.True(t, errors.Is(err, ErrCount))
	_, err = a.Allocate(2)
	assert.True(t, errors.Is(err, ErrCount))
	assert.Equal(t, 0, p.Stats().Issued)

	h, err := a.Allocate(1)
	require.NoError(t, err)
	assert.True(t, errors.Is(a.Deallocate(h, 2), ErrCount))
	assert.NoError(t, a.Deallocate(h, 1))
	assert.NoError(t, p.Close())
}

func TestAllocatorEquality(t *testing.T) {
	p0, _ := newTestPool(t, 64, 4)
	p1, _ := newTestPool(t, 64, 4)

	a0, err := NewAllocator[header](p0)
	require.NoError(t, err)
	a0b, err := NewAllocator[header](p0)
	require.NoError(t, err)
	a1, err := NewAllocator[header](p1)
	require.NoError(t, err)
	r0, err := Rebind[[8]uint32](a0)
	require.NoError(t, err)

	assert.True(t, a0.Equal(a0b))
	assert.True(t, a0.Equal(r0))
	assert.True(t, r0.Equal(a0))
	assert.False(t, a0.Equal(a1))
	assert.False(t, a1.Equal(r0))
	assert.Equal(t, p0, r0.Pool())
	assert.False(t, Allocator[header]{}.Equal(Allocator[header]{}))
}

func TestMisalignedSlab(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockSize = 64
	cfg.GrowthBatch = 1
	cfg.SystemAllocator = func(sz int) ([]byte, error) {
		slab, err := HeapAllocator(sz + blockAlign)
		if err != nil {
			return nil, err
		}
		return slab[1 : sz+1], nil
	}
	p, err := NewBlockPool("misaligned", cfg, nil)
	require.NoError(t, err)
	a, err := NewAllocator[header](p)
	require.NoError(t, err)

	_, err = a.Allocate(1)
	assert.True(t, errors.Is(err, ErrAlignment))
	assert.Equal(t, 0, p.Stats().Leased)
	assert.NoError(t, p.Close())
}

// Block size 1500+64, a million blocks reserved up front and leased through the adapter.
func TestAdapterMillionScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping million block scenario in short mode")
	}
	total := 1000000
	p, ci := newTestPool(t, 1500+64, 256)
	require.NoError(t, p.Reserve(total))
	assert.Equal(t, 1, ci.growths)

	a, err := NewAllocator[packet](p)
	require.NoError(t, err)

	held := make([]*packet, 0, total)
	start := time.Now()
	for i := 0; i < total; i++ {
		pkt, err := a.Allocate(1)
		if err != nil {
			t.Fatal(err)
		}
		pkt.seq = uint32(i)
		held = append(held, pkt)
	}
	for _, pkt := range held {
		if err := a.Deallocate(pkt, 1); err != nil {
			t.Fatal(err)
		}
	}
	seconds := time.Since(start).Seconds()
	log.Printf("%d allocate/deallocate, %.2f seconds, %.2f allocate/deallocate/sec", total, seconds, float64(total)/seconds)

	assert.Equal(t, 1, ci.growths)
	assert.Equal(t, total, p.Stats().Free)
	assert.NoError(t, p.Close())
}
