package blockpool

import (
	"unsafe"

	"github.com/pkg/errors"
)

// blockAlign is the stride alignment used when carving blocks out of a slab. Every block starts on a
// blockAlign boundary, regardless of the configured block size.
const blockAlign = 16

const maxInt = int(^uint(0) >> 1)

// Block is a region of exactly Size() bytes leased from a BlockPool. len and cap are both the block size.
type Block []byte

func (self Block) addr() uintptr {
	if cap(self) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&self[:1][0]))
}

func stride(blockSz int) int {
	return (blockSz + blockAlign - 1) &^ (blockAlign - 1)
}

// SystemAllocator obtains a slab of sz bytes. It backs every growth batch.
type SystemAllocator func(sz int) ([]byte, error)

// HeapAllocator allocates slabs from the Go heap. Allocation panics raised by the runtime for impossible
// sizes are reported as ErrExhausted; a true out-of-memory condition remains fatal to the process.
func HeapAllocator(sz int) (slab []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			slab = nil
			err = errors.Wrapf(ErrExhausted, "heap allocation of [%d] bytes failed (%v)", sz, r)
		}
	}()
	if sz < 0 || sz > maxInt-blockAlign {
		return nil, errors.Wrapf(ErrExhausted, "invalid slab size [%d]", sz)
	}
	slab = make([]byte, sz+blockAlign)
	offset := int(uintptr(unsafe.Pointer(&slab[0])) & (blockAlign - 1))
	if offset != 0 {
		offset = blockAlign - offset
	}
	return slab[offset : offset+sz : offset+sz], nil
}

// carve obtains one slab large enough for n blocks and splits it into n blocks of blockSz bytes each.
func carve(alloc SystemAllocator, blockSz, n int) ([]Block, error) {
	st := stride(blockSz)
	if n <= 0 {
		return nil, nil
	}
	if n > (maxInt-blockAlign)/st {
		return nil, errors.Wrapf(ErrExhausted, "slab of [%d] blocks of [%d] bytes overflows", n, st)
	}
	slab, err := alloc(n * st)
	if err != nil {
		if errors.Is(err, ErrExhausted) {
			return nil, err
		}
		return nil, errors.Wrap(ErrExhausted, err.Error())
	}
	if len(slab) < n*st {
		return nil, errors.Wrapf(ErrExhausted, "short slab [%d < %d]", len(slab), n*st)
	}
	blocks := make([]Block, n)
	for i := 0; i < n; i++ {
		off := i * st
		blocks[i] = Block(slab[off : off+blockSz : off+blockSz])
	}
	return blocks, nil
}
