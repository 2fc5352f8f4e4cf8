package blockpool

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Allocator places single values of T in blocks leased from a BlockPool. It neither constructs nor
// destructs: Allocate hands out storage as the previous lessee left it, and Deallocate expects the value to
// be inert already.
//
// T must be free of pointers, fit in one block and need no more than 16 byte alignment.
type Allocator[T any] struct {
	pool   *BlockPool
	layout layout
}

func NewAllocator[T any](pool *BlockPool) (Allocator[T], error) {
	if pool == nil {
		return Allocator[T]{}, errors.New("nil pool")
	}
	l, err := layoutOf[T]()
	if err != nil {
		return Allocator[T]{}, err
	}
	if err := l.check(pool.Size()); err != nil {
		return Allocator[T]{}, err
	}
	return Allocator[T]{pool: pool, layout: l}, nil
}

// Rebind returns an allocator for U drawing from the same pool as a.
func Rebind[U, T any](a Allocator[T]) (Allocator[U], error) {
	return NewAllocator[U](a.pool)
}

func (self Allocator[T]) Pool() *BlockPool {
	return self.pool
}

// Equal reports whether other draws from the same pool. Allocators over different pools are never equal,
// whatever their element types.
func (self Allocator[T]) Equal(other interface{ Pool() *BlockPool }) bool {
	return other != nil && self.pool != nil && self.pool == other.Pool()
}

func (self Allocator[T]) Allocate(count int) (*T, error) {
	if count != 1 {
		return nil, errors.Wrapf(ErrCount, "allocate [%d]", count)
	}
	if self.pool == nil {
		return nil, errors.New("allocator has no pool")
	}
	block, err := self.pool.Pop()
	if err != nil {
		return nil, err
	}
	if !self.layout.aligned(block) {
		_ = self.pool.Push(block)
		return nil, errors.Wrapf(ErrAlignment, "block [%#x] for [%s]", block.addr(), self.layout.typ)
	}
	return (*T)(unsafe.Pointer(&block[0])), nil
}

func (self Allocator[T]) Deallocate(p *T, count int) error {
	if count != 1 {
		return errors.Wrapf(ErrCount, "deallocate [%d]", count)
	}
	if p == nil {
		return errors.Wrap(ErrForeignBlock, "nil pointer")
	}
	if self.pool == nil {
		return errors.New("allocator has no pool")
	}
	return self.pool.release(unsafe.Pointer(p))
}
