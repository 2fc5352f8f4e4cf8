package blockpool

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Shared is a reference-counted handle. Ref adds a reference, Release drops one; the last Release runs
// the handle's release action.
type Shared[T any] struct {
	refs    *int32
	value   *T
	dead    int32
	release func() error
}

// sharedBlock co-locates the reference count with the value, so both live in one allocation.
type sharedBlock[T any] struct {
	refs  int32
	value T
}

// NewShared wraps a lease in a handle with one reference. The handle owns the lease from then on: direct
// Release of the lease fails with ErrShared, and the final Release of the handle destructs the value and
// returns its block.
func NewShared[T any](lease *Lease[T]) (*Shared[T], error) {
	if err := lease.claim(); err != nil {
		return nil, err
	}
	return &Shared[T]{
		refs:    newRefs(),
		value:   lease.value,
		release: func() error { return lease.releaseFrom(leaseShared) },
	}, nil
}

// NewSharedFunc wraps v in a handle with one reference. The final Release calls release with v, when
// release is not nil.
func NewSharedFunc[T any](v *T, release func(*T) error) *Shared[T] {
	self := &Shared[T]{refs: newRefs(), value: v}
	self.release = func() error {
		if release != nil {
			return release(v)
		}
		return nil
	}
	return self
}

// MakeShared constructs a value and its reference count in a single heap allocation.
func MakeShared[T any](construct func(*T) error) (*Shared[T], error) {
	blk := &sharedBlock[T]{refs: 1}
	if construct != nil {
		if err := construct(&blk.value); err != nil {
			return nil, errors.Wrap(err, "construct failed")
		}
	}
	return &Shared[T]{refs: &blk.refs, value: &blk.value, release: func() error { return nil }}, nil
}

// SharedAllocator places a value and its reference count together in one block from a pool.
type SharedAllocator[T any] struct {
	blocks Allocator[sharedBlock[T]]
}

// NewSharedAllocator rebinds alloc to blocks holding a T alongside its reference count. The pool's blocks
// must have room for both.
func NewSharedAllocator[T any](alloc Allocator[T]) (SharedAllocator[T], error) {
	blocks, err := Rebind[sharedBlock[T]](alloc)
	if err != nil {
		return SharedAllocator[T]{}, errors.Wrap(err, "unable to rebind allocator")
	}
	return SharedAllocator[T]{blocks: blocks}, nil
}

func (self SharedAllocator[T]) Pool() *BlockPool {
	return self.blocks.Pool()
}

// New constructs a value in a fresh block and returns a handle with one reference. The final Release
// destructs the value and returns the block.
func (self SharedAllocator[T]) New(construct func(*T) error) (*Shared[T], error) {
	blocks := self.blocks
	blk, err := blocks.Allocate(1)
	if err != nil {
		return nil, err
	}
	if err := constructIn(blocks, blk, func(b *sharedBlock[T]) error {
		b.refs = 1
		if construct != nil {
			return construct(&b.value)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &Shared[T]{
		refs:  &blk.refs,
		value: &blk.value,
		release: func() error {
			destroy(&blk.value)
			return blocks.Deallocate(blk, 1)
		},
	}, nil
}

// AllocateShared is NewSharedAllocator followed by New, for one-off use. Loops should keep a
// SharedAllocator.
func AllocateShared[T any](alloc Allocator[T], construct func(*T) error) (*Shared[T], error) {
	sa, err := NewSharedAllocator(alloc)
	if err != nil {
		return nil, err
	}
	return sa.New(construct)
}

// Get returns the shared value, or nil once the last reference is released.
func (self *Shared[T]) Get() *T {
	if atomic.LoadInt32(&self.dead) != 0 {
		return nil
	}
	return self.value
}

func (self *Shared[T]) Refs() int32 {
	if atomic.LoadInt32(&self.dead) != 0 {
		return 0
	}
	return atomic.LoadInt32(self.refs)
}

func (self *Shared[T]) Ref() error {
	for {
		if atomic.LoadInt32(&self.dead) != 0 {
			return ErrReleased
		}
		refs := atomic.LoadInt32(self.refs)
		if refs < 1 {
			return ErrReleased
		}
		if atomic.CompareAndSwapInt32(self.refs, refs, refs+1) {
			return nil
		}
	}
}

func (self *Shared[T]) Release() error {
	for {
		if atomic.LoadInt32(&self.dead) != 0 {
			return ErrReleased
		}
		refs := atomic.LoadInt32(self.refs)
		if refs < 1 {
			return ErrReleased
		}
		if atomic.CompareAndSwapInt32(self.refs, refs, refs-1) {
			if refs > 1 {
				return nil
			}
			atomic.StoreInt32(&self.dead, 1)
			return self.release()
		}
	}
}

func newRefs() *int32 {
	refs := int32(1)
	return &refs
}
