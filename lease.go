package blockpool

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Destroyer is implemented by pooled values with teardown to run before their block is reused.
type Destroyer interface {
	Destroy()
}

const (
	leaseLive int32 = iota
	leaseReleased
	leaseShared
)

// Lease is a value of T constructed in a pooled block. Release destructs the value and returns the block,
// exactly once. A lease wrapped by NewShared belongs to the handle and can no longer be released directly.
type Lease[T any] struct {
	alloc Allocator[T]
	value *T
	state int32
}

// Acquire leases a block, zeroes it and runs construct on the value in place. When construct fails or
// panics the block is returned before the failure propagates.
func Acquire[T any](alloc Allocator[T], construct func(*T) error) (*Lease[T], error) {
	v, err := alloc.Allocate(1)
	if err != nil {
		return nil, err
	}
	if err := constructIn(alloc, v, construct); err != nil {
		return nil, err
	}
	return &Lease[T]{alloc: alloc, value: v}, nil
}

// With runs fn against a freshly constructed value and releases it on every exit path, panics included.
func With[T any](alloc Allocator[T], construct func(*T) error, fn func(*T) error) (err error) {
	lease, err := Acquire(alloc, construct)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lease.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(lease.value)
}

// Value returns the leased value, or nil once released.
func (self *Lease[T]) Value() *T {
	if atomic.LoadInt32(&self.state) == leaseReleased {
		return nil
	}
	return self.value
}

func (self *Lease[T]) Release() error {
	return self.releaseFrom(leaseLive)
}

// claim hands the lease to a shared handle.
func (self *Lease[T]) claim() error {
	if atomic.CompareAndSwapInt32(&self.state, leaseLive, leaseShared) {
		return nil
	}
	return self.stateError()
}

func (self *Lease[T]) releaseFrom(from int32) error {
	if !atomic.CompareAndSwapInt32(&self.state, from, leaseReleased) {
		return self.stateError()
	}
	destroy(self.value)
	return self.alloc.Deallocate(self.value, 1)
}

func (self *Lease[T]) stateError() error {
	if atomic.LoadInt32(&self.state) == leaseShared {
		return ErrShared
	}
	return ErrReleased
}

func constructIn[T any](alloc Allocator[T], v *T, construct func(*T) error) (err error) {
	var zero T
	*v = zero
	if construct == nil {
		return nil
	}
	constructed := false
	defer func() {
		if !constructed {
			*v = zero
			_ = alloc.Deallocate(v, 1)
		}
	}()
	if err := construct(v); err != nil {
		return errors.Wrap(err, "construct failed")
	}
	constructed = true
	return nil
}

func destroy[T any](v *T) {
	if d, ok := any(v).(Destroyer); ok {
		d.Destroy()
	}
	var zero T
	*v = zero
}
