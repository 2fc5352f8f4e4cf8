package blockpool

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrExhausted     = errors.New("block pool exhausted")
	ErrClosed        = errors.New("block pool closed")
	ErrBlockSize     = errors.New("block size mismatch")
	ErrCount         = errors.New("allocator serves exactly one element")
	ErrForeignBlock  = errors.New("block not issued by this pool")
	ErrDoubleRelease = errors.New("block already released")
	ErrPointerType   = errors.New("type contains pointers")
	ErrAlignment     = errors.New("block alignment too small for type")
	ErrReleased      = errors.New("already released")
	ErrShared        = errors.New("lease owned by a shared handle")
	ErrLeak          = errors.New("outstanding leases at close")
)

// LeakError is returned by Close when blocks are still out on lease.
type LeakError struct {
	Outstanding int
	Addresses   []uintptr
}

func (self *LeakError) Error() string {
	return fmt.Sprintf("%s [%d]", ErrLeak.Error(), self.Outstanding)
}

func (self *LeakError) Is(target error) bool {
	return target == ErrLeak
}
