package blockpool

import (
	"sort"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BlockPool leases fixed-size blocks from a free list, growing the list a slab at a time when it runs dry.
// A BlockPool is safe for concurrent use. Blocks are never returned to the system until Close.
type BlockPool struct {
	id      string
	blockSz int
	batch   int
	max     int
	alloc   SystemAllocator
	ii      InstrumentInstance

	lock    sync.Mutex
	free    []Block
	state   map[uintptr]bool // issued blocks; true while on the free list
	issued  int
	growths int
	closed  bool
}

type Stats struct {
	BlockSize int
	Issued    int
	Free      int
	Leased    int
	Growths   int
}

// NewBlockPool creates an empty pool from cfg. When i is nil the instrument named by cfg is used.
func NewBlockPool(id string, cfg *Config, i Instrument) (*BlockPool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if i == nil {
		var err error
		if i, err = NewInstrument(cfg.Instrument, cfg.InstrumentConfig); err != nil {
			return nil, errors.Wrap(err, "unable to create instrument")
		}
	}
	alloc := cfg.SystemAllocator
	if alloc == nil {
		alloc = HeapAllocator
	}
	return &BlockPool{
		id:      id,
		blockSz: cfg.BlockSize,
		batch:   cfg.GrowthBatch,
		max:     cfg.MaxBlocks,
		alloc:   alloc,
		ii:      i.NewInstance(id, cfg.BlockSize),
		state:   make(map[uintptr]bool),
	}, nil
}

func (self *BlockPool) Id() string {
	return self.id
}

// Size returns the fixed block size served by the pool.
func (self *BlockPool) Size() int {
	return self.blockSz
}

// Pop leases one block, growing the pool by a full batch first when no block is free. The returned block
// holds whatever its previous lessee left in it.
func (self *BlockPool) Pop() (Block, error) {
	self.lock.Lock()
	if self.closed {
		self.lock.Unlock()
		return nil, ErrClosed
	}
	grew := 0
	if len(self.free) == 0 {
		n := self.batch
		if self.max > 0 && self.issued+n > self.max {
			n = self.max - self.issued
		}
		if err := self.grow(n); err != nil {
			self.lock.Unlock()
			self.ii.GrowthFailed(err)
			return nil, err
		}
		grew = n
	}
	last := len(self.free) - 1
	block := self.free[last]
	self.free[last] = nil
	self.free = self.free[:last]
	self.state[block.addr()] = false
	issued := self.issued
	self.lock.Unlock()

	if grew > 0 {
		self.ii.Grew(grew, issued)
	}
	self.ii.Popped()
	return block, nil
}

// Push returns a leased block to the free list. Any object occupying the block must already be destructed.
func (self *BlockPool) Push(block Block) error {
	if len(block) != self.blockSz || cap(block) != self.blockSz {
		err := errors.Wrapf(ErrBlockSize, "pushed [%d/%d] bytes into pool of [%d]", len(block), cap(block), self.blockSz)
		self.ii.ContractViolation(err)
		return err
	}
	return self.release(unsafe.Pointer(&block[0]))
}

// release returns the block starting at ptr. The block slice is only rebuilt once ptr is known to be the
// start of a block issued by this pool.
func (self *BlockPool) release(ptr unsafe.Pointer) error {
	if err := self.checkIn(ptr); err != nil {
		self.ii.ContractViolation(err)
		return err
	}
	self.ii.Pushed()
	return nil
}

func (self *BlockPool) checkIn(ptr unsafe.Pointer) error {
	addr := uintptr(ptr)

	self.lock.Lock()
	defer self.lock.Unlock()

	if self.closed {
		return ErrClosed
	}
	free, found := self.state[addr]
	if !found {
		return errors.Wrapf(ErrForeignBlock, "block [%#x]", addr)
	}
	if free {
		return errors.Wrapf(ErrDoubleRelease, "block [%#x]", addr)
	}
	self.state[addr] = true
	self.free = append(self.free, Block(unsafe.Slice((*byte)(ptr), self.blockSz)))
	return nil
}

// Reserve ensures at least n blocks are free, growing by the shortfall in a single batch.
func (self *BlockPool) Reserve(n int) error {
	if n < 0 {
		return errors.Errorf("invalid reserve count [%d]", n)
	}
	if n > (maxInt-blockAlign)/stride(self.blockSz) {
		err := errors.Wrapf(ErrExhausted, "reserve of [%d] blocks of [%d] bytes overflows", n, self.blockSz)
		self.ii.GrowthFailed(err)
		return err
	}

	self.lock.Lock()
	if self.closed {
		self.lock.Unlock()
		return ErrClosed
	}
	shortfall := n - len(self.free)
	if shortfall <= 0 {
		self.lock.Unlock()
		return nil
	}
	if self.max > 0 && self.issued+shortfall > self.max {
		err := errors.Wrapf(ErrExhausted, "reserving [%d] would exceed [%d] blocks", n, self.max)
		self.lock.Unlock()
		self.ii.GrowthFailed(err)
		return err
	}
	if err := self.grow(shortfall); err != nil {
		self.lock.Unlock()
		self.ii.GrowthFailed(err)
		return err
	}
	issued := self.issued
	self.lock.Unlock()

	self.ii.Grew(shortfall, issued)
	return nil
}

// grow must be called with the lock held. The pool is unchanged when it fails.
func (self *BlockPool) grow(n int) error {
	if n <= 0 {
		return errors.Wrapf(ErrExhausted, "pool [%s] at limit of [%d] blocks", self.id, self.max)
	}
	blocks, err := carve(self.alloc, self.blockSz, n)
	if err != nil {
		return errors.Wrapf(err, "pool [%s] unable to grow by [%d] blocks", self.id, n)
	}
	for _, block := range blocks {
		self.state[block.addr()] = true
	}
	self.free = append(self.free, blocks...)
	self.issued += n
	self.growths++
	logrus.Debugf("pool [%s] grew by [%d] blocks of [%d] bytes, [%d] issued", self.id, n, self.blockSz, self.issued)
	return nil
}

func (self *BlockPool) Stats() Stats {
	self.lock.Lock()
	defer self.lock.Unlock()
	return Stats{
		BlockSize: self.blockSz,
		Issued:    self.issued,
		Free:      len(self.free),
		Leased:    self.issued - len(self.free),
		Growths:   self.growths,
	}
}

// Close tears the pool down and drops its blocks. When leases are outstanding the pool still closes and a
// *LeakError describing them is returned.
func (self *BlockPool) Close() error {
	self.lock.Lock()
	if self.closed {
		self.lock.Unlock()
		return ErrClosed
	}
	self.closed = true
	outstanding := self.issued - len(self.free)
	var leaked []uintptr
	if outstanding > 0 {
		leaked = make([]uintptr, 0, outstanding)
		for addr, free := range self.state {
			if !free {
				leaked = append(leaked, addr)
			}
		}
		sort.Slice(leaked, func(i, j int) bool { return leaked[i] < leaked[j] })
	}
	issued := self.issued
	self.free = nil
	self.state = nil
	self.lock.Unlock()

	defer self.ii.Closed()
	if outstanding > 0 {
		self.ii.Leaked(outstanding)
		logrus.Warnf("pool [%s] closed with [%d] outstanding leases", self.id, outstanding)
		return &LeakError{Outstanding: outstanding, Addresses: leaked}
	}
	logrus.Debugf("pool [%s] closed, [%d] blocks released", self.id, issued)
	return nil
}
