package bench

import (
	"github.com/openziti/blockpool"
	"github.com/pkg/errors"
)

// Scenario is one allocate/deallocate loop. Pooled scenarios draw from the runner's pool.
type Scenario struct {
	Name   string
	Pooled bool
	Run    func(env *env, iterations int) error
}

// env is shared by all scenarios of one run. handles is reused between rounds, like a vector cleared but
// never shrunk.
type env struct {
	pool    *blockpool.BlockPool
	alloc   blockpool.Allocator[Packet]
	shared  blockpool.SharedAllocator[Packet]
	handles []*blockpool.Shared[Packet]
	packets []*Packet
	blocks  []blockpool.Block
}

var scenarios = []*Scenario{
	{Name: "make_shared", Run: makeShared},
	{Name: "shared_pool_lease", Pooled: true, Run: sharedPoolLease},
	{Name: "shared_new", Run: sharedNew},
	{Name: "allocate_shared", Pooled: true, Run: allocateShared},
	{Name: "raw_new_delete", Run: rawNewDelete},
	{Name: "pool_raw", Pooled: true, Run: poolRaw},
}

// Scenarios returns every known scenario, in reporting order.
func Scenarios() []*Scenario {
	out := make([]*Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

func ScenarioNames() []string {
	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	return names
}

func scenarioNamed(name string) (*Scenario, error) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, errors.Errorf("unknown scenario '%s'", name)
}

// control block and packet in one heap allocation
func makeShared(env *env, iterations int) error {
	for i := 0; i < iterations; i++ {
		s, err := blockpool.MakeShared(constructPacket)
		if err != nil {
			return err
		}
		env.handles = append(env.handles, s)
	}
	return env.releaseHandles()
}

// packet leased from the pool, released through the handle's custom release action
func sharedPoolLease(env *env, iterations int) error {
	for i := 0; i < iterations; i++ {
		l, err := blockpool.Acquire(env.alloc, constructPacket)
		if err != nil {
			return err
		}
		s, err := blockpool.NewShared(l)
		if err != nil {
			return err
		}
		env.handles = append(env.handles, s)
	}
	return env.releaseHandles()
}

// packet and control block as separate heap allocations
func sharedNew(env *env, iterations int) error {
	for i := 0; i < iterations; i++ {
		p := new(Packet)
		if err := p.init(); err != nil {
			return err
		}
		env.handles = append(env.handles, blockpool.NewSharedFunc(p, func(p *Packet) error {
			p.Destroy()
			return nil
		}))
	}
	return env.releaseHandles()
}

// control block and packet together in one pooled block
func allocateShared(env *env, iterations int) error {
	for i := 0; i < iterations; i++ {
		s, err := env.shared.New(constructPacket)
		if err != nil {
			return err
		}
		env.handles = append(env.handles, s)
	}
	return env.releaseHandles()
}

func rawNewDelete(env *env, iterations int) error {
	for i := 0; i < iterations; i++ {
		p := new(Packet)
		if err := p.init(); err != nil {
			return err
		}
		env.packets = append(env.packets, p)
	}
	for i, p := range env.packets {
		p.Destroy()
		env.packets[i] = nil
	}
	env.packets = env.packets[:0]
	return nil
}

func poolRaw(env *env, iterations int) error {
	for i := 0; i < iterations; i++ {
		b, err := env.pool.Pop()
		if err != nil {
			return err
		}
		env.blocks = append(env.blocks, b)
	}
	for i, b := range env.blocks {
		if err := env.pool.Push(b); err != nil {
			return err
		}
		env.blocks[i] = nil
	}
	env.blocks = env.blocks[:0]
	return nil
}

func (self *env) releaseHandles() error {
	for i, s := range self.handles {
		if err := s.Release(); err != nil {
			return errors.Wrapf(err, "releasing handle [%d]", i)
		}
		self.handles[i] = nil
	}
	self.handles = self.handles[:0]
	return nil
}
