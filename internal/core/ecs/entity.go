package ecs

// ID encodes a 32-bit slot index in the lower bits and a 32-bit generation in
// the upper bits. Freeing a slot bumps its generation, so every ID handed out
// before the free stops resolving. Generations start at 1, which keeps the
// zero ID invalid.
type ID uint64

func NewID(index uint32, generation uint32) ID {
	return ID(uint64(generation)<<32 | uint64(index))
}

func (id ID) Index() uint32      { return uint32(id) }
func (id ID) Generation() uint32 { return uint32(id >> 32) }
func (id ID) IsZero() bool       { return id == 0 }

// Pool hands out generational IDs and recycles freed slots.
type Pool struct {
	generations []uint32
	freeList    []uint32
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 64),
		freeList:    make([]uint32, 0, 16),
	}
}

func (p *Pool) Create() ID {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return NewID(idx, 1)
}

func (p *Pool) Alive(id ID) bool {
	idx := id.Index()
	if int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Destroy frees the slot of id. Stale or unknown IDs are ignored.
func (p *Pool) Destroy(id ID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.freeList = append(p.freeList, idx)
	return true
}

// Len returns the number of live IDs.
func (p *Pool) Len() int {
	return len(p.generations) - len(p.freeList)
}
