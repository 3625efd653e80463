package world

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. The generation of a slot changes on destroy, which
// invalidates every outstanding ID for it.
//
// Generations start at 1, so the zero EntityID never refers to a live
// entity.
type EntityID uint64

func newEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// pool allocates entities with generational indices and a free list.
type pool struct {
	generations []uint32
	names       []string
	free        []uint32
	live        int
}

func (p *pool) create(name string) EntityID {
	p.live++
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		p.names[idx] = name
		return newEntityID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	p.names = append(p.names, name)
	return newEntityID(idx, 1)
}

func (p *pool) alive(id EntityID) bool {
	idx := id.Index()
	return int(idx) < len(p.generations) && p.generations[idx] == id.Generation()
}

// destroy reports whether id was alive.
func (p *pool) destroy(id EntityID) bool {
	if !p.alive(id) {
		return false // Stale reference.
	}
	idx := id.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.names[idx] = ""
	p.free = append(p.free, idx)
	p.live--
	return true
}

func (p *pool) name(id EntityID) string {
	if !p.alive(id) {
		return ""
	}
	return p.names[id.Index()]
}
