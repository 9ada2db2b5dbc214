package regs

// WriteHook models a side effect of a register write. It runs after the
// value has been stored and may use Poke to update other registers.
type WriteHook func(s *Sim, addr uint64, val uint32)

// ReadHook may replace the value returned by a read
type ReadHook func(s *Sim, addr uint64, val uint32) uint32

// Access is one recorded register write
type Access struct {
	Addr uint64
	Val  uint32
}

// Sim is an in-memory register file implementing Accessor.
// Unwritten registers read as zero.
type Sim struct {
	mem        map[uint64]uint32
	writeHooks map[uint64][]WriteHook
	readHooks  map[uint64][]ReadHook
	writes     []Access
	reads      int
}

// NewSim returns an empty register file
func NewSim() *Sim {
	return &Sim{
		mem:        map[uint64]uint32{},
		writeHooks: map[uint64][]WriteHook{},
		readHooks:  map[uint64][]ReadHook{},
	}
}

// Read32 implements Accessor
func (s *Sim) Read32(addr uint64) uint32 {
	s.reads++
	val := s.mem[addr]
	for _, h := range s.readHooks[addr] {
		val = h(s, addr, val)
	}
	return val
}

// Write32 implements Accessor
func (s *Sim) Write32(addr uint64, val uint32) {
	s.mem[addr] = val
	s.writes = append(s.writes, Access{Addr: addr, Val: val})
	for _, h := range s.writeHooks[addr] {
		h(s, addr, val)
	}
}

// Peek reads a register without counting the access or running hooks
func (s *Sim) Peek(addr uint64) uint32 {
	return s.mem[addr]
}

// Poke stores a value without recording it or running hooks
func (s *Sim) Poke(addr uint64, val uint32) {
	s.mem[addr] = val
}

// OnWrite registers a hook for writes to addr
func (s *Sim) OnWrite(addr uint64, h WriteHook) {
	s.writeHooks[addr] = append(s.writeHooks[addr], h)
}

// OnRead registers a hook for reads of addr
func (s *Sim) OnRead(addr uint64, h ReadHook) {
	s.readHooks[addr] = append(s.readHooks[addr], h)
}

// Writes returns every write seen so far, in order
func (s *Sim) Writes() []Access {
	out := make([]Access, len(s.writes))
	copy(out, s.writes)
	return out
}

// WritesTo returns the values written to addr, in order
func (s *Sim) WritesTo(addr uint64) []uint32 {
	var out []uint32
	for _, w := range s.writes {
		if w.Addr == addr {
			out = append(out, w.Val)
		}
	}
	return out
}

// Reads returns the number of reads done through Read32
func (s *Sim) Reads() int {
	return s.reads
}

// ResetLog forgets recorded accesses, keeping register contents
func (s *Sim) ResetLog() {
	s.writes = nil
	s.reads = 0
}
