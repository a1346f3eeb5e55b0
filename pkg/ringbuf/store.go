package ringbuf

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Content slots start out with a recognizable fill pattern so an
// uninitialized region is easy to spot in a memory dump.
const contentFill = 0x13

// Store owns the ring buffer structure on the producer side. It holds the
// complete byte image of the structure (magic, size, indices, content) and
// serves it through MemoryAccessor, so it doubles as the in-process target
// used by tests and simulators.
//
// Every access to the structure goes through one mutex. The consumer index
// is mutated behind the producer's back by whoever holds the other end of
// the accessor, so a plain field access is never safe; the mutex is the
// in-process equivalent of the debug bus serializing each byte transaction.
type Store struct {
	mu  sync.Mutex
	mem []byte
}

// NewStore creates the ring buffer structure with the given number of
// content slots. Capacity must be in [1, MaxCapacity]; anything else is a
// construction error, never a panic.
func NewStore(capacity int) (*Store, error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("capacity %d out of range [1, %d]", capacity, MaxCapacity)
	}
	mem := make([]byte, StructSize(capacity))
	copy(mem[offMagic:], Magic[:])
	mem[offSize] = byte(capacity)
	for i := offContent; i < len(mem); i++ {
		mem[i] = contentFill
	}
	return &Store{mem: mem}, nil
}

// Capacity returns the number of content slots. One slot is always kept
// unused, so at most Capacity()-1 bytes are pending at any time.
func (s *Store) Capacity() int {
	return int(s.mem[offSize])
}

// State returns a snapshot of the index bytes.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Capacity: int(s.mem[offSize]),
		Producer: s.mem[offProducer],
		Consumer: s.mem[offConsumer],
	}
}

// tryPut stores one byte if the buffer has room. The content slot is filled
// strictly before the producer index is advanced: a remote reader must never
// observe the advanced index ahead of the byte it covers.
func (s *Store) tryPut(b byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := s.mem[offSize]
	prod := s.mem[offProducer]
	next := (prod + 1) % size
	if next == s.mem[offConsumer] {
		return false
	}
	s.mem[offContent+int(prod)] = b
	s.mem[offProducer] = next
	return true
}

// SendBytes stores data into the buffer in order, spinning whenever the
// buffer is full until the consumer frees a slot. The context is the spin
// policy: cancellation or a deadline aborts the wait with ctx.Err(), and
// bytes already stored stay stored. No byte is ever dropped or overwritten.
func (s *Store) SendBytes(ctx context.Context, data []byte) error {
	for _, b := range data {
		for !s.tryPut(b) {
			if err := ctx.Err(); err != nil {
				return err
			}
			runtime.Gosched()
		}
	}
	return nil
}

// SendBytesBlocking stores data, spinning without bound while the buffer is
// full. It returns once every byte is in the buffer, not once the consumer
// has read them. If no consumer ever advances the consumer index this stalls
// forever; use SendBytes with a deadline when that matters.
func (s *Store) SendBytesBlocking(data []byte) {
	_ = s.SendBytes(context.Background(), data)
}

// TrySendBytes stores as many leading bytes of data as currently fit and
// returns the count, never waiting. The lossy counterpart of SendBytes for
// producers that cannot afford to spin.
func (s *Store) TrySendBytes(data []byte) int {
	for i, b := range data {
		if !s.tryPut(b) {
			return i
		}
	}
	return len(data)
}

// Write implements io.Writer so formatted output can be sent with the fmt
// package. It blocks like SendBytesBlocking and never fails.
func (s *Store) Write(p []byte) (int, error) {
	s.SendBytesBlocking(p)
	return len(p), nil
}

// ReadMemory implements MemoryAccessor over the structure itself, with
// addresses relative to the structure base. Wrap the Store with a rebasing
// accessor to place it at a realistic target address.
func (s *Store) ReadMemory(addr uint32, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(addr)+uint64(len(buf)) > uint64(len(s.mem)) {
		return fmt.Errorf("address %#x+%d outside structure of %d bytes", addr, len(buf), len(s.mem))
	}
	copy(buf, s.mem[addr:int(addr)+len(buf)])
	return nil
}

// WriteMemory implements MemoryAccessor. The consumer uses it for exactly
// one purpose: writing the consumer index back after reading a byte.
func (s *Store) WriteMemory(addr uint32, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(addr) >= uint64(len(s.mem)) {
		return fmt.Errorf("address %#x outside structure of %d bytes", addr, len(s.mem))
	}
	s.mem[addr] = value
	return nil
}
