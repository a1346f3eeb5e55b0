// Package memio provides in-process memory blocks and accessor decorators
// for simulated targets and tests.
package memio

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/ramlink/ramlink.go/pkg/ringbuf"
)

// Block is a byte-addressable memory region mapped at a fixed base address.
// It stands in for target RAM when no real device is attached. Access is
// serialized and bounds-checked; anything outside the mapped range fails
// like a bad probe transaction would.
type Block struct {
	base uint32
	mu   sync.Mutex
	mem  []byte
}

// NewBlock allocates a zero-filled block of size bytes at base.
func NewBlock(base uint32, size int) *Block {
	return &Block{base: base, mem: make([]byte, size)}
}

// Base returns the lowest mapped address.
func (b *Block) Base() uint32 {
	return b.base
}

// Size returns the number of mapped bytes.
func (b *Block) Size() int {
	return len(b.mem)
}

func (b *Block) slice(addr uint32, n int) ([]byte, error) {
	off := int64(addr) - int64(b.base)
	if off < 0 || off+int64(n) > int64(len(b.mem)) {
		return nil, fmt.Errorf("address %#x+%d outside mapped range [%#x, %#x)",
			addr, n, b.base, b.base+uint32(len(b.mem)))
	}
	return b.mem[off : off+int64(n)], nil
}

// ReadMemory implements ringbuf.MemoryAccessor.
func (b *Block) ReadMemory(addr uint32, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, err := b.slice(addr, len(buf))
	if err != nil {
		return err
	}
	copy(buf, src)
	return nil
}

// WriteMemory implements ringbuf.MemoryAccessor.
func (b *Block) WriteMemory(addr uint32, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	dst, err := b.slice(addr, 1)
	if err != nil {
		return err
	}
	dst[0] = value
	return nil
}

// CopyIn bulk-loads data at addr, for seeding test and simulation images.
func (b *Block) CopyIn(addr uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	dst, err := b.slice(addr, len(data))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Offset rebases a zero-addressed accessor so it appears at a target base
// address. A ringbuf.Store serves its structure at address 0; wrapping it
// in Offset places it where a real firmware image would have linked it.
type Offset struct {
	Accessor ringbuf.MemoryAccessor
	Base     uint32
}

// ReadMemory implements ringbuf.MemoryAccessor.
func (o Offset) ReadMemory(addr uint32, buf []byte) error {
	if addr < o.Base {
		return fmt.Errorf("address %#x below base %#x", addr, o.Base)
	}
	return o.Accessor.ReadMemory(addr-o.Base, buf)
}

// WriteMemory implements ringbuf.MemoryAccessor.
func (o Offset) WriteMemory(addr uint32, value byte) error {
	if addr < o.Base {
		return fmt.Errorf("address %#x below base %#x", addr, o.Base)
	}
	return o.Accessor.WriteMemory(addr-o.Base, value)
}

// Traced logs every memory operation at verbosity 4.
type Traced struct {
	Name     string
	Accessor ringbuf.MemoryAccessor
}

// ReadMemory implements ringbuf.MemoryAccessor.
func (t Traced) ReadMemory(addr uint32, buf []byte) error {
	err := t.Accessor.ReadMemory(addr, buf)
	if glog.V(4) {
		glog.Infof("%s: rd %#x+%d err=%v", t.Name, addr, len(buf), err)
	}
	return err
}

// WriteMemory implements ringbuf.MemoryAccessor.
func (t Traced) WriteMemory(addr uint32, value byte) error {
	err := t.Accessor.WriteMemory(addr, value)
	if glog.V(4) {
		glog.Infof("%s: wr %#x=%#02x err=%v", t.Name, addr, value, err)
	}
	return err
}
