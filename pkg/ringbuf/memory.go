package ringbuf

// MemoryAccessor is the capability the consumer side requires from a debug
// probe transport: indirect byte access to the producer's memory. It is the
// entire boundary between this protocol and any concrete probe driver, and
// is equally satisfiable by an in-process memory block for testing.
type MemoryAccessor interface {
	// ReadMemory fills buf with the bytes starting at addr.
	ReadMemory(addr uint32, buf []byte) error
	// WriteMemory stores value at addr.
	WriteMemory(addr uint32, value byte) error
}
