// Package ringbuf implements the shared ring buffer protocol used to move a
// byte stream out of a constrained target device without a communication
// peripheral.
package ringbuf

// The producer keeps a small fixed structure in its own RAM: a magic marker,
// a size byte, two index bytes and the content slots. The consumer never
// calls into the producer; it reads and writes that structure out-of-band
// through a debug probe transport (JTAG, UPDI, SWD, ...), abstracted here as
// a MemoryAccessor.
//
// Each index byte has exactly one writer: the producer advances the producer
// index after storing a content byte, the consumer writes the consumer index
// back after reading one. One slot is always left unused so that full and
// empty states stay distinguishable. No other synchronization exists between
// the two sides.
//
// Producer: firmware on the target device (Store)
// Consumer: host attached through a debug probe (Reader)
