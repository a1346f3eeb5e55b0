package ringbuf

// Reader is the consumer-side view of a producer's ring buffer. It owns no
// buffer storage: it caches only the base address and the capacity read at
// construction, and re-reads both indices on every drain since the producer
// moves its index asynchronously.
type Reader struct {
	mem  MemoryAccessor
	base uint32
	size uint8
}

// NewReader validates the structure at base and binds a Reader to it. The
// magic marker and the size byte are checked once here; a mismatching marker
// means the base address is wrong (ErrMagicMarkerNotFound), a zero size
// means the structure was never initialized (ErrSizeNull). Transport
// failures surface as ReadMemoryError.
func NewReader(mem MemoryAccessor, base uint32) (*Reader, error) {
	var magic [3]byte
	if err := mem.ReadMemory(base+offMagic, magic[:]); err != nil {
		return nil, &ReadMemoryError{Addr: base + offMagic, Cause: err}
	}
	if magic != Magic {
		return nil, ErrMagicMarkerNotFound
	}
	var size [1]byte
	if err := mem.ReadMemory(base+offSize, size[:]); err != nil {
		return nil, &ReadMemoryError{Addr: base + offSize, Cause: err}
	}
	if size[0] == 0 {
		return nil, ErrSizeNull
	}
	return &Reader{mem: mem, base: base, size: size[0]}, nil
}

// Base returns the bound base address in target memory.
func (r *Reader) Base() uint32 {
	return r.base
}

// Capacity returns the capacity read at construction. Both sides must have
// been built with the same value; the protocol cannot detect a mismatch.
func (r *Reader) Capacity() int {
	return int(r.size)
}

// State re-reads both index bytes from the target.
func (r *Reader) State() (State, error) {
	prod, err := r.readByte(r.base + offProducer)
	if err != nil {
		return State{}, err
	}
	cons, err := r.readByte(r.base + offConsumer)
	if err != nil {
		return State{}, err
	}
	return State{Capacity: int(r.size), Producer: prod, Consumer: cons}, nil
}

func (r *Reader) readByte(addr uint32) (byte, error) {
	var b [1]byte
	if err := r.mem.ReadMemory(addr, b[:]); err != nil {
		return 0, &ReadMemoryError{Addr: addr, Cause: err}
	}
	return b[0], nil
}

// ReadBytes drains every byte that became available since the last call, in
// producer order, and returns nil when nothing is pending.
//
// The producer index is read once up front; only the producer moves it, so
// a snapshot is enough for one drain. Each consumed byte is acknowledged
// immediately by writing the advanced cursor back to the consumer index, so
// the producer reclaims slots as early as possible and an aborted drain
// loses at most the acknowledgement of the byte in flight.
//
// Any transport failure abandons the drain: the call fails with
// ReadMemoryError or WriteMemoryError and returns none of the bytes read so
// far. Bytes already acknowledged before the failure stay acknowledged; the
// consumer index never moves backwards.
func (r *Reader) ReadBytes() ([]byte, error) {
	prod, err := r.readByte(r.base + offProducer)
	if err != nil {
		return nil, err
	}
	cursor, err := r.readByte(r.base + offConsumer)
	if err != nil {
		return nil, err
	}

	var bytes []byte
	for cursor != prod {
		b, err := r.readByte(r.base + offContent + uint32(cursor))
		if err != nil {
			return nil, err
		}
		cursor = (cursor + 1) % r.size
		bytes = append(bytes, b)
		if err := r.mem.WriteMemory(r.base+offConsumer, cursor); err != nil {
			return nil, &WriteMemoryError{Addr: r.base + offConsumer, Cause: err}
		}
	}
	return bytes, nil
}
