package ringbuf

// Magic is the sentinel stored at the start of the structure. The consumer
// checks it to make sure the configured base address really holds a ring
// buffer and not arbitrary memory.
var Magic = [3]byte{0x88, 0x88, 0x88}

// Structure layout, relative to the base address.
const (
	offMagic    = 0
	offSize     = 3
	offProducer = 4
	offConsumer = 5
	offContent  = 6
)

// HeaderSize is the number of bytes ahead of the content slots.
const HeaderSize = offContent

// MaxCapacity is the largest usable number of content slots; the indices and
// the size field are single bytes.
const MaxCapacity = 255

// StructSize returns the total footprint in target memory of a ring buffer
// with the given capacity.
func StructSize(capacity int) int {
	return HeaderSize + capacity
}

// State is a raw snapshot of the two index bytes, for diagnostics.
type State struct {
	Capacity int
	Producer byte
	Consumer byte
}

// Pending returns the number of bytes waiting to be consumed.
func (s State) Pending() int {
	return (int(s.Producer) - int(s.Consumer) + s.Capacity) % s.Capacity
}
