package ringbuf

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ramImage is a flat byte-addressable memory image, so readers can be
// pointed at wrong-but-mapped addresses.
type ramImage struct {
	mem []byte
}

func (m *ramImage) ReadMemory(addr uint32, buf []byte) error {
	if int(addr)+len(buf) > len(m.mem) {
		return fmt.Errorf("address %#x out of range", addr)
	}
	copy(buf, m.mem[addr:])
	return nil
}

func (m *ramImage) WriteMemory(addr uint32, value byte) error {
	if int(addr) >= len(m.mem) {
		return fmt.Errorf("address %#x out of range", addr)
	}
	m.mem[addr] = value
	return nil
}

// imageWithStruct builds a 4KiB image holding a valid capacity-8 structure
// at base.
func imageWithStruct(base uint32) *ramImage {
	img := &ramImage{mem: make([]byte, 4096)}
	copy(img.mem[base:], Magic[:])
	img.mem[base+offSize] = 8
	return img
}

// faultyAccessor fails reads once the countdown hits zero, and fails all
// writes when failWrites is set.
type faultyAccessor struct {
	MemoryAccessor
	readsLeft  int
	failWrites bool
}

var errInjected = errors.New("probe gone")

func (f *faultyAccessor) ReadMemory(addr uint32, buf []byte) error {
	if f.readsLeft <= 0 {
		return errInjected
	}
	f.readsLeft--
	return f.MemoryAccessor.ReadMemory(addr, buf)
}

func (f *faultyAccessor) WriteMemory(addr uint32, value byte) error {
	if f.failWrites {
		return errInjected
	}
	return f.MemoryAccessor.WriteMemory(addr, value)
}

func TestNewReaderMagicMismatch(t *testing.T) {
	const base = 0x100
	img := imageWithStruct(base)

	for _, wrong := range []uint32{0, 1, base - 4, base - 1, base + 1, base + 2, base + 64} {
		_, err := NewReader(img, wrong)
		require.Equalf(t, ErrMagicMarkerNotFound, err, "base %#x", wrong)
	}

	r, err := NewReader(img, base)
	require.NoError(t, err)
	require.Equal(t, 8, r.Capacity())
	require.Equal(t, uint32(base), r.Base())
}

func TestNewReaderSizeNull(t *testing.T) {
	img := &ramImage{mem: make([]byte, 64)}
	copy(img.mem, Magic[:])
	_, err := NewReader(img, 0)
	require.Equal(t, ErrSizeNull, err)
}

func TestNewReaderTransportFailure(t *testing.T) {
	s, err := NewStore(8)
	require.NoError(t, err)
	_, err = NewReader(&faultyAccessor{MemoryAccessor: s}, 0)
	var rerr *ReadMemoryError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, errInjected, rerr.Cause)
}

func TestReadBytesRoundTrip(t *testing.T) {
	for _, capacity := range []int{2, 5, 16, 255} {
		s, err := NewStore(capacity)
		require.NoError(t, err)
		r, err := NewReader(s, 0)
		require.NoError(t, err)

		sent := make([]byte, capacity-1)
		for i := range sent {
			sent[i] = byte(i * 7)
		}
		s.SendBytesBlocking(sent)

		data, err := r.ReadBytes()
		require.NoError(t, err)
		require.Equalf(t, sent, data, "capacity %d", capacity)

		// nothing new: empty drain, not an error
		data, err = r.ReadBytes()
		require.NoError(t, err)
		require.Empty(t, data)
	}
}

func TestReadBytesWraparound(t *testing.T) {
	s, err := NewStore(5)
	require.NoError(t, err)
	r, err := NewReader(s, 0)
	require.NoError(t, err)

	sent := []byte("wrap-around!")
	require.Len(t, sent, 12)

	var got []byte
	for i := 0; i < len(sent); i += 2 {
		s.SendBytesBlocking(sent[i : i+2])
		data, err := r.ReadBytes()
		require.NoError(t, err)
		got = append(got, data...)
	}
	require.Equal(t, sent, got)
}

func TestReadBytesInterleaved(t *testing.T) {
	s, err := NewStore(8)
	require.NoError(t, err)
	r, err := NewReader(s, 0)
	require.NoError(t, err)

	sent := make([]byte, 100)
	for i := range sent {
		sent[i] = byte(i)
	}
	go s.SendBytesBlocking(sent)

	var got []byte
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < len(sent) {
		require.True(t, time.Now().Before(deadline), "drain did not finish")
		data, err := r.ReadBytes()
		require.NoError(t, err)
		got = append(got, data...)
	}
	require.Equal(t, sent, got)
}

func TestReadFailureMidDrain(t *testing.T) {
	s, err := NewStore(16)
	require.NoError(t, err)
	sent := []byte("0123456789")
	s.SendBytesBlocking(sent)

	// construction takes 2 reads; each drained byte takes one more after
	// the two index reads, so the fault lands mid-drain.
	faulty := &faultyAccessor{MemoryAccessor: s, readsLeft: 2 + 2 + 4}
	r, err := NewReader(faulty, 0)
	require.NoError(t, err)

	_, err = r.ReadBytes()
	var rerr *ReadMemoryError
	require.True(t, errors.As(err, &rerr))

	// the consumer index kept every acknowledgement that succeeded and
	// never regressed: a fresh, uninjected reader drains exactly the rest.
	st := s.State()
	acked := int(st.Consumer)
	require.True(t, acked > 0 && acked < len(sent))

	clean, err := NewReader(s, 0)
	require.NoError(t, err)
	rest, err := clean.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, sent[acked:], rest)
}

func TestWriteFailureDuringAck(t *testing.T) {
	s, err := NewStore(16)
	require.NoError(t, err)
	sent := []byte("abcdef")
	s.SendBytesBlocking(sent)

	faulty := &faultyAccessor{MemoryAccessor: s, readsLeft: 1 << 20, failWrites: true}
	r, err := NewReader(faulty, 0)
	require.NoError(t, err)

	_, err = r.ReadBytes()
	var werr *WriteMemoryError
	require.True(t, errors.As(err, &werr))
	require.Equal(t, errInjected, werr.Cause)

	// the cursor was never written back, so nothing was lost
	clean, err := NewReader(s, 0)
	require.NoError(t, err)
	data, err := clean.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, sent, data)
}

func TestReaderState(t *testing.T) {
	s, err := NewStore(10)
	require.NoError(t, err)
	r, err := NewReader(s, 0)
	require.NoError(t, err)

	st, err := r.State()
	require.NoError(t, err)
	require.Equal(t, 0, st.Pending())

	s.SendBytesBlocking([]byte{1, 2, 3})
	st, err = r.State()
	require.NoError(t, err)
	require.Equal(t, 3, st.Pending())
	require.Equal(t, byte(3), st.Producer)
	require.Equal(t, byte(0), st.Consumer)
}
