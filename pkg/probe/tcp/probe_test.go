package tcp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ramlink/ramlink.go/pkg/memio"
	"github.com/ramlink/ramlink.go/pkg/ringbuf"
)

func newLoopback(t *testing.T, mem ringbuf.MemoryAccessor) *Client {
	srv := &Server{Mem: mem}
	local, remote := net.Pipe()
	go srv.ServeConn(remote)
	client := NewClient(local)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientRoundTrip(t *testing.T) {
	block := memio.NewBlock(0x1000, 128)
	require.NoError(t, block.CopyIn(0x1004, []byte{0xde, 0xad, 0xbe, 0xef}))
	client := newLoopback(t, block)

	buf := make([]byte, 4)
	require.NoError(t, client.ReadMemory(0x1004, buf))
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, buf)

	require.NoError(t, client.WriteMemory(0x1004, 0x55))
	require.NoError(t, client.ReadMemory(0x1004, buf[:1]))
	require.Equal(t, byte(0x55), buf[0])
}

func TestClientSurfacesTargetError(t *testing.T) {
	block := memio.NewBlock(0x1000, 16)
	client := newLoopback(t, block)

	err := client.ReadMemory(0x0, make([]byte, 1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "outside mapped range")

	// the connection survives a failed transaction
	require.NoError(t, client.WriteMemory(0x1000, 1))
}

func TestReaderOverProbe(t *testing.T) {
	const base = 0x2000
	store, err := ringbuf.NewStore(16)
	require.NoError(t, err)
	client := newLoopback(t, memio.Offset{Accessor: store, Base: base})

	r, err := ringbuf.NewReader(client, base)
	require.NoError(t, err)
	require.Equal(t, 16, r.Capacity())

	store.SendBytesBlocking([]byte("over the wire"))
	data, err := r.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, "over the wire", string(data))

	_, err = ringbuf.NewReader(client, base+1)
	require.Equal(t, ringbuf.ErrMagicMarkerNotFound, err)
}
