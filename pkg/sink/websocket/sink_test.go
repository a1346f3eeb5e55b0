package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestSinkBroadcast(t *testing.T) {
	sink := New()
	srv := httptest.NewServer(sink.Handler())
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1)
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for sink.Viewers() == 0 {
		require.True(t, time.Now().Before(deadline), "viewer never attached")
		time.Sleep(time.Millisecond)
	}

	sink.HandleBytes(context.Background(), []byte("chunk-1"))
	var msg []byte
	require.NoError(t, websocket.Message.Receive(conn, &msg))
	require.Equal(t, "chunk-1", string(msg))

	conn.Close()
	sink.HandleBytes(context.Background(), []byte("chunk-2"))
	for sink.Viewers() != 0 {
		require.True(t, time.Now().Before(deadline), "viewer never detached")
		time.Sleep(time.Millisecond)
	}
}
