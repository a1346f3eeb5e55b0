// Package websocket fans the drained byte stream out to attached websocket
// viewers.
package websocket

import (
	"context"
	"io"
	"io/ioutil"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Sink broadcasts each drained chunk to every attached client as one binary
// message. Slow or dropped viewers are detached; they never stall the poll
// loop for the others.
type Sink struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New creates a Sink with no viewers.
func New() *Sink {
	return &Sink{conns: make(map[*websocket.Conn]struct{})}
}

// Handler returns the http handler accepting viewer connections.
func (s *Sink) Handler() websocket.Handler {
	return websocket.Handler(s.serve)
}

// Viewers returns the number of attached clients.
func (s *Sink) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Sink) serve(conn *websocket.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	glog.V(2).Infof("viewer %s attached", conn.Request().RemoteAddr)

	// hold the connection until the viewer goes away; inbound data is
	// ignored, the stream is one-way
	io.Copy(ioutil.Discard, conn)

	s.detach(conn)
	glog.V(2).Infof("viewer %s detached", conn.Request().RemoteAddr)
}

func (s *Sink) detach(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// HandleBytes implements poller.BytesHandler.
func (s *Sink) HandleBytes(_ context.Context, data []byte) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		if err := websocket.Message.Send(conn, data); err != nil {
			glog.V(2).Infof("viewer dropped: %v", err)
			s.detach(conn)
		}
	}
}
