// Package tcp carries remote memory access over a TCP connection.
//
// It is the reference probe transport for this module: the server side
// wraps any MemoryAccessor (typically a simulated target), the client side
// is itself a MemoryAccessor, so readers and pollers work unchanged over
// the network. A real JTAG/UPDI/SWD driver replaces the client, nothing
// else.
package tcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/ramlink/ramlink.go/pkg/ringbuf"
)

// Wire format, little-endian. One request, one reply, in order.
//
//	read:  op(1) addr(4) len(2)  ->  status(1) [payload | msglen(1) msg]
//	write: op(1) addr(4) val(1)  ->  status(1) [msglen(1) msg]
const (
	opRead  = 0x01
	opWrite = 0x02
)

// Client implements ringbuf.MemoryAccessor over a probe connection.
// Requests are serialized; the wire protocol has no request IDs.
type Client struct {
	mu     sync.Mutex
	rw     io.ReadWriter
	closer io.Closer
}

// NewClient wraps an established connection.
func NewClient(rw io.ReadWriter) *Client {
	c := &Client{rw: rw}
	if closer, ok := rw.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// Dial connects to a probe server.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("probe connected to %s", addr)
	return NewClient(conn), nil
}

// Close closes the underlying connection, if it is closable.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// ReadMemory implements ringbuf.MemoryAccessor.
func (c *Client) ReadMemory(addr uint32, buf []byte) error {
	if len(buf) > 0xffff {
		return fmt.Errorf("read of %d bytes exceeds wire limit", len(buf))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	req := make([]byte, 7)
	req[0] = opRead
	binary.LittleEndian.PutUint32(req[1:5], addr)
	binary.LittleEndian.PutUint16(req[5:7], uint16(len(buf)))
	if _, err := c.rw.Write(req); err != nil {
		return err
	}
	return c.readReply(buf)
}

// WriteMemory implements ringbuf.MemoryAccessor.
func (c *Client) WriteMemory(addr uint32, value byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := make([]byte, 6)
	req[0] = opWrite
	binary.LittleEndian.PutUint32(req[1:5], addr)
	req[5] = value
	if _, err := c.rw.Write(req); err != nil {
		return err
	}
	return c.readReply(nil)
}

func (c *Client) readReply(payload []byte) error {
	var status [1]byte
	if _, err := io.ReadFull(c.rw, status[:]); err != nil {
		return err
	}
	if status[0] != 0 {
		var msgLen [1]byte
		if _, err := io.ReadFull(c.rw, msgLen[:]); err != nil {
			return err
		}
		msg := make([]byte, msgLen[0])
		if _, err := io.ReadFull(c.rw, msg); err != nil {
			return err
		}
		return errors.New(string(msg))
	}
	if len(payload) > 0 {
		if _, err := io.ReadFull(c.rw, payload); err != nil {
			return err
		}
	}
	return nil
}

// Server exposes a MemoryAccessor to probe clients.
type Server struct {
	Addr string
	Mem  ringbuf.MemoryAccessor
}

// Run listens on Addr and serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	glog.V(2).Infof("probe server listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts probe clients on ln until the context is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		glog.V(2).Infof("probe client %s attached", conn.RemoteAddr())
		go s.ServeConn(conn)
	}
}

// ServeConn serves a single probe connection until it drops.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()
	if err := s.serve(conn); err != nil && err != io.EOF {
		glog.Errorf("probe client %s: %v", conn.RemoteAddr(), err)
		return
	}
	glog.V(2).Infof("probe client %s detached", conn.RemoteAddr())
}

func (s *Server) serve(rw io.ReadWriter) error {
	for {
		var op [1]byte
		if _, err := io.ReadFull(rw, op[:]); err != nil {
			return err
		}
		switch op[0] {
		case opRead:
			var hdr [6]byte
			if _, err := io.ReadFull(rw, hdr[:]); err != nil {
				return err
			}
			addr := binary.LittleEndian.Uint32(hdr[0:4])
			buf := make([]byte, binary.LittleEndian.Uint16(hdr[4:6]))
			if err := s.Mem.ReadMemory(addr, buf); err != nil {
				if err := writeErr(rw, err); err != nil {
					return err
				}
				continue
			}
			if err := writeOK(rw, buf); err != nil {
				return err
			}
		case opWrite:
			var hdr [5]byte
			if _, err := io.ReadFull(rw, hdr[:]); err != nil {
				return err
			}
			addr := binary.LittleEndian.Uint32(hdr[0:4])
			if err := s.Mem.WriteMemory(addr, hdr[4]); err != nil {
				if err := writeErr(rw, err); err != nil {
					return err
				}
				continue
			}
			if err := writeOK(rw, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown op %#x", op[0])
		}
	}
}

func writeOK(w io.Writer, payload []byte) error {
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	if len(payload) > 0 {
		_, err := w.Write(payload)
		return err
	}
	return nil
}

func writeErr(w io.Writer, cause error) error {
	msg := cause.Error()
	if len(msg) > 0xff {
		msg = msg[:0xff]
	}
	reply := make([]byte, 2+len(msg))
	reply[0], reply[1] = 1, byte(len(msg))
	copy(reply[2:], msg)
	_, err := w.Write(reply)
	return err
}
