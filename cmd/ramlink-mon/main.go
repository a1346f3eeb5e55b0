package main

import (
	"flag"
	"io"

	"github.com/ramlink/ramlink.go/pkg/cli/sh"
	"github.com/ramlink/ramlink.go/pkg/probe/tcp"
	"github.com/ramlink/ramlink.go/pkg/ringbuf"
)

//go-build: CGO_ENABLED=0

var (
	connectAddr = "127.0.0.1:7878"
	baseAddr    = uint(0x2000)
)

func init() {
	flag.StringVar(&connectAddr, "connect", connectAddr, "Probe server address.")
	flag.UintVar(&baseAddr, "base", baseAddr, "Ring buffer base address in target memory.")
}

func main() {
	flag.Parse()
	sh.Main(func() (ringbuf.MemoryAccessor, io.Closer, error) {
		client, err := tcp.Dial(connectAddr)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}, uint32(baseAddr))
}
