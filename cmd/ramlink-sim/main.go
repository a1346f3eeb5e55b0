package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/ramlink/ramlink.go/pkg/memio"
	"github.com/ramlink/ramlink.go/pkg/probe/tcp"
	"github.com/ramlink/ramlink.go/pkg/ringbuf"
	"github.com/ramlink/ramlink.go/pkg/run"
)

//go-build: CGO_ENABLED=0

var (
	listenAddr = ":7878"
	baseAddr   = uint(0x2000)
	capacity   = 32
	interval   = 500 * time.Millisecond
)

func init() {
	flag.StringVar(&listenAddr, "listen", listenAddr, "Probe server listen address.")
	flag.UintVar(&baseAddr, "base", baseAddr, "Base address the ring buffer appears at.")
	flag.IntVar(&capacity, "cap", capacity, "Ring buffer capacity in bytes.")
	flag.DurationVar(&interval, "interval", interval, "Delay between produced lines.")
}

func main() {
	flag.Parse()

	store, err := ringbuf.NewStore(capacity)
	if err != nil {
		glog.Exit(err)
	}
	mem := memio.Traced{
		Name:     "target",
		Accessor: memio.Offset{Accessor: store, Base: uint32(baseAddr)},
	}

	producer := run.RunnableFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		n := 0
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case t := <-ticker.C:
				line := fmt.Sprintf("tick %d at %s\n", n, t.Format(time.StampMilli))
				if err := store.SendBytes(ctx, []byte(line)); err != nil {
					return err
				}
				n++
				glog.V(2).Infof("produced %q, %d pending", line, store.State().Pending())
			}
		}
	})

	err = run.NewRunner().
		HandleSignals().
		Go(
			run.NamedRun("probe-server", &tcp.Server{Addr: listenAddr, Mem: mem}),
			run.NamedRun("producer", producer),
		).
		Wait()
	if err != nil {
		glog.Exit(err)
	}
}
