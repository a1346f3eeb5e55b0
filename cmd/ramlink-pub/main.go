package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/ramlink/ramlink.go/pkg/poller"
	"github.com/ramlink/ramlink.go/pkg/probe/tcp"
	"github.com/ramlink/ramlink.go/pkg/ringbuf"
	"github.com/ramlink/ramlink.go/pkg/run"
	mqttsink "github.com/ramlink/ramlink.go/pkg/sink/mqtt"
	wssink "github.com/ramlink/ramlink.go/pkg/sink/websocket"
)

//go-build: CGO_ENABLED=0

var (
	connectAddr = "127.0.0.1:7878"
	baseAddr    = uint(0x2000)
	interval    = 50 * time.Millisecond
	brokerURL   = ""
	topic       = "ramlink/stream"
	wsListen    = ""
)

func init() {
	flag.StringVar(&connectAddr, "connect", connectAddr, "Probe server address.")
	flag.UintVar(&baseAddr, "base", baseAddr, "Ring buffer base address in target memory.")
	flag.DurationVar(&interval, "interval", interval, "Polling interval.")
	flag.StringVar(&brokerURL, "broker", brokerURL, "MQTT broker URL; empty disables the MQTT sink.")
	flag.StringVar(&topic, "topic", topic, "MQTT topic for drained bytes.")
	flag.StringVar(&wsListen, "listen", wsListen, "HTTP listen address for websocket viewers; empty disables.")
}

func fanout(handlers []poller.BytesHandler) poller.BytesHandler {
	return poller.HandleBytesFunc(func(ctx context.Context, data []byte) {
		for _, h := range handlers {
			h.HandleBytes(ctx, data)
		}
	})
}

func main() {
	flag.Parse()

	client, err := tcp.Dial(connectAddr)
	if err != nil {
		glog.Exitf("connect %q: %v", connectAddr, err)
	}
	defer client.Close()

	reader, err := ringbuf.NewReader(client, uint32(baseAddr))
	if err != nil {
		glog.Exitf("attach at %#x: %v", baseAddr, err)
	}
	glog.Infof("attached at %#x, capacity %d", baseAddr, reader.Capacity())

	runner := run.NewRunner().HandleSignals()
	var handlers []poller.BytesHandler

	if brokerURL != "" {
		sink, err := mqttsink.New(brokerURL, topic)
		if err != nil {
			glog.Exitf("broker %q: %v", brokerURL, err)
		}
		defer sink.Close()
		handlers = append(handlers, sink)
	}
	if wsListen != "" {
		sink := wssink.New()
		handlers = append(handlers, sink)
		srv := &http.Server{Addr: wsListen, Handler: sink.Handler()}
		runner.Go(run.NamedRun("http", run.RunnableFunc(func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				srv.Close()
			}()
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return ctx.Err()
		})))
	}
	if len(handlers) == 0 {
		handlers = append(handlers, poller.HandleBytesFunc(func(_ context.Context, data []byte) {
			os.Stdout.Write(data)
		}))
	}

	p := poller.New(reader)
	p.Interval = interval
	p.Handler = fanout(handlers)
	runner.Go(run.NamedRun("poller", p))

	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
