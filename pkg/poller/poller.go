// Package poller drains a remote ring buffer on a fixed cadence and hands
// the bytes to the application.
package poller

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/ramlink/ramlink.go/pkg/ringbuf"
)

// DefaultInterval is the polling cadence used by New.
const DefaultInterval = 10 * time.Millisecond

// BytesHandler receives each non-empty chunk drained from the target.
type BytesHandler interface {
	HandleBytes(context.Context, []byte)
}

// HandleBytesFunc is func type of BytesHandler.
type HandleBytesFunc func(context.Context, []byte)

// HandleBytes implements BytesHandler.
func (f HandleBytesFunc) HandleBytes(ctx context.Context, data []byte) {
	f(ctx, data)
}

// Poller repeatedly drains a Reader. The cadence is the host's choice; the
// protocol itself imposes none.
type Poller struct {
	Reader   *ringbuf.Reader
	Handler  BytesHandler
	Interval time.Duration
}

// New creates a Poller with the default interval.
func New(r *ringbuf.Reader) *Poller {
	return &Poller{Reader: r, Interval: DefaultInterval}
}

// Run polls until the context is canceled or the transport fails. Transport
// errors are surfaced, not retried: retry policy belongs to the probe
// driver, not here.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			data, err := p.Reader.ReadBytes()
			if err != nil {
				glog.Errorf("drain failed: %v", err)
				return err
			}
			if len(data) == 0 {
				continue
			}
			if glog.V(4) {
				glog.Infof("drained %d bytes", len(data))
			}
			if h := p.Handler; h != nil {
				h.HandleBytes(ctx, data)
			}
		}
	}
}
