// Package sh provides the ishell backed monitor console.
package sh

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/ramlink/ramlink.go/pkg/poller"
	"github.com/ramlink/ramlink.go/pkg/ringbuf"
)

// DialFunc opens the probe transport toward the target.
type DialFunc func() (ringbuf.MemoryAccessor, io.Closer, error)

// Shell is an interactive console over one target's ring buffer.
type Shell struct {
	Interactive bool
	Dial        DialFunc
	Base        uint32

	Shell *ishell.Shell

	mem    ringbuf.MemoryAccessor
	closer io.Closer
	reader *ringbuf.Reader
}

const (
	shellKey       = "$shell"
	detachedPrompt = "[detached] > "
)

var (
	// flags

	evalOnly bool

	// commands

	commands = []*ishell.Cmd{
		&AttachCmd,
		&DetachCmd,
		&InfoCmd,
		&ReadCmd,
		&WatchCmd,
		&PeekCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// AddCmds is used by other command providers during init.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a shell bound to a probe transport.
func New(dial DialFunc, base uint32) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Dial:        dial,
		Base:        base,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(detachedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeAttached wraps a command func that requires an attached target.
func MustBeAttached(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).reader == nil {
			c.Err(fmt.Errorf("not attached"))
			return
		}
		fn(c)
	}
}

// Attach opens the transport and validates the ring buffer at base.
func (s *Shell) Attach(base uint32) error {
	mem, closer, err := s.Dial()
	if err != nil {
		return err
	}
	reader, err := ringbuf.NewReader(mem, base)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return err
	}
	s.Detach()
	s.mem, s.closer, s.reader = mem, closer, reader
	s.Shell.SetPrompt(fmt.Sprintf("ramlink[%#x] > ", base))
	return nil
}

// Detach drops the current target connection.
func (s *Shell) Detach() {
	if s.closer != nil {
		s.closer.Close()
	}
	s.mem, s.closer, s.reader = nil, nil, nil
	s.Shell.SetPrompt(detachedPrompt)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is the shared entry point for monitor binaries.
func Main(dial DialFunc, base uint32) {
	New(dial, base).Run(flag.Args()...)
}

func parseAddr(arg string) (uint32, error) {
	v, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %v", arg, err)
	}
	return uint32(v), nil
}

var (
	// AttachCmd binds the console to the ring buffer at an address.
	AttachCmd = ishell.Cmd{
		Name:    "attach",
		Aliases: []string{"a"},
		Help:    "[ADDR]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			base := s.Base
			if len(c.Args) > 0 {
				var err error
				if base, err = parseAddr(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			if err := s.Attach(base); err != nil {
				c.Err(err)
				return
			}
			c.Printf("attached at %#x, capacity %d\n", base, s.reader.Capacity())
		},
	}

	// DetachCmd drops the target connection.
	DetachCmd = ishell.Cmd{
		Name: "detach",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Detach()
		},
	}

	// InfoCmd shows the raw state of the remote structure.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: MustBeAttached(func(c *ishell.Context) {
			s := ShellFrom(c)
			st, err := s.reader.State()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("base      %#x\n", s.reader.Base())
			c.Printf("capacity  %d (%d bytes in memory)\n",
				st.Capacity, ringbuf.StructSize(st.Capacity))
			c.Printf("producer  %d\n", st.Producer)
			c.Printf("consumer  %d\n", st.Consumer)
			c.Printf("pending   %d\n", st.Pending())
		}),
	}

	// ReadCmd drains once and dumps the bytes.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "",
		Func: MustBeAttached(func(c *ishell.Context) {
			data, err := ShellFrom(c).reader.ReadBytes()
			if err != nil {
				c.Err(err)
				return
			}
			if len(data) == 0 {
				c.Println("nothing pending")
				return
			}
			c.Print(hex.Dump(data))
		}),
	}

	// WatchCmd polls for a while and prints the stream as text.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[SECONDS]",
		Func: MustBeAttached(func(c *ishell.Context) {
			duration := 10 * time.Second
			if len(c.Args) > 0 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("bad duration %q: %v", c.Args[0], err))
					return
				}
				duration = time.Duration(secs) * time.Second
			}
			ctx, cancel := context.WithTimeout(context.Background(), duration)
			defer cancel()
			p := poller.New(ShellFrom(c).reader)
			p.Interval = 100 * time.Millisecond
			p.Handler = poller.HandleBytesFunc(func(_ context.Context, data []byte) {
				c.Print(string(data))
			})
			if err := p.Run(ctx); err != context.DeadlineExceeded {
				c.Err(err)
			}
		}),
	}

	// PeekCmd reads raw target memory.
	PeekCmd = ishell.Cmd{
		Name: "peek",
		Help: "ADDR [LEN]",
		Func: MustBeAttached(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("address expected"))
				return
			}
			addr, err := parseAddr(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			length := 16
			if len(c.Args) > 1 {
				if length, err = strconv.Atoi(c.Args[1]); err != nil || length <= 0 {
					c.Err(fmt.Errorf("bad length %q", c.Args[1]))
					return
				}
			}
			buf := make([]byte, length)
			if err := ShellFrom(c).mem.ReadMemory(addr, buf); err != nil {
				c.Err(err)
				return
			}
			c.Print(hex.Dump(buf))
		}),
	}
)
