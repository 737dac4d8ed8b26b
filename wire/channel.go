package wire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/naming"
)

// HookPosFrameSent marks when a whole frame has been written.
var HookPosFrameSent = &hooking.HookPos{Name: "Frame Sent"}

// HookPosFrameRecvd marks when a whole frame has been read.
var HookPosFrameRecvd = &hooking.HookPos{Name: "Frame Recvd"}

// pipeBuf is the POSIX PIPE_BUF on Linux. Writes up to this size are atomic
// on a kernel pipe even with several writers.
const pipeBuf = 4096

// A Sender writes whole frames. Send may be called from several goroutines;
// frames never interleave.
type Sender interface {
	Send(payload string) error
	SendEnd() error
}

// A Receiver reads whole frames. ok is false when the end frame is read.
// Only one goroutine may receive from a channel.
type Receiver interface {
	Receive() (payload string, ok bool, err error)
}

// Frame is the Item of the frame hooks.
type Frame struct {
	Payload string
	End     bool
}

// Transport selects what carries the bytes of a Channel.
type Transport int

// Available transports.
const (
	// MemTransport is an in-process synchronous pipe (io.Pipe).
	MemTransport Transport = iota

	// OSTransport is a kernel pipe (os.Pipe).
	OSTransport
)

func (t Transport) String() string {
	switch t {
	case MemTransport:
		return "mem"
	case OSTransport:
		return "os"
	default:
		return fmt.Sprintf("Transport(%d)", int(t))
	}
}

// ParseTransport converts "mem" or "os" into a Transport.
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(s) {
	case "mem", "":
		return MemTransport, nil
	case "os":
		return OSTransport, nil
	default:
		return 0, fmt.Errorf("unknown transport %q, want mem or os", s)
	}
}

// A Channel is a unidirectional framed pipe. Every Send is written with a
// single Write, so concurrent writers are serialized into whole frames.
type Channel struct {
	naming.NamedBase
	hooking.HookableBase

	r         io.ReadCloser
	w         io.WriteCloser
	maxFrame  int
	closeOnce sync.Once
}

// Open creates a channel on the given transport.
func Open(t Transport, name string) (*Channel, error) {
	switch t {
	case MemTransport:
		return New(name), nil
	case OSTransport:
		return NewOSPipe(name)
	default:
		return nil, fmt.Errorf("unknown transport %s", t)
	}
}

// New creates a channel backed by an in-process pipe. A Send returns once the
// receiver has read the whole frame.
func New(name string) *Channel {
	r, w := io.Pipe()

	return &Channel{
		NamedBase: naming.MakeNamedBase(name),
		r:         r,
		w:         w,
		maxFrame:  MaxFrameSize,
	}
}

// NewOSPipe creates a channel backed by a kernel pipe. Frames are limited to
// PIPE_BUF bytes so that every write stays atomic.
func NewOSPipe(name string) (*Channel, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating pipe for %s: %w", name, err)
	}

	return &Channel{
		NamedBase: naming.MakeNamedBase(name),
		r:         r,
		w:         w,
		maxFrame:  pipeBuf - headerSize,
	}, nil
}

// Send writes a payload frame and blocks until it is fully written.
func (c *Channel) Send(payload string) error {
	if len(payload) > c.maxFrame {
		return fmt.Errorf("%s: %w: %d bytes", c.Name(), ErrFrameTooLarge,
			len(payload))
	}

	err := writeWhole(c.w, EncodeFrame([]byte(payload)))
	if err != nil {
		return c.wrapErr(err)
	}

	c.invokeFrameHook(HookPosFrameSent, Frame{Payload: payload})

	return nil
}

// SendEnd writes the end frame.
func (c *Channel) SendEnd() error {
	err := WriteEnd(c.w)
	if err != nil {
		return c.wrapErr(err)
	}

	c.invokeFrameHook(HookPosFrameSent, Frame{End: true})

	return nil
}

// Receive blocks until a whole frame is available.
func (c *Channel) Receive() (string, bool, error) {
	payload, ok, err := ReadFrame(c.r)
	if err != nil {
		return "", false, c.wrapErr(err)
	}

	c.invokeFrameHook(HookPosFrameRecvd, Frame{Payload: string(payload), End: !ok})

	return string(payload), ok, nil
}

// Close releases both ends. It is safe to call more than once and it unblocks
// any goroutine waiting in Send or Receive.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		_ = c.w.Close()
		_ = c.r.Close()
	})

	return nil
}

func (c *Channel) invokeFrameHook(pos *hooking.HookPos, f Frame) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   f,
	})
}

func (c *Channel) wrapErr(err error) error {
	if errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", c.Name(), ErrClosed)
	}

	return fmt.Errorf("%s: %w", c.Name(), err)
}
