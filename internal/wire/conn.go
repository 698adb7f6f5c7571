package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heyvito/pofswitch/internal/fsm"
	"github.com/heyvito/pofswitch/internal/proto"
	"go.uber.org/zap"
)

// ErrQueueFull indicates that a connection's write queue cannot take
// another message.
var ErrQueueFull = fmt.Errorf("write queue is full")

// ErrClosed indicates a write to a closed connection.
var ErrClosed = fmt.Errorf("connection is closed")

// Handler receives events from controller connections. HandleFrame is
// called from the connection's read routine, one frame at a time.
type Handler interface {
	HandleFrame(c Conn, f *proto.Frame)
	ConnClosed(c Conn, err error)
}

// Conn is a connection to a controller.
type Conn interface {
	// Write enqueues pkt to be written to the controller. It never blocks;
	// ErrQueueFull is returned when the write queue has no room left.
	Write(pkt *proto.Packet) error

	// Close closes the connection and stops its routines. It is safe to
	// call Close multiple times.
	Close()

	// Remote returns the address of the controller.
	Remote() net.Addr

	// Done is closed once the connection is closed.
	Done() <-chan struct{}

	// Wait blocks until the connection routines return.
	Wait()

	// Err returns the error that caused the connection to close, if any.
	Err() error
}

type conn struct {
	log      *zap.Logger
	nc       net.Conn
	handler  Handler
	queue    chan []byte
	closed   chan struct{}
	isClosed atomic.Bool
	decoder  fsm.ExportedFSM[proto.Frame]
	echo     time.Duration
	wg       sync.WaitGroup

	errMu sync.Mutex
	err   error
}

func newConn(logger *zap.Logger, nc net.Conn, opts Options, handler Handler) *conn {
	return &conn{
		log:     logger.With(zap.String("controller", nc.RemoteAddr().String())),
		nc:      nc,
		handler: handler,
		queue:   make(chan []byte, opts.QueueDepth),
		closed:  make(chan struct{}),
		decoder: proto.FrameDecoder.New(),
		echo:    opts.EchoInterval,
	}
}

func (c *conn) start() {
	c.wg.Add(2)
	go c.writeLoop()
	go c.readLoop()
}

func (c *conn) Remote() net.Addr      { return c.nc.RemoteAddr() }
func (c *conn) Done() <-chan struct{} { return c.closed }

func (c *conn) Write(pkt *proto.Packet) error {
	if c.isClosed.Load() {
		return ErrClosed
	}
	select {
	case c.queue <- pkt.Bytes():
		return nil
	default:
		return fmt.Errorf("%w: %d messages pending", ErrQueueFull, cap(c.queue))
	}
}

func (c *conn) Close() { c.closeWith(nil) }

func (c *conn) closeWith(err error) {
	if c.isClosed.Swap(true) {
		return
	}
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()

	close(c.closed)
	if cErr := c.nc.Close(); cErr != nil && !errors.Is(cErr, net.ErrClosed) {
		c.log.Error("Error closing connection", zap.Error(cErr))
	}
}

func (c *conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *conn) writeLoop() {
	defer c.wg.Done()

	var tick <-chan time.Time
	if c.echo > 0 {
		t := time.NewTicker(c.echo)
		defer t.Stop()
		tick = t.C
	}

	var xid uint32
	for {
		select {
		case <-c.closed:
			return
		case buf := <-c.queue:
			if err := c.writeAll(buf); err != nil {
				c.log.Error("Failed writing", zap.Error(err))
				c.closeWith(err)
				return
			}
		case <-tick:
			xid++
			if err := c.Write(proto.Pkt(xid, &proto.EchoRequest{})); err != nil {
				c.log.Warn("Could not enqueue echo request", zap.Error(err))
			}
		}
	}
}

func (c *conn) writeAll(buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := c.nc.Write(buf[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

func (c *conn) readLoop() {
	defer c.wg.Done()
	defer func() { c.handler.ConnClosed(c, c.Err()) }()

	buf := make([]byte, 4096)
	for {
		n, err := c.nc.Read(buf)
		for _, v := range buf[:n] {
			frame, fErr := c.decoder.Feed(v)
			if fErr != nil {
				c.log.Error("Failed decoding message from controller", zap.Error(fErr))
				c.closeWith(fErr)
				return
			}
			if frame != nil {
				c.handler.HandleFrame(c, frame)
			}
		}
		if err != nil {
			if c.isClosed.Load() && errors.Is(err, net.ErrClosed) {
				return
			}
			if errors.Is(err, io.EOF) {
				c.log.Info("Controller closed the connection")
			} else {
				c.log.Error("Failed reading", zap.Error(err))
			}
			c.closeWith(err)
			return
		}
	}
}

func (c *conn) Wait() { c.wg.Wait() }
