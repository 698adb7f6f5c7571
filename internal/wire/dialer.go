package wire

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/heyvito/pofswitch/internal/proto"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Options configures controller connections.
type Options struct {
	// LocalAddr, when set, is the address connections are made from.
	LocalAddr net.IP

	// QueueDepth is the amount of messages a connection buffers for
	// writing. Defaults to 64.
	QueueDepth int

	// DialTimeout bounds connection establishment. Defaults to 5 seconds.
	DialTimeout time.Duration

	// EchoInterval, when positive, makes connections send an echo request
	// to the controller periodically.
	EchoInterval time.Duration
}

func (o *Options) normalize() {
	if o.QueueDepth <= 0 {
		o.QueueDepth = 64
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
}

// Dialer opens connections to controllers.
type Dialer struct {
	log  *zap.Logger
	opts Options
}

// NewDialer returns a new Dialer.
func NewDialer(logger *zap.Logger, opts Options) *Dialer {
	opts.normalize()
	return &Dialer{
		log:  logger.With(zap.String("facility", "wire")),
		opts: opts,
	}
}

func (d *Dialer) control(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		if opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); opErr != nil {
			return
		}
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Dial connects to the controller at address, sends a HELLO message and
// starts the connection's read and write routines.
func (d *Dialer) Dial(ctx context.Context, address string, handler Handler) (Conn, error) {
	nd := net.Dialer{
		Timeout: d.opts.DialTimeout,
		Control: d.control,
	}
	if d.opts.LocalAddr != nil {
		nd.LocalAddr = &net.TCPAddr{IP: d.opts.LocalAddr}
	}

	nc, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing controller %s: %w", address, err)
	}

	c := newConn(d.log, nc, d.opts, handler)
	if err = c.Write(proto.Pkt(0, &proto.HelloBody{})); err != nil {
		_ = nc.Close()
		return nil, err
	}
	c.start()
	c.log.Info("Connected to controller")
	return c, nil
}
