package pofswitch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heyvito/pofswitch/internal/containers"
	"github.com/heyvito/pofswitch/internal/dispatch"
	"github.com/heyvito/pofswitch/internal/localres"
	"github.com/heyvito/pofswitch/internal/logutil"
	"github.com/heyvito/pofswitch/internal/offload"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
	"github.com/heyvito/pofswitch/internal/role"
	"github.com/heyvito/pofswitch/internal/stats"
	"github.com/heyvito/pofswitch/internal/wire"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Switch connects to a set of controllers and applies their messages to
// its datapath slots.
type Switch struct {
	opts *Options
	log  *zap.Logger

	roles      role.Arbiter
	stores     []*localres.Store
	gateway    resource.Gateway
	config     *configStore
	dispatcher dispatch.Dispatcher
	translator *offload.Translator
	stats      *stats.Recorder
	dialer     *wire.Dialer
	state      *stateServer

	conns containers.SyncMap[role.ConnID, wire.Conn]

	failMu   sync.Mutex
	failures map[string]error

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	running sync.WaitGroup
}

// New creates a Switch. Options are normalized in place.
func New(opts *Options) (*Switch, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	logger := opts.LogHandler
	sw := &Switch{
		opts:   opts,
		log:    logger.With(zap.String("facility", "switch")),
		roles:  role.NewArbiter(logger),
		config: newConfigStore(opts),
		stats:  stats.New(),
		dialer: wire.NewDialer(logger, wire.Options{
			LocalAddr:    opts.localIP(),
			QueueDepth:   opts.ReplyQueueDepth,
			DialTimeout:  opts.DialTimeout,
			EchoInterval: opts.EchoInterval,
		}),
		failures: map[string]error{},
	}

	resources := make([]resource.Resource, 0, len(opts.Slots))
	for _, s := range opts.Slots {
		store := localres.New(logger, localres.Options{
			SlotID:     s.SlotID,
			Ports:      s.Ports,
			CounterNum: s.CounterNum,
			MeterNum:   s.MeterNum,
			GroupNum:   s.GroupNum,
			Tables:     localres.DefaultTables(),
		})
		sw.stores = append(sw.stores, store)
		resources = append(resources, store)
	}

	dp, err := resource.NewDatapath(resources...)
	if err != nil {
		return nil, err
	}
	sw.gateway = resource.NewGateway(logger, dp)
	sw.log.Debug("Datapath ready", zap.Int("slots", dp.Len()), zap.Uint16s("ids", dp.IDs()))

	var sink offload.Sink = offload.NewLogSink(logger)
	if opts.OffloadOutput != nil {
		sink = offload.NewJSONSink(opts.OffloadOutput)
	}
	sw.translator = offload.New(logger, sink, opts.OffloadQueueDepth)

	if opts.StateAddress != "" {
		sw.state = newStateServer(logger, sw)
	}

	sw.dispatcher, err = dispatch.New(dispatch.Options{
		Logger:        logger,
		Roles:         sw.roles,
		Gateway:       sw.gateway,
		Sender:        sw,
		Config:        sw.config,
		Executor:      localres.NewExecutor(logger),
		Offload:       sw.translator,
		MultipleSlots: opts.MultipleSlots,
		Observer:      sw.observe,
	})
	if err != nil {
		return nil, err
	}

	return sw, nil
}

// Start starts the offload worker and the state endpoint, and connects to
// every controller. Connections are re-established until Shutdown is
// called or ctx is done.
func (s *Switch) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.stopped {
		return fmt.Errorf("switch already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.translator.Start(ctx)

	if s.state != nil {
		if err := s.state.start(s.opts.StateAddress); err != nil {
			s.cancel()
			s.cancel = nil
			s.translator.Stop()
			return err
		}
	}

	for _, addr := range s.opts.Controllers {
		s.running.Add(1)
		go s.maintain(ctx, addr)
	}
	return nil
}

// Shutdown disconnects from every controller, then stops the offload
// worker and the state endpoint. The returned error combines the last
// failure of every controller that was not connected at that point with
// any error stopping the state endpoint.
func (s *Switch) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel, s.stopped = nil, cancel != nil || s.stopped
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	s.running.Wait()
	s.translator.Stop()

	err := multierr.Combine(s.controllerFailures()...)
	if s.state != nil {
		err = multierr.Append(err, s.state.stop())
	}
	return err
}

func (s *Switch) maintain(ctx context.Context, address string) {
	defer s.running.Done()
	log := s.log.With(zap.String("controller", address))

	for {
		if err := s.serve(ctx, address); err != nil && ctx.Err() == nil {
			log.Warn("Controller connection failed", zap.Error(err))
			s.setFailure(address, fmt.Errorf("controller %s: %w", address, err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ReconnectInterval):
		}
	}
}

// serve runs a single connection to address until it closes.
func (s *Switch) serve(ctx context.Context, address string) error {
	sess := &session{sw: s, id: s.roles.Register()}
	c, err := s.dialer.Dial(ctx, address, sess)
	if err != nil {
		s.roles.Unregister(sess.id)
		return err
	}
	s.conns.LoadOrStore(sess.id, c)
	s.setFailure(address, nil)

	select {
	case <-ctx.Done():
		c.Close()
	case <-c.Done():
	}
	c.Wait()
	s.conns.CompareAndDelete(sess.id, c)
	return c.Err()
}

func (s *Switch) setFailure(address string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.failures, address)
		return
	}
	s.failures[address] = err
}

// controllerFailures returns the pending failures ordered by address.
func (s *Switch) controllerFailures() []error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return containers.MapFn(containers.SortedKeys(s.failures), func(k string) error { return s.failures[k] })
}

func (s *Switch) observe(e dispatch.Event) {
	s.stats.Observe(e)
	if s.state != nil {
		s.state.publish(e)
	}
}

// Roles returns the role held by every connected controller.
func (s *Switch) Roles() []role.Entry { return s.roles.Snapshot() }

// Stats returns dispatch statistics per message type.
func (s *Switch) Stats() []stats.TypeStats { return s.stats.Snapshot() }

// ---- dispatch.ReplySender ----

func (s *Switch) SendReply(conn role.ConnID, xid uint32, msg proto.Message) error {
	c, ok := s.conns.Load(conn)
	if !ok {
		return fmt.Errorf("%w: %d", role.ErrUnknownConnection, conn)
	}
	return c.Write(proto.Pkt(xid, msg))
}

// session binds a wire connection to its role registration.
type session struct {
	sw *Switch
	id role.ConnID
}

// ---- wire.Handler ----

func (h *session) HandleFrame(c wire.Conn, f *proto.Frame) {
	// The first frame may arrive before Dial returns.
	h.sw.conns.LoadOrStore(h.id, c)

	_ = h.sw.dispatcher.DispatchFrame(h.id, *f)
}

func (h *session) ConnClosed(_ wire.Conn, err error) {
	h.sw.conns.Delete(h.id)
	h.sw.roles.Unregister(h.id)
	h.sw.log.Info("Controller disconnected", logutil.Conn(h.id), zap.Error(err))
}
