package offload

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/heyvito/pofswitch/internal/proto"
	"go.uber.org/zap"
)

// DefaultQueueDepth is used when New receives a non-positive depth.
const DefaultQueueDepth = 256

type job struct {
	flow  *proto.FlowEntry
	cmd   proto.FlowCommand
	table *proto.FlowTable
}

// Stats reports the activity of a Translator.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Dropped   uint64 `json:"dropped"`
	Rules     uint64 `json:"rules"`
	Tables    uint64 `json:"tables"`
	Failed    uint64 `json:"failed"`
}

// Translator renders applied tables and flows for a NIC and hands them to
// a Sink. Submissions are queued and processed by a single worker; when the
// queue is full they are dropped.
type Translator struct {
	log  *zap.Logger
	sink Sink

	queue chan job
	seq   atomic.Uint64

	submitted atomic.Uint64
	dropped   atomic.Uint64
	rules     atomic.Uint64
	tables    atomic.Uint64
	failed    atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New returns a stopped Translator. A nil sink logs every output.
func New(logger *zap.Logger, sink Sink, depth int) *Translator {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	log := logger.With(zap.String("facility", "offload"))
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &Translator{
		log:   log,
		sink:  sink,
		queue: make(chan job, depth),
	}
}

// Start runs the worker until Stop is called or ctx is done.
func (t *Translator) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	t.running = true
	go t.work(ctx, t.done)
}

// Stop halts the worker, processing whatever is already queued, and waits
// for it to return.
func (t *Translator) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.cancel()
	done := t.done
	t.mu.Unlock()
	<-done
}

func (t *Translator) SubmitFlow(entry proto.FlowEntry, cmd proto.FlowCommand) {
	t.enqueue(job{flow: &entry, cmd: cmd})
}

func (t *Translator) SubmitTable(table proto.FlowTable) {
	t.enqueue(job{table: &table})
}

func (t *Translator) enqueue(j job) {
	select {
	case t.queue <- j:
		t.submitted.Add(1)
	default:
		t.dropped.Add(1)
		t.log.Warn("Offload queue is full, dropping submission", zap.Int("depth", cap(t.queue)))
	}
}

// Stats returns counters since the Translator was created.
func (t *Translator) Stats() Stats {
	return Stats{
		Submitted: t.submitted.Load(),
		Dropped:   t.dropped.Load(),
		Rules:     t.rules.Load(),
		Tables:    t.tables.Load(),
		Failed:    t.failed.Load(),
	}
}

func (t *Translator) work(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case j := <-t.queue:
			t.process(ctx, j)
		case <-ctx.Done():
			t.drain()
			return
		}
	}
}

func (t *Translator) drain() {
	for {
		select {
		case j := <-t.queue:
			t.process(context.Background(), j)
		default:
			return
		}
	}
}

func (t *Translator) nextName() string {
	return fmt.Sprintf("r%d", t.seq.Add(1))
}

func (t *Translator) process(ctx context.Context, j job) {
	if j.table != nil {
		spec, ok := RenderTable(*j.table)
		if !ok {
			t.log.Debug("Table has no NIC representation",
				zap.Uint8("table", j.table.TableID),
				zap.Stringer("type", j.table.TableType))
			return
		}
		if err := t.sink.ApplyTable(ctx, spec); err != nil {
			t.failed.Add(1)
			t.log.Error("Could not offload table", zap.String("name", spec.Name), zap.Error(err))
			return
		}
		t.tables.Add(1)
		return
	}

	for _, r := range RenderRules(*j.flow, j.cmd, t.nextName) {
		if err := t.sink.ApplyRule(ctx, r); err != nil {
			t.failed.Add(1)
			t.log.Error("Could not offload rule", zap.String("name", r.Name), zap.Error(err))
			continue
		}
		t.rules.Add(1)
	}
}
