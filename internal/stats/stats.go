package stats

import (
	"sync"
	"time"

	"github.com/heyvito/pofswitch/internal/containers"
	"github.com/heyvito/pofswitch/internal/dispatch"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/influxdata/tdigest"
)

// TypeStats summarises the messages of a single type.
type TypeStats struct {
	Type   string        `json:"type"`
	Count  uint64        `json:"count"`
	Errors uint64        `json:"errors"`
	P50    time.Duration `json:"p50"`
	P99    time.Duration `json:"p99"`
	Max    time.Duration `json:"max"`
}

type entry struct {
	count  uint64
	errors uint64
	max    time.Duration

	// digest holds dispatch latencies in microseconds.
	digest *tdigest.TDigest
}

// Recorder keeps dispatch latency quantiles per message type. Its Observe
// method fits dispatch.Options.Observer.
type Recorder struct {
	mu     sync.Mutex
	byType map[proto.MsgType]*entry
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{byType: map[proto.MsgType]*entry{}}
}

// Observe accounts a dispatched message.
func (r *Recorder) Observe(e dispatch.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	en, ok := r.byType[e.Type]
	if !ok {
		en = &entry{digest: tdigest.New()}
		r.byType[e.Type] = en
	}
	en.count++
	if e.Err != nil {
		en.errors++
	}
	en.max = max(en.max, e.Duration)
	en.digest.Add(float64(e.Duration.Microseconds()), 1)
}

// Snapshot returns statistics for every type seen so far, ordered by type.
func (r *Recorder) Snapshot() []TypeStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := containers.SortedKeys(r.byType)
	out := make([]TypeStats, 0, len(types))
	for _, t := range types {
		en := r.byType[t]
		ts := TypeStats{
			Type:   t.String(),
			Count:  en.count,
			Errors: en.errors,
			Max:    en.max,
		}
		if en.digest.Count() > 0 {
			ts.P50 = time.Duration(en.digest.Quantile(0.5)) * time.Microsecond
			ts.P99 = time.Duration(en.digest.Quantile(0.99)) * time.Microsecond
		}
		out = append(out, ts)
	}
	return out
}
