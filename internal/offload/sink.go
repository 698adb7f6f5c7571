package offload

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sink receives rendered rules and tables.
type Sink interface {
	ApplyRule(ctx context.Context, rule Rule) error
	ApplyTable(ctx context.Context, table TableSpec) error
}

// NewLogSink returns a Sink that only logs what it receives.
func NewLogSink(logger *zap.Logger) Sink {
	return logSink{log: logger.With(zap.String("facility", "offload-sink"))}
}

type logSink struct{ log *zap.Logger }

func (l logSink) ApplyRule(_ context.Context, rule Rule) error {
	l.log.Info("NIC rule", zap.Any("rule", rule))
	return nil
}

func (l logSink) ApplyTable(_ context.Context, table TableSpec) error {
	l.log.Info("NIC table", zap.Any("table", table))
	return nil
}

// JSONSink writes every rule and table to w as one JSON object per line.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink returns a JSONSink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

type jsonRecord struct {
	Kind  string     `json:"kind"`
	Rule  *Rule      `json:"rule,omitempty"`
	Table *TableSpec `json:"table,omitempty"`
}

func (j *JSONSink) write(rec jsonRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(rec)
}

func (j *JSONSink) ApplyRule(_ context.Context, rule Rule) error {
	return j.write(jsonRecord{Kind: "rule", Rule: &rule})
}

func (j *JSONSink) ApplyTable(_ context.Context, table TableSpec) error {
	return j.write(jsonRecord{Kind: "table", Table: &table})
}
