package offload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ipv4Match(offset uint16, ip [4]byte, maskBits int) proto.MatchX {
	m := proto.MatchX{Match: proto.Match{Offset: offset, Length: 32}}
	copy(m.Value[:], ip[:])
	for i := 0; i < maskBits; i++ {
		m.Mask[i/8] |= 0x80 >> (i % 8)
	}
	return m
}

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}
}

func TestRenderMatch(t *testing.T) {
	entry := proto.FlowEntry{Match: []proto.MatchX{
		ipv4Match(208, [4]byte{10, 0, 0, 1}, 32),
		ipv4Match(240, [4]byte{192, 168, 1, 0}, 24),
		ipv4Match(96, [4]byte{1, 2, 3, 4}, 8),
	}}
	assert.Equal(t, map[string]Value{
		"ipv4.srcAddr": {Value: "10.0.0.1/32"},
		"ipv4.dstAddr": {Value: "192.168.1.0/24"},
		"field@96":     {Value: "1.2.3.4/8"},
	}, RenderMatch(entry))

	assert.Nil(t, RenderMatch(proto.FlowEntry{}))
}

func TestRenderRules(t *testing.T) {
	var tag [proto.MaxFieldBytes]byte
	tag[0], tag[1] = 0xBE, 0xEF

	entry := proto.FlowEntry{
		TableID:  2,
		Priority: 5,
		Match:    []proto.MatchX{ipv4Match(240, [4]byte{10, 0, 0, 2}, 32)},
		Instructions: []proto.Instruction{
			proto.Ins(proto.ApplyActions{Actions: []proto.Action{
				proto.Act(proto.Output{OutputPortID: 1}),
				proto.Act(proto.AddField{TagLen: 16, TagValue: tag}),
				proto.Act(proto.CalculateChecksum{}),
			}}),
			proto.Ins(proto.GotoTable{NextTableID: 1}),
		},
	}

	rules := RenderRules(entry, proto.FlowAdd, sequence())
	require.Len(t, rules, 3)

	assert.Equal(t, "r1", rules[0].Name)
	assert.Equal(t, "add", rules[0].Command)
	require.NotNil(t, rules[0].Priority)
	assert.Equal(t, uint16(5), *rules[0].Priority)
	assert.Equal(t, Action{Type: "forward_act", Data: map[string]Value{"port": {Value: "v0.1"}}}, rules[0].Action)
	assert.Equal(t, Action{Type: "add_field", Data: map[string]Value{"field": {Value: "0xbeef"}}}, rules[1].Action)
	assert.Equal(t, Action{Type: "modify_flag", Data: map[string]Value{
		"flag_0": {Value: "0"},
		"flag_1": {Value: "1"},
	}}, rules[2].Action)
	for _, r := range rules {
		assert.Equal(t, uint8(2), r.TableID)
		assert.Contains(t, r.Match, "ipv4.dstAddr")
	}

	rules = RenderRules(entry, proto.FlowDelete, sequence())
	require.Len(t, rules, 3)
	assert.Equal(t, "delete", rules[0].Command)
	assert.Nil(t, rules[0].Priority)

	assert.Equal(t, "edit", RenderRules(entry, proto.FlowModify, sequence())[0].Command)
	assert.Empty(t, RenderRules(entry, proto.FlowModifyStrict, sequence()))
}

func TestTagHex(t *testing.T) {
	var tag [proto.MaxFieldBytes]byte
	tag[0], tag[1] = 0xAB, 0xCD

	assert.Equal(t, "0xabc", tagHex(proto.AddField{TagLen: 12, TagValue: tag}))
	assert.Equal(t, "0x5", tagHex(proto.AddField{TagLen: 3, TagValue: tag}))
	assert.Equal(t, "0xabcd000000000000", tagHex(proto.AddField{TagLen: 64, TagValue: tag}))

	for i := range tag {
		tag[i] = byte(i)
	}
	assert.Equal(t, "0x000102030405060708090a", tagHex(proto.AddField{TagLen: 88, TagValue: tag}))
}

func TestRenderRulesDropIsDefaultRule(t *testing.T) {
	entry := proto.FlowEntry{
		Match: []proto.MatchX{ipv4Match(208, [4]byte{10, 0, 0, 1}, 32)},
		Instructions: []proto.Instruction{
			proto.Ins(proto.ApplyActions{Actions: []proto.Action{
				proto.Act(proto.Drop{}),
				proto.Act(proto.DeleteField{TagPos: 96, TagLen: 32}),
			}}),
		},
	}
	rules := RenderRules(entry, proto.FlowAdd, sequence())
	require.Len(t, rules, 2)
	assert.Equal(t, "drop_act", rules[0].Action.Type)
	assert.Nil(t, rules[0].Match)
	assert.Equal(t, "del_field", rules[1].Action.Type)
	assert.Nil(t, rules[1].Match)
}

func TestRenderTable(t *testing.T) {
	table := proto.FlowTable{
		TableID:     1,
		TableType:   proto.TableExactMatch,
		Name:        "ipv4_host",
		Ingress:     1,
		ActionsMask: 0b0011,
		Match: []proto.Match{
			{Offset: 208, Length: 32},
			{Offset: 240, Length: 32},
		},
	}
	spec, ok := RenderTable(table)
	require.True(t, ok)
	assert.Equal(t, TableSpec{
		Name:    "ipv4_host",
		TableID: 1,
		Reads: []Read{
			{Field: "ipv4.srcAddr", Kind: "exact"},
			{Field: "ipv4.dstAddr", Kind: "exact"},
		},
		Actions: []string{"drop_act", "fwd_act"},
		Ingress: true,
	}, spec)

	table.TableType = proto.TableLongestMatch
	spec, _ = RenderTable(table)
	assert.Equal(t, "lpm", spec.Reads[0].Kind)

	table.TableType = proto.TableLinear
	_, ok = RenderTable(table)
	assert.False(t, ok)
}

type recordingSink struct {
	mu     sync.Mutex
	rules  []Rule
	tables []TableSpec
	fail   bool
}

func (r *recordingSink) ApplyRule(_ context.Context, rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("nic unavailable")
	}
	r.rules = append(r.rules, rule)
	return nil
}

func (r *recordingSink) ApplyTable(_ context.Context, table TableSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append(r.tables, table)
	return nil
}

func forwardEntry() proto.FlowEntry {
	return proto.FlowEntry{
		Instructions: []proto.Instruction{
			proto.Ins(proto.ApplyActions{Actions: []proto.Action{proto.Act(proto.Output{OutputPortID: 3})}}),
		},
	}
}

func TestTranslatorProcessesQueueOnStop(t *testing.T) {
	sink := &recordingSink{}
	tr := New(zap.NewNop(), sink, 8)

	tr.SubmitTable(proto.FlowTable{Name: "t0", TableType: proto.TableMaskedMatch})
	tr.SubmitTable(proto.FlowTable{Name: "linear", TableType: proto.TableLinear})
	tr.SubmitFlow(forwardEntry(), proto.FlowAdd)

	tr.Start(context.Background())
	tr.Stop()

	require.Len(t, sink.tables, 1)
	assert.Equal(t, "t0", sink.tables[0].Name)
	require.Len(t, sink.rules, 1)
	assert.Equal(t, "r1", sink.rules[0].Name)
	assert.Equal(t, Stats{Submitted: 3, Rules: 1, Tables: 1}, tr.Stats())
}

func TestTranslatorDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	tr := New(zap.NewNop(), sink, 1)

	tr.SubmitFlow(forwardEntry(), proto.FlowAdd)
	tr.SubmitFlow(forwardEntry(), proto.FlowAdd)
	assert.Equal(t, uint64(1), tr.Stats().Dropped)

	tr.Start(context.Background())
	tr.Stop()
	assert.Len(t, sink.rules, 1)
}

func TestTranslatorCountsFailures(t *testing.T) {
	sink := &recordingSink{fail: true}
	tr := New(zap.NewNop(), sink, 4)
	tr.SubmitFlow(forwardEntry(), proto.FlowAdd)
	tr.Start(context.Background())
	tr.Stop()
	assert.Equal(t, uint64(1), tr.Stats().Failed)

	// Stopping twice is harmless.
	tr.Stop()
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf)
	prio := uint16(3)

	require.NoError(t, sink.ApplyTable(context.Background(), TableSpec{Name: "t"}))
	require.NoError(t, sink.ApplyRule(context.Background(), Rule{Name: "r1", Command: "add", Priority: &prio}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec struct {
		Kind string          `json:"kind"`
		Rule json.RawMessage `json:"rule"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "rule", rec.Kind)
	assert.JSONEq(t, `{"name":"r1","table_id":0,"command":"add","priority":3,"action":{"type":""}}`, string(rec.Rule))
}
