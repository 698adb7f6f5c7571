package offload

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/heyvito/pofswitch/internal/bitfield"
	"github.com/heyvito/pofswitch/internal/proto"
)

// Names of the header fields a NIC table can match on, keyed by their bit
// offset in the packet.
var fieldNames = map[uint16]string{
	0:   "eth.dst",
	48:  "eth.src",
	208: "ipv4.srcAddr",
	240: "ipv4.dstAddr",
}

// FieldName returns the NIC name of the field starting at bit offset.
func FieldName(offset uint16) string {
	if n, ok := fieldNames[offset]; ok {
		return n
	}
	return fmt.Sprintf("field@%d", offset)
}

// PortName returns the NIC name of a switch port.
func PortName(portID uint32) string { return fmt.Sprintf("v0.%d", portID) }

// Value is the leaf of every rule object.
type Value struct {
	Value string `json:"value"`
}

// Action is the action half of a NIC rule.
type Action struct {
	Type string           `json:"type"`
	Data map[string]Value `json:"data,omitempty"`
}

// Rule is a single NIC table rule. A Rule without Match is the table's
// default rule.
type Rule struct {
	Name     string           `json:"name"`
	TableID  uint8            `json:"table_id"`
	Command  string           `json:"command"`
	Priority *uint16          `json:"priority,omitempty"`
	Match    map[string]Value `json:"match,omitempty"`
	Action   Action           `json:"action"`
}

func commandName(cmd proto.FlowCommand) (string, bool) {
	switch cmd {
	case proto.FlowAdd:
		return "add", true
	case proto.FlowModify:
		return "edit", true
	case proto.FlowDelete:
		return "delete", true
	}
	return "", false
}

// dotted renders bytes as dot-separated decimals, as in 10.0.0.1.
func dotted(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, ".")
}

// RenderMatch returns the NIC match object of an entry. Values are written
// as dotted decimals followed by the amount of mask bits set.
func RenderMatch(entry proto.FlowEntry) map[string]Value {
	if len(entry.Match) == 0 {
		return nil
	}
	out := make(map[string]Value, len(entry.Match))
	for _, m := range entry.Match {
		n := min(int(m.Length)/8, proto.MaxFieldBytes)
		out[FieldName(m.Offset)] = Value{
			Value: fmt.Sprintf("%s/%d", dotted(m.Value[:n]), bitfield.PopCount(m.Mask[:n])),
		}
	}
	return out
}

// renderAction returns the NIC action for a. Actions the NIC cannot run
// yield false; drop yields true for clearsMatch.
func renderAction(a proto.Action) (act Action, clearsMatch, ok bool) {
	switch v := a.Data.(type) {
	case proto.Output:
		return Action{Type: "forward_act", Data: map[string]Value{"port": {Value: PortName(v.OutputPortID)}}}, false, true
	case proto.AddField:
		return Action{Type: "add_field", Data: map[string]Value{"field": {Value: tagHex(v)}}}, false, true
	case proto.DeleteField:
		return Action{Type: "del_field", Data: map[string]Value{"field": {Value: fmt.Sprintf("%d/%d", v.TagPos, v.TagLen)}}}, false, true
	case proto.Drop:
		return Action{Type: "drop_act"}, true, true
	}
	return Action{}, false, false
}

// tagHex renders the TagLen leading bits of an added tag. Tags of up to 64
// bits are rendered as a single integer, so lengths that are not a multiple
// of 8 keep their trailing bits; longer tags are rendered byte by byte.
func tagHex(v proto.AddField) string {
	if v.TagLen > 0 && v.TagLen <= 64 {
		raw := binary.BigEndian.Uint64(v.TagValue[:8])
		if tag, err := bitfield.ExtractField(raw, 0, uint16(v.TagLen), 64); err == nil {
			return fmt.Sprintf("0x%0*x", (int(v.TagLen)+3)/4, tag)
		}
	}

	var sb strings.Builder
	sb.WriteString("0x")
	n := min(int(v.TagLen)/8, proto.MaxFieldBytes)
	for _, b := range v.TagValue[:n] {
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// gotoFlags is the amount of table flags a modify_flag action sets.
const gotoFlags = 2

func renderGoto(g proto.GotoTable) Action {
	data := make(map[string]Value, gotoFlags)
	for i := 0; i < gotoFlags; i++ {
		v := "0"
		if int(g.NextTableID) == i {
			v = "1"
		}
		data[fmt.Sprintf("flag_%d", i)] = Value{Value: v}
	}
	return Action{Type: "modify_flag", Data: data}
}

// RenderRules converts an applied flow entry into NIC rules: one per
// applied action and one per goto-table instruction. name is called once
// per produced rule. Commands the NIC has no verb for yield no rules.
func RenderRules(entry proto.FlowEntry, cmd proto.FlowCommand, name func() string) []Rule {
	verb, ok := commandName(cmd)
	if !ok {
		return nil
	}
	match := RenderMatch(entry)

	newRule := func(a Action) Rule {
		r := Rule{
			Name:    name(),
			TableID: entry.TableID,
			Command: verb,
			Match:   match,
			Action:  a,
		}
		if cmd != proto.FlowDelete {
			prio := entry.Priority
			r.Priority = &prio
		}
		return r
	}

	var out []Rule
	for _, ins := range entry.Instructions {
		switch v := ins.Data.(type) {
		case proto.ApplyActions:
			for _, a := range v.Actions {
				act, clears, ok := renderAction(a)
				if !ok {
					continue
				}
				if clears {
					match = nil
				}
				out = append(out, newRule(act))
			}
		case proto.GotoTable:
			out = append(out, newRule(renderGoto(v)))
		}
	}
	return out
}
