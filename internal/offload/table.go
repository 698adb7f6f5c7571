package offload

import "github.com/heyvito/pofswitch/internal/proto"

// Read is a single key of a NIC table.
type Read struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
}

// TableSpec describes a table to be created on the NIC.
type TableSpec struct {
	Name    string   `json:"name"`
	TableID uint8    `json:"table_id"`
	Reads   []Read   `json:"reads"`
	Actions []string `json:"actions"`
	Ingress bool     `json:"ingress"`
	Valid   bool     `json:"valid"`
}

// Bits of FlowTable.ActionsMask, lowest first.
var actionNames = []string{"drop_act", "fwd_act", "add_field", "set_field"}

func matchKind(t proto.TableType) (string, bool) {
	switch t {
	case proto.TableMaskedMatch, proto.TableLongestMatch:
		return "lpm", true
	case proto.TableExactMatch:
		return "exact", true
	}
	return "", false
}

// RenderTable converts a created flow table into a NIC table spec. Linear
// tables have no keys and yield false.
func RenderTable(t proto.FlowTable) (TableSpec, bool) {
	kind, ok := matchKind(t.TableType)
	if !ok {
		return TableSpec{}, false
	}
	spec := TableSpec{
		Name:    t.Name,
		TableID: t.TableID,
		Reads:   make([]Read, 0, len(t.Match)),
		Ingress: t.Ingress != 0,
		Valid:   t.Valid != 0,
	}
	for _, m := range t.Match {
		spec.Reads = append(spec.Reads, Read{Field: FieldName(m.Offset), Kind: kind})
	}
	for i, n := range actionNames {
		if t.ActionsMask&(1<<i) != 0 {
			spec.Actions = append(spec.Actions, n)
		}
	}
	return spec, true
}
