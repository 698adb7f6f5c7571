package localres

import (
	"cmp"
	"maps"
	"slices"

	"github.com/heyvito/pofswitch/internal/containers"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
	"go.uber.org/zap"
)

// Options configures the capacity and identity of a Store.
type Options struct {
	SlotID       uint16
	Ports        []proto.Port
	CounterNum   uint32
	MeterNum     uint32
	GroupNum     uint32
	Tables       [proto.MaxTableTypes]proto.TableCapacity
	Capabilities uint32
	VendorID     string
	FirmwareID   string
	LookupID     string
}

// DefaultTables returns one capacity entry per table type.
func DefaultTables() [proto.MaxTableTypes]proto.TableCapacity {
	return [proto.MaxTableTypes]proto.TableCapacity{
		{Type: proto.TableMaskedMatch, TableNum: 16, KeyLength: 320, TotalSize: 8000},
		{Type: proto.TableLongestMatch, TableNum: 8, KeyLength: 160, TotalSize: 8000},
		{Type: proto.TableExactMatch, TableNum: 16, KeyLength: 320, TotalSize: 8000},
		{Type: proto.TableLinear, TableNum: 16, KeyLength: 0, TotalSize: 8000},
	}
}

type tableKey struct {
	id  uint8
	typ proto.TableType
}

type flowKey struct {
	table tableKey
	index uint32
}

type portState struct {
	port     proto.Port
	txPkts   uint64
	txBytes  uint64
	position int
}

// Store is an in-memory resource.Resource for a single slot. It is not safe
// for concurrent use; resource.Datapath serialises access to it.
type Store struct {
	log  *zap.Logger
	opts Options

	tables   map[tableKey]proto.FlowTable
	flows    map[flowKey]proto.FlowEntry
	meters   map[uint32]uint32
	groups   map[uint32]proto.GroupMod
	counters map[uint32]*proto.Counter
	ports    map[uint32]*portState
	blocks   map[uint16]proto.InstructionBlock
}

// New returns an empty Store.
func New(logger *zap.Logger, opts Options) *Store {
	s := &Store{
		log:      logger.With(zap.String("facility", "localres"), zap.Uint16("slot", opts.SlotID)),
		opts:     opts,
		tables:   map[tableKey]proto.FlowTable{},
		flows:    map[flowKey]proto.FlowEntry{},
		meters:   map[uint32]uint32{},
		groups:   map[uint32]proto.GroupMod{},
		counters: map[uint32]*proto.Counter{},
		ports:    map[uint32]*portState{},
		blocks:   map[uint16]proto.InstructionBlock{},
	}
	for i, p := range opts.Ports {
		p.SlotID = opts.SlotID
		s.ports[p.PortID] = &portState{port: p, position: i}
	}
	return s
}

func (s *Store) SlotID() uint16 { return s.opts.SlotID }

func (s *Store) capacity(t proto.TableType) (proto.TableCapacity, bool) {
	for _, c := range s.opts.Tables {
		if c.Type == t && c.TableNum > 0 {
			return c, true
		}
	}
	return proto.TableCapacity{}, false
}

func (s *Store) CreateTable(table proto.FlowTable) error {
	key := tableKey{table.TableID, table.TableType}
	if _, ok := s.tables[key]; ok {
		return resource.Errorf(proto.ErrTableModFailed, proto.CodeEntryExists,
			"table %d (%s) exists", table.TableID, table.TableType)
	}
	capacity, ok := s.capacity(table.TableType)
	if !ok {
		return resource.Errorf(proto.ErrTableModFailed, proto.CodeBadTable,
			"table type %s is not supported", table.TableType)
	}
	used := 0
	for k := range s.tables {
		if k.typ == table.TableType {
			used++
		}
	}
	if used >= int(capacity.TableNum) {
		return resource.Errorf(proto.ErrTableModFailed, proto.CodeTableFull,
			"no room for another %s table", table.TableType)
	}

	s.tables[key] = table
	s.log.Debug("Table created", zap.Uint8("table", table.TableID), zap.String("name", table.Name))
	return nil
}

func (s *Store) DeleteTable(tableID uint8, tableType proto.TableType) error {
	key := tableKey{tableID, tableType}
	if _, ok := s.tables[key]; !ok {
		return resource.Errorf(proto.ErrTableModFailed, proto.CodeEntryMissing,
			"table %d (%s) does not exist", tableID, tableType)
	}
	delete(s.tables, key)
	maps.DeleteFunc(s.flows, func(k flowKey, _ proto.FlowEntry) bool { return k.table == key })
	return nil
}

func (s *Store) flowKey(entry proto.FlowEntry) (flowKey, error) {
	key := flowKey{tableKey{entry.TableID, entry.TableType}, entry.Index}
	if _, ok := s.tables[key.table]; !ok {
		return key, resource.Errorf(proto.ErrFlowModFailed, proto.CodeBadTable,
			"table %d (%s) does not exist", entry.TableID, entry.TableType)
	}
	return key, nil
}

func (s *Store) AddFlow(entry proto.FlowEntry) error {
	key, err := s.flowKey(entry)
	if err != nil {
		return err
	}
	if _, ok := s.flows[key]; ok {
		return resource.Errorf(proto.ErrFlowModFailed, proto.CodeEntryExists,
			"entry %d exists in table %d", entry.Index, entry.TableID)
	}
	used := 0
	for k := range s.flows {
		if k.table == key.table {
			used++
		}
	}
	if table := s.tables[key.table]; table.Size != 0 && used >= int(table.Size) {
		return resource.Errorf(proto.ErrFlowModFailed, proto.CodeTableFull,
			"table %d is full", entry.TableID)
	}

	if entry.CounterID != 0 {
		if _, ok := s.counters[entry.CounterID]; !ok {
			s.counters[entry.CounterID] = &proto.Counter{CounterID: entry.CounterID}
		}
	}
	s.flows[key] = entry
	return nil
}

func (s *Store) DeleteFlow(entry proto.FlowEntry) error {
	key, err := s.flowKey(entry)
	if err != nil {
		return err
	}
	if _, ok := s.flows[key]; !ok {
		return resource.Errorf(proto.ErrFlowModFailed, proto.CodeEntryMissing,
			"entry %d does not exist in table %d", entry.Index, entry.TableID)
	}
	delete(s.flows, key)
	return nil
}

func (s *Store) ModifyFlow(entry proto.FlowEntry) error {
	key, err := s.flowKey(entry)
	if err != nil {
		return err
	}
	if _, ok := s.flows[key]; !ok {
		return resource.Errorf(proto.ErrFlowModFailed, proto.CodeEntryMissing,
			"entry %d does not exist in table %d", entry.Index, entry.TableID)
	}
	s.flows[key] = entry
	return nil
}

func (s *Store) AddMeter(meterID, rate uint32) error {
	if _, ok := s.meters[meterID]; ok {
		return resource.Errorf(proto.ErrMeterModFailed, proto.CodeEntryExists, "meter %d exists", meterID)
	}
	if s.opts.MeterNum != 0 && len(s.meters) >= int(s.opts.MeterNum) {
		return resource.Errorf(proto.ErrMeterModFailed, proto.CodeTableFull, "no room for meter %d", meterID)
	}
	s.meters[meterID] = rate
	return nil
}

func (s *Store) ModifyMeter(meterID, rate uint32) error {
	if _, ok := s.meters[meterID]; !ok {
		return resource.Errorf(proto.ErrMeterModFailed, proto.CodeEntryMissing, "meter %d does not exist", meterID)
	}
	s.meters[meterID] = rate
	return nil
}

func (s *Store) DeleteMeter(meterID uint32) error {
	if _, ok := s.meters[meterID]; !ok {
		return resource.Errorf(proto.ErrMeterModFailed, proto.CodeEntryMissing, "meter %d does not exist", meterID)
	}
	delete(s.meters, meterID)
	return nil
}

func (s *Store) AddGroup(group proto.GroupMod) error {
	if _, ok := s.groups[group.GroupID]; ok {
		return resource.Errorf(proto.ErrGroupModFailed, proto.CodeEntryExists, "group %d exists", group.GroupID)
	}
	if s.opts.GroupNum != 0 && len(s.groups) >= int(s.opts.GroupNum) {
		return resource.Errorf(proto.ErrGroupModFailed, proto.CodeTableFull, "no room for group %d", group.GroupID)
	}
	s.groups[group.GroupID] = group
	return nil
}

func (s *Store) ModifyGroup(group proto.GroupMod) error {
	if _, ok := s.groups[group.GroupID]; !ok {
		return resource.Errorf(proto.ErrGroupModFailed, proto.CodeEntryMissing, "group %d does not exist", group.GroupID)
	}
	s.groups[group.GroupID] = group
	return nil
}

func (s *Store) DeleteGroup(groupID uint32) error {
	if _, ok := s.groups[groupID]; !ok {
		return resource.Errorf(proto.ErrGroupModFailed, proto.CodeEntryMissing, "group %d does not exist", groupID)
	}
	delete(s.groups, groupID)
	return nil
}

// InitCounter creates a counter, or resets it when it already exists.
func (s *Store) InitCounter(counterID uint32) error {
	if _, ok := s.counters[counterID]; !ok && s.opts.CounterNum != 0 && len(s.counters) >= int(s.opts.CounterNum) {
		return resource.Errorf(proto.ErrCounterModFailed, proto.CodeTableFull, "no room for counter %d", counterID)
	}
	s.counters[counterID] = &proto.Counter{CounterID: counterID}
	return nil
}

func (s *Store) ClearCounter(counterID uint32) error {
	c, ok := s.counters[counterID]
	if !ok {
		return resource.Errorf(proto.ErrCounterModFailed, proto.CodeEntryMissing, "counter %d does not exist", counterID)
	}
	c.Value, c.ByteValue = 0, 0
	return nil
}

func (s *Store) DeleteCounter(counterID uint32) error {
	if _, ok := s.counters[counterID]; !ok {
		return resource.Errorf(proto.ErrCounterModFailed, proto.CodeEntryMissing, "counter %d does not exist", counterID)
	}
	delete(s.counters, counterID)
	return nil
}

func (s *Store) SetPortEnable(portID uint32, enable bool) error {
	p, ok := s.ports[portID]
	if !ok {
		return resource.Errorf(proto.ErrPortModFailed, proto.CodeEntryMissing, "port %d does not exist", portID)
	}
	if p.port.OFEnable != enable {
		s.log.Info("Port protocol state changed", zap.Uint32("port", portID), zap.Bool("enabled", enable))
	}
	p.port.OFEnable = enable
	return nil
}

func (s *Store) AddInstructionBlock(block proto.InstructionBlock) error {
	if _, ok := s.blocks[block.BlockID]; ok {
		return resource.Errorf(proto.ErrInsBlockModFailed, proto.CodeEntryExists, "block %d exists", block.BlockID)
	}
	s.blocks[block.BlockID] = block
	return nil
}

func (s *Store) ModifyInstructionBlock(block proto.InstructionBlock) error {
	if _, ok := s.blocks[block.BlockID]; !ok {
		return resource.Errorf(proto.ErrInsBlockModFailed, proto.CodeEntryMissing, "block %d does not exist", block.BlockID)
	}
	s.blocks[block.BlockID] = block
	return nil
}

func (s *Store) DeleteInstructionBlock(blockID uint16) error {
	if _, ok := s.blocks[blockID]; !ok {
		return resource.Errorf(proto.ErrInsBlockModFailed, proto.CodeEntryMissing, "block %d does not exist", blockID)
	}
	delete(s.blocks, blockID)
	return nil
}

func (s *Store) TableResource() proto.ResourceReport {
	return proto.ResourceReport{
		SlotID:     s.opts.SlotID,
		CounterNum: s.opts.CounterNum,
		MeterNum:   s.opts.MeterNum,
		GroupNum:   s.opts.GroupNum,
		Tables:     s.opts.Tables,
	}
}

func (s *Store) sortedPorts() []*portState {
	out := containers.Values(s.ports)
	slices.SortFunc(out, func(a, b *portState) int { return cmp.Compare(a.position, b.position) })
	return out
}

func (s *Store) PortResources() []proto.PortStatus {
	ports := s.sortedPorts()
	out := make([]proto.PortStatus, 0, len(ports))
	for _, p := range ports {
		out = append(out, proto.PortStatus{Reason: proto.PortAdded, Port: p.port})
	}
	return out
}

func (s *Store) PortIDs() []uint32 {
	ports := s.sortedPorts()
	out := make([]uint32, 0, len(ports))
	for _, p := range ports {
		out = append(out, p.port.PortID)
	}
	return out
}

func (s *Store) FeatureResource(deviceID uint32) proto.FeaturesReply {
	tables := 0
	for _, t := range s.opts.Tables {
		tables += int(t.TableNum)
	}
	return proto.FeaturesReply{
		DeviceID:     deviceID,
		PortNum:      uint16(len(s.ports)),
		TableNum:     uint16(tables),
		Capabilities: s.opts.Capabilities,
		SlotID:       s.opts.SlotID,
		VendorID:     s.opts.VendorID,
		FirmwareID:   s.opts.FirmwareID,
		LookupID:     s.opts.LookupID,
	}
}

func (s *Store) CounterValue(counterID uint32) (proto.Counter, error) {
	c, ok := s.counters[counterID]
	if !ok {
		return proto.Counter{}, resource.Errorf(proto.ErrCounterModFailed, proto.CodeEntryMissing,
			"counter %d does not exist", counterID)
	}
	out := *c
	out.Command = proto.CounterQuery
	out.SlotID = s.opts.SlotID
	return out, nil
}

// QueryAll returns tables, flows, meters, groups, counters and instruction
// blocks, each group sorted by id.
func (s *Store) QueryAll() []proto.Message {
	var out []proto.Message

	tableKeys := containers.Keys(s.tables)
	slices.SortFunc(tableKeys, compareTableKeys)
	for _, k := range tableKeys {
		t := s.tables[k]
		t.Command = proto.TableAdd
		out = append(out, &t)
	}

	flowKeys := containers.Keys(s.flows)
	slices.SortFunc(flowKeys, func(a, b flowKey) int {
		if c := compareTableKeys(a.table, b.table); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})
	for _, k := range flowKeys {
		f := s.flows[k]
		f.Command = proto.FlowAdd
		out = append(out, &f)
	}

	for _, id := range containers.SortedKeys(s.meters) {
		out = append(out, &proto.MeterMod{Command: proto.EntryAdd, SlotID: s.opts.SlotID, MeterID: id, Rate: s.meters[id]})
	}

	for _, id := range containers.SortedKeys(s.groups) {
		g := s.groups[id]
		g.Command = proto.EntryAdd
		g.SlotID = s.opts.SlotID
		out = append(out, &g)
	}

	for _, id := range containers.SortedKeys(s.counters) {
		c, _ := s.CounterValue(id)
		out = append(out, &proto.CounterReply{Counter: c})
	}

	for _, id := range containers.SortedKeys(s.blocks) {
		b := s.blocks[id]
		b.Command = proto.FlowAdd
		out = append(out, &b)
	}

	return out
}

func compareTableKeys(a, b tableKey) int {
	if c := cmp.Compare(a.typ, b.typ); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// Summary counts the entries held by a Store.
type Summary struct {
	Tables   int `json:"tables"`
	Flows    int `json:"flows"`
	Meters   int `json:"meters"`
	Groups   int `json:"groups"`
	Counters int `json:"counters"`
	Blocks   int `json:"instruction_blocks"`
}

// Summary returns the amount of entries of each kind.
func (s *Store) Summary() Summary {
	return Summary{
		Tables:   len(s.tables),
		Flows:    len(s.flows),
		Meters:   len(s.meters),
		Groups:   len(s.groups),
		Counters: len(s.counters),
		Blocks:   len(s.blocks),
	}
}

// Flow returns the entry stored at index of a table.
func (s *Store) Flow(tableID uint8, tableType proto.TableType, index uint32) (proto.FlowEntry, bool) {
	f, ok := s.flows[flowKey{tableKey{tableID, tableType}, index}]
	return f, ok
}
