package dispatch

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/heyvito/pofswitch/internal/logutil"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
	"github.com/heyvito/pofswitch/internal/role"
	"go.uber.org/zap"
)

// Event describes a dispatched message. It is handed to Options.Observer
// once Dispatch is done with the message.
type Event struct {
	Conn     role.ConnID
	Type     proto.MsgType
	Xid      uint32
	Duration time.Duration
	Err      error
}

// Options configures a Dispatcher. Roles, Gateway, Sender and Config are
// required.
type Options struct {
	Logger   *zap.Logger
	Roles    role.Arbiter
	Gateway  resource.Gateway
	Sender   ReplySender
	Config   ConfigStore
	Executor ActionExecutor
	Offload  OffloadTranslator

	// MultipleSlots makes PortMod and SlotConfig address the slot named in
	// the message instead of the base slot.
	MultipleSlots bool

	// Observer, when set, is called synchronously after every message.
	Observer func(Event)
}

// Dispatcher applies controller messages to the datapath.
type Dispatcher interface {
	// Dispatch handles a single message received from conn. A *ReplyError
	// is returned when the failure was reported to the controller; any
	// other error was only logged.
	Dispatch(conn role.ConnID, pkt *proto.Packet) error

	// DispatchRaw parses a complete encoded message and dispatches it.
	DispatchRaw(conn role.ConnID, data []byte) error

	// DispatchFrame decodes the body of a framed message and dispatches
	// it. The header xid is recorded even when the body is malformed.
	DispatchFrame(conn role.ConnID, f proto.Frame) error

	// LastXid returns the xid of the last message received with a valid
	// header.
	LastXid() uint32
}

// New returns a new Dispatcher.
func New(opts Options) (Dispatcher, error) {
	switch {
	case opts.Roles == nil:
		return nil, fmt.Errorf("dispatch: role arbiter is required")
	case opts.Gateway == nil:
		return nil, fmt.Errorf("dispatch: gateway is required")
	case opts.Sender == nil:
		return nil, fmt.Errorf("dispatch: reply sender is required")
	case opts.Config == nil:
		return nil, fmt.Errorf("dispatch: config store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Executor == nil {
		opts.Executor = nopExecutor{}
	}
	if opts.Offload == nil {
		opts.Offload = nopOffload{}
	}

	return &dispatcher{
		log:      opts.Logger.With(zap.String("facility", "dispatch")),
		roles:    opts.Roles,
		gw:       opts.Gateway,
		dp:       opts.Gateway.Datapath(),
		sender:   opts.Sender,
		config:   opts.Config,
		executor: opts.Executor,
		offload:  opts.Offload,
		multi:    opts.MultipleSlots,
		observer: opts.Observer,
	}, nil
}

type dispatcher struct {
	log      *zap.Logger
	roles    role.Arbiter
	gw       resource.Gateway
	dp       *resource.Datapath
	sender   ReplySender
	config   ConfigStore
	executor ActionExecutor
	offload  OffloadTranslator
	multi    bool
	observer func(Event)

	lastXid atomic.Uint32
}

// request carries the origin of the message being handled.
type request struct {
	conn role.ConnID
	xid  uint32
	log  *zap.Logger
}

func (d *dispatcher) LastXid() uint32 { return d.lastXid.Load() }

func (d *dispatcher) DispatchRaw(conn role.ConnID, data []byte) error {
	pkt, err := proto.ParsePacket(data)
	if err != nil {
		var malformed proto.MalformedError
		if errors.As(err, &malformed) {
			d.lastXid.Store(malformed.Xid)
		}
		d.log.Warn("Dropping unparseable message", logutil.Conn(conn), zap.Error(err))
		return err
	}
	return d.Dispatch(conn, pkt)
}

func (d *dispatcher) DispatchFrame(conn role.ConnID, f proto.Frame) error {
	pkt, err := f.Parse()
	if err != nil {
		d.lastXid.Store(f.Header.Xid)
		d.log.Warn("Dropping undecodable message", logutil.Conn(conn), zap.Error(err))
		return err
	}
	return d.Dispatch(conn, pkt)
}

func (d *dispatcher) Dispatch(conn role.ConnID, pkt *proto.Packet) error {
	start := time.Now()
	d.lastXid.Store(pkt.Header.Xid)

	req := request{
		conn: conn,
		xid:  pkt.Header.Xid,
		log:  d.log.With(logutil.Conn(conn)).With(logutil.Header(pkt.Header)...),
	}

	err := d.dispatch(req, pkt.Message)
	var replyErr *ReplyError
	switch {
	case err == nil:
		req.log.Debug("Message handled")
	case errors.As(err, &replyErr):
		msg := proto.NewError(replyErr.Type, replyErr.Code, d.config.DeviceID(), replyErr.Err.Error())
		replyErr.SendErr = d.sender.SendReply(conn, req.xid, msg)
		req.log.Warn("Request failed", zap.Stringer("reply", msg), zap.NamedError("send_error", replyErr.SendErr))
		err = replyErr
	default:
		req.log.Error("Could not handle message", zap.Error(err))
	}

	if d.observer != nil {
		d.observer(Event{
			Conn:     conn,
			Type:     pkt.Header.Type,
			Xid:      req.xid,
			Duration: time.Since(start),
			Err:      err,
		})
	}
	return err
}

func (d *dispatcher) dispatch(req request, msg proto.Message) error {
	if _, err := d.roles.Role(req.conn); err != nil {
		return err
	}

	switch m := msg.(type) {
	case *proto.HelloBody, *proto.EchoReply:
		return nil
	case *proto.EchoRequest:
		return d.reply(req, &proto.EchoReply{})
	case *proto.SetConfig:
		return d.config.SetConfig(m.Flags, m.MissSendLen)
	case *proto.GetConfigRequest:
		return d.handleGetConfig(req)
	case *proto.PortMod:
		return d.handlePortMod(m)
	case *proto.SlotConfig:
		return d.handleSlotConfig(m)
	case *proto.FeaturesRequest:
		return d.handleFeatures(req)
	case *proto.FlowTable:
		if !d.isMaster(req) {
			return nil
		}
		return d.handleTableMod(m)
	case *proto.FlowEntry:
		if !d.isMaster(req) {
			return nil
		}
		return d.handleFlowMod(m)
	case *proto.RoleRequest:
		return d.handleRoleRequest(req, m)
	case *proto.PacketOut:
		if !d.isMaster(req) {
			return nil
		}
		return d.handlePacketOut(req, m)
	case *proto.MeterMod:
		return d.handleMeterMod(m)
	case *proto.GroupMod:
		return d.handleGroupMod(m)
	case *proto.CounterMod:
		return d.handleCounterMod(m)
	case *proto.CounterRequest:
		return d.handleCounterRequest(req, m)
	case *proto.InstructionBlock:
		return d.handleInstructionBlock(m)
	case *proto.QueryAllRequest:
		return d.handleQueryAll(req, m)
	default:
		return upward(proto.ErrBadRequest, proto.CodeBadType, "unsupported message type %s", msg.Type())
	}
}

func (d *dispatcher) isMaster(req request) bool {
	if d.roles.IsMaster(req.conn) {
		return true
	}
	req.log.Debug("Ignoring message from non-master connection")
	return false
}

// reply sends a normal reply. A delivery failure becomes an upward
// SoftwareFailed/WriteFailure error.
func (d *dispatcher) reply(req request, msg proto.Message) error {
	if err := d.sender.SendReply(req.conn, req.xid, msg); err != nil {
		return &ReplyError{
			Type: proto.ErrSoftwareFailed,
			Code: proto.CodeWriteFailure,
			Err:  fmt.Errorf("sending %s: %w", msg.Type(), err),
		}
	}
	return nil
}

// fanout wraps failures of Gateway and Datapath calls into upward errors,
// leaving errors already meant for the controller untouched.
func fanout(err error) error {
	if err == nil {
		return nil
	}
	var replyErr *ReplyError
	if errors.As(err, &replyErr) {
		return replyErr
	}
	return fanoutFailure(err)
}

// resolveSlot returns the slot addressed by a PortMod or SlotConfig.
func (d *dispatcher) resolveSlot(slot uint16) (uint16, error) {
	if d.multi {
		if !d.dp.Has(slot) {
			return 0, fmt.Errorf("%w: %d", resource.ErrInvalidSlot, slot)
		}
		return slot, nil
	}
	base, ok := d.dp.Base()
	if !ok {
		return 0, fmt.Errorf("%w: %w", resource.ErrInvalidSlot, ErrNoSlots)
	}
	return base, nil
}

func (d *dispatcher) handleGetConfig(req request) error {
	if err := d.reply(req, &proto.GetConfigReply{SwitchConfig: d.config.Config()}); err != nil {
		return err
	}

	err := d.dp.Each(func(_ uint16, r resource.Resource) error {
		report := r.TableResource()
		return d.reply(req, &report)
	})
	if err != nil {
		return fanout(err)
	}

	err = d.dp.Each(func(_ uint16, r resource.Resource) error {
		for _, p := range r.PortResources() {
			p := p
			if err := d.reply(req, &p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fanout(err)
	}

	return fanout(d.dp.Each(func(id uint16, _ resource.Resource) error {
		return d.reply(req, &proto.SlotStatus{SlotID: id, State: proto.SlotUp, Reason: proto.SlotReasonResend})
	}))
}

func (d *dispatcher) handlePortMod(m *proto.PortMod) error {
	slot, err := d.resolveSlot(m.Port.SlotID)
	if err != nil {
		return fanout(err)
	}
	return fanout(d.gw.Apply(slot, resource.SetPortEnable{PortID: m.Port.PortID, Enable: m.Port.OFEnable}))
}

func (d *dispatcher) handleSlotConfig(m *proto.SlotConfig) error {
	slot, err := d.resolveSlot(m.SlotID)
	if err != nil {
		return fanout(err)
	}
	return fanout(d.gw.Apply(slot, resource.SetSlotPortsEnable{Enable: m.Enable}))
}

func (d *dispatcher) handleFeatures(req request) error {
	deviceID, err := d.config.ResetDeviceID()
	if err != nil {
		return fmt.Errorf("resetting device id: %w", err)
	}
	return fanout(d.dp.Each(func(_ uint16, r resource.Resource) error {
		features := r.FeatureResource(deviceID)
		return d.reply(req, &features)
	}))
}

func (d *dispatcher) handleTableMod(m *proto.FlowTable) error {
	switch m.Command {
	case proto.TableAdd:
		if err := d.gw.ApplyToAll(resource.CreateTable{Table: *m}); err != nil {
			return fanout(err)
		}
		d.offload.SubmitTable(*m)
		return nil
	case proto.TableDelete:
		return fanout(d.gw.ApplyToAll(resource.DeleteTable{TableID: m.TableID, TableType: m.TableType}))
	default:
		return badCommand(proto.ErrTableModFailed, proto.CodeTableModBadCommand, m.Command)
	}
}

func (d *dispatcher) handleFlowMod(m *proto.FlowEntry) error {
	var op resource.Op
	switch m.Command {
	case proto.FlowAdd:
		op = resource.AddFlow{Entry: *m}
	case proto.FlowDelete:
		op = resource.DeleteFlow{Entry: *m}
	case proto.FlowModify:
		op = resource.ModifyFlow{Entry: *m}
	default:
		return badCommand(proto.ErrFlowModFailed, proto.CodeFlowModBadCommand, m.Command)
	}
	if err := d.gw.ApplyToAll(op); err != nil {
		return fanout(err)
	}
	d.offload.SubmitFlow(*m, m.Command)
	return nil
}

func (d *dispatcher) handleRoleRequest(req request, m *proto.RoleRequest) error {
	out, err := d.roles.RequestRole(req.conn, m.Role)
	if err != nil {
		return err
	}
	if len(out.Demoted) > 0 {
		req.log.Info("Previous master demoted", zap.Uint32s("demoted", connIDs(out.Demoted)))
	}

	reply := &proto.RoleReply{RoleBody: proto.RoleBody{Role: out.Role, GenerationID: m.GenerationID}}
	if err = d.sender.SendReply(req.conn, req.xid, reply); err != nil {
		return &ReplyError{
			Type: proto.ErrRoleRequestFailed,
			Code: proto.CodeWriteFailure,
			Err:  fmt.Errorf("sending role reply: %w", err),
		}
	}
	return nil
}

func connIDs(ids []role.ConnID) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func (d *dispatcher) handlePacketOut(req request, m *proto.PacketOut) error {
	base, ok := d.dp.Base()
	if !ok {
		return ErrNoSlots
	}

	data := append([]byte(nil), m.Data...)
	ctx := &PacketContext{
		Conn:     req.conn,
		Slot:     base,
		InPort:   m.InPort,
		BufferID: m.BufferID,
		Data:     data,
		Packet:   gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default),
	}
	return d.dp.With(base, func(r resource.Resource) error {
		ctx.Resource = r
		defer func() { ctx.Resource = nil }()
		if err := d.executor.Execute(ctx, m.Actions); err != nil {
			return fmt.Errorf("executing packet out on slot %d: %w", base, err)
		}
		return nil
	})
}

func (d *dispatcher) handleMeterMod(m *proto.MeterMod) error {
	var op resource.Op
	switch m.Command {
	case proto.EntryAdd:
		op = resource.AddMeter{MeterID: m.MeterID, Rate: m.Rate}
	case proto.EntryModify:
		op = resource.ModifyMeter{MeterID: m.MeterID, Rate: m.Rate}
	case proto.EntryDelete:
		op = resource.DeleteMeter{MeterID: m.MeterID}
	default:
		return badCommand(proto.ErrMeterModFailed, proto.CodeMeterModBadCommand, m.Command)
	}
	return fanout(d.gw.ApplyToAll(op))
}

func (d *dispatcher) handleGroupMod(m *proto.GroupMod) error {
	var op resource.Op
	switch m.Command {
	case proto.EntryAdd:
		op = resource.AddGroup{Group: *m}
	case proto.EntryModify:
		op = resource.ModifyGroup{Group: *m}
	case proto.EntryDelete:
		op = resource.DeleteGroup{GroupID: m.GroupID}
	default:
		return badCommand(proto.ErrGroupModFailed, proto.CodeGroupModBadCommand, m.Command)
	}
	return fanout(d.gw.ApplyToAll(op))
}

func (d *dispatcher) handleCounterMod(m *proto.CounterMod) error {
	var op resource.Op
	switch m.Command {
	case proto.CounterAdd:
		op = resource.InitCounter{CounterID: m.CounterID}
	case proto.CounterClear:
		op = resource.ClearCounter{CounterID: m.CounterID}
	case proto.CounterDelete:
		op = resource.DeleteCounter{CounterID: m.CounterID}
	default:
		return badCommand(proto.ErrCounterModFailed, proto.CodeCounterModBadCommand, m.Command)
	}
	return fanout(d.gw.ApplyToAll(op))
}

func (d *dispatcher) handleCounterRequest(req request, m *proto.CounterRequest) error {
	return fanout(d.dp.Each(func(id uint16, r resource.Resource) error {
		c, err := r.CounterValue(m.CounterID)
		if err != nil {
			return &resource.FanoutError{Slot: id, Op: "query_counter", Err: err}
		}
		c.Command = proto.CounterQuery
		c.SlotID = id
		return d.reply(req, &proto.CounterReply{Counter: c})
	}))
}

func (d *dispatcher) handleInstructionBlock(m *proto.InstructionBlock) error {
	var op resource.Op
	switch m.Command {
	case proto.FlowAdd:
		op = resource.AddInstructionBlock{Block: *m}
	case proto.FlowModify:
		op = resource.ModifyInstructionBlock{Block: *m}
	case proto.FlowDelete:
		op = resource.DeleteInstructionBlock{BlockID: m.BlockID}
	default:
		return badCommand(proto.ErrInsBlockModFailed, proto.CodeInsBlockModBadCommand, m.Command)
	}
	return fanout(d.gw.ApplyToAll(op))
}

func (d *dispatcher) handleQueryAll(req request, m *proto.QueryAllRequest) error {
	dump := func(_ uint16, r resource.Resource) error {
		for _, msg := range r.QueryAll() {
			if err := d.reply(req, msg); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if m.SlotID == proto.SlotIDAll {
		err = d.dp.Each(dump)
	} else {
		err = d.dp.With(m.SlotID, func(r resource.Resource) error { return dump(m.SlotID, r) })
	}
	if err != nil {
		return fanout(err)
	}
	return d.reply(req, &proto.QueryAllFin{})
}
