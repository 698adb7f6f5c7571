package localres

import (
	"github.com/google/gopacket"
	"github.com/heyvito/pofswitch/internal/containers"
	"github.com/heyvito/pofswitch/internal/dispatch"
	"github.com/heyvito/pofswitch/internal/logutil"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
	"go.uber.org/zap"
)

// Executor runs PacketOut actions against the Store of the slot the packet
// was injected in. It applies SetField actions to the packet bytes and
// accounts Output actions on the destination port; every other action is
// only logged.
type Executor struct {
	log *zap.Logger
}

// NewExecutor returns a new Executor.
func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{log: logger.With(zap.String("facility", "executor"))}
}

func (e *Executor) Execute(ctx *dispatch.PacketContext, actions []proto.Action) error {
	log := e.log.With(logutil.Slot(ctx.Slot), zap.Uint32("in_port", ctx.InPort))
	if ctx.Packet != nil {
		log = log.With(zap.Strings("layers", containers.MapFn(ctx.Packet.Layers(), func(l gopacket.Layer) string {
			return l.LayerType().String()
		})))
	}

	store, _ := ctx.Resource.(*Store)
	for _, a := range actions {
		switch act := a.Data.(type) {
		case proto.Output:
			if store == nil {
				return resource.Errorf(proto.ErrBadAction, proto.CodeResourceFailure, "slot %d cannot transmit", ctx.Slot)
			}
			if err := store.transmit(act.OutputPortID, len(ctx.Data)); err != nil {
				return err
			}
			log.Debug("Packet transmitted", zap.Uint32("port", act.OutputPortID), zap.Int("bytes", len(ctx.Data)))

		case proto.SetField:
			if err := act.Field.Apply(ctx.Data); err != nil {
				return resource.Errorf(proto.ErrBadAction, proto.CodeResourceFailure, "set field %s: %s", act.Field.Match, err)
			}

		case proto.Drop:
			log.Debug("Packet dropped", zap.Uint32("reason", act.ReasonCode))
			return nil

		default:
			log.Debug("Action not executed by the control plane", zap.Stringer("action", a))
		}
	}
	return nil
}

func (s *Store) transmit(portID uint32, n int) error {
	p, ok := s.ports[portID]
	if !ok {
		return resource.Errorf(proto.ErrBadAction, proto.CodeEntryMissing, "port %d does not exist", portID)
	}
	if !p.port.OFEnable {
		return resource.Errorf(proto.ErrBadAction, proto.CodePortDisabled, "port %d is disabled", portID)
	}
	p.txPkts++
	p.txBytes += uint64(n)
	return nil
}

// PortStats returns the packets and bytes transmitted through a port.
func (s *Store) PortStats(portID uint32) (pkts, bytes uint64, ok bool) {
	p, ok := s.ports[portID]
	if !ok {
		return 0, 0, false
	}
	return p.txPkts, p.txBytes, true
}
