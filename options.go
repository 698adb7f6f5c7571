package pofswitch

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	"github.com/heyvito/pofswitch/internal/iputil"
	"github.com/heyvito/pofswitch/internal/proto"
	"go.uber.org/zap"
)

// MustIPAddr parses a given IP address and returns a pointer to its
// netip.Addr representation, to be used with Options.LocalAddress.
// Panics in case the address cannot be parsed.
func MustIPAddr(addr string) *netip.Addr {
	a := netip.MustParseAddr(addr)
	return &a
}

// AnyLocalAddr makes connections to controllers leave from whatever address
// the system picks.
var AnyLocalAddr = &netip.Addr{}

// SlotOptions describes a single datapath slot and its ports.
type SlotOptions struct {
	// SlotID identifies the slot. The first slot in Options.Slots is the
	// base slot.
	SlotID uint16

	// Ports lists the physical ports of this slot. Defaults to four ports
	// numbered from 1.
	Ports []proto.Port

	// CounterNum, MeterNum and GroupNum bound the amount of entries of each
	// kind the slot accepts. Default to 512, 256 and 256.
	CounterNum uint32
	MeterNum   uint32
	GroupNum   uint32
}

// Options represents a set of options to tuning and configuring a Switch.
type Options struct {
	// Controllers lists the address (host:port) of every controller the
	// switch connects to. At least one is required.
	Controllers []string

	// LocalAddress is the address connections to controllers leave from.
	// When nil, the library picks an address of an interface holding a
	// default route, of the same family as the first controller. Set it to
	// AnyLocalAddr to let the system decide.
	LocalAddress *netip.Addr

	// Slots lists the datapath slots this switch drives. Defaults to a
	// single slot 0.
	Slots []SlotOptions

	// MultipleSlots makes PortMod and SlotConfig messages address the slot
	// they name instead of the base slot. Defaults to false.
	MultipleSlots bool

	// DeviceID is the id reported in feature replies. Zero makes the
	// switch pick a random id whenever a controller requests features.
	DeviceID uint32

	// Flags and MissSendLen are the initial switch configuration.
	// MissSendLen defaults to 128.
	Flags       uint16
	MissSendLen uint16

	// ReplyQueueDepth is the amount of messages buffered for writing on
	// each controller connection. Defaults to 64.
	ReplyQueueDepth int

	// OffloadQueueDepth bounds the amount of pending rule translations.
	// Submissions made while the queue is full are dropped. Defaults to
	// 256.
	OffloadQueueDepth int

	// OffloadOutput, when set, receives every translated rule and table as
	// a JSON line. Otherwise translations are only logged.
	OffloadOutput io.Writer

	// EchoInterval, when positive, makes the switch send echo requests to
	// controllers periodically. Defaults to zero.
	EchoInterval time.Duration

	// ReconnectInterval is the time waited before reconnecting to a
	// controller after its connection is lost. Defaults to 3 seconds.
	ReconnectInterval time.Duration

	// DialTimeout bounds connection establishment. Defaults to 5 seconds.
	DialTimeout time.Duration

	// StateAddress is the address the state endpoint listens on, such as
	// "127.0.0.1:8090". An empty string disables it.
	StateAddress string

	// LogHandler is the logger used by the library. Defaults to a noop
	// logger, which will discard all messages.
	LogHandler *zap.Logger
}

func defaultPorts() []proto.Port {
	ports := make([]proto.Port, 4)
	for i := range ports {
		id := uint32(i + 1)
		ports[i] = proto.Port{
			PortID:    id,
			HWAddr:    net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, byte(id)},
			Name:      fmt.Sprintf("port%d", id),
			CurrSpeed: 10_000_000,
			MaxSpeed:  10_000_000,
			OFEnable:  true,
		}
	}
	return ports
}

func (o *Options) normalize() error {
	if len(o.Controllers) == 0 {
		return fmt.Errorf("at least one controller address is required")
	}

	if o.LogHandler == nil {
		o.LogHandler = zap.NewNop()
	}

	if len(o.Slots) == 0 {
		o.Slots = []SlotOptions{{SlotID: 0}}
	}

	seen := map[uint16]bool{}
	for i := range o.Slots {
		s := &o.Slots[i]
		if seen[s.SlotID] {
			return fmt.Errorf("slot %d is declared more than once", s.SlotID)
		}
		seen[s.SlotID] = true
		if len(s.Ports) == 0 {
			s.Ports = defaultPorts()
		}
		if s.CounterNum == 0 {
			s.CounterNum = 512
		}
		if s.MeterNum == 0 {
			s.MeterNum = 256
		}
		if s.GroupNum == 0 {
			s.GroupNum = 256
		}
	}

	if o.MissSendLen == 0 {
		o.MissSendLen = 128
	}

	if o.ReconnectInterval == 0 {
		o.ReconnectInterval = 3 * time.Second
	}

	if o.LocalAddress == nil {
		o.LocalAddress = o.detectLocalAddress()
	}

	return nil
}

func (o *Options) detectLocalAddress() *netip.Addr {
	var controller netip.Addr
	if host, _, err := net.SplitHostPort(o.Controllers[0]); err == nil {
		controller, _ = netip.ParseAddr(host)
	}

	addr, err := iputil.DefaultAddress(controller)
	if err != nil {
		o.LogHandler.Warn("No local address could be detected, letting the system pick one", zap.Error(err))
		return AnyLocalAddr
	}
	return &addr
}

func (o *Options) localIP() net.IP {
	if o.LocalAddress == nil || o.LocalAddress == AnyLocalAddr || !o.LocalAddress.IsValid() {
		return nil
	}
	return o.LocalAddress.AsSlice()
}
