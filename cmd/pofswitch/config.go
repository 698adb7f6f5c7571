package main

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/heyvito/pofswitch"
	"github.com/heyvito/pofswitch/internal/proto"
	"gopkg.in/yaml.v3"
)

type portConfig struct {
	ID       uint32 `yaml:"id"`
	Name     string `yaml:"name"`
	MAC      string `yaml:"mac"`
	Speed    uint32 `yaml:"speed"`
	Disabled bool   `yaml:"disabled"`
}

type slotConfig struct {
	ID       uint16       `yaml:"id"`
	Ports    []portConfig `yaml:"ports"`
	Counters uint32       `yaml:"counters"`
	Meters   uint32       `yaml:"meters"`
	Groups   uint32       `yaml:"groups"`
}

type fileConfig struct {
	Controllers       []string      `yaml:"controllers"`
	LocalAddress      string        `yaml:"localAddress"`
	Slots             []slotConfig  `yaml:"slots"`
	MultipleSlots     bool          `yaml:"multipleSlots"`
	DeviceID          uint32        `yaml:"deviceId"`
	MissSendLen       uint16        `yaml:"missSendLen"`
	ReplyQueueDepth   int           `yaml:"replyQueueDepth"`
	OffloadQueueDepth int           `yaml:"offloadQueueDepth"`
	OffloadOutput     string        `yaml:"offloadOutput"`
	EchoInterval      time.Duration `yaml:"echoInterval"`
	ReconnectInterval time.Duration `yaml:"reconnectInterval"`
	StateAddress      string        `yaml:"stateAddress"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return cfg, decodeConfig(f, cfg)
}

func decodeConfig(r io.Reader, into *fileConfig) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && err != io.EOF {
		return fmt.Errorf("decoding configuration: %w", err)
	}
	return nil
}

// options maps the configuration onto pofswitch.Options. The returned
// closer releases the offload output, if any.
func (c *fileConfig) options() (*pofswitch.Options, io.Closer, error) {
	opts := &pofswitch.Options{
		Controllers:       c.Controllers,
		MultipleSlots:     c.MultipleSlots,
		DeviceID:          c.DeviceID,
		MissSendLen:       c.MissSendLen,
		ReplyQueueDepth:   c.ReplyQueueDepth,
		OffloadQueueDepth: c.OffloadQueueDepth,
		EchoInterval:      c.EchoInterval,
		ReconnectInterval: c.ReconnectInterval,
		StateAddress:      c.StateAddress,
	}

	if c.LocalAddress != "" {
		addr, err := netip.ParseAddr(c.LocalAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid localAddress: %w", err)
		}
		opts.LocalAddress = &addr
	}

	for _, s := range c.Slots {
		slot := pofswitch.SlotOptions{
			SlotID:     s.ID,
			CounterNum: s.Counters,
			MeterNum:   s.Meters,
			GroupNum:   s.Groups,
		}
		for _, p := range s.Ports {
			port := proto.Port{
				PortID:    p.ID,
				Name:      p.Name,
				CurrSpeed: p.Speed,
				MaxSpeed:  p.Speed,
				OFEnable:  !p.Disabled,
			}
			if p.MAC != "" {
				mac, err := net.ParseMAC(p.MAC)
				if err != nil {
					return nil, nil, fmt.Errorf("slot %d port %d: %w", s.ID, p.ID, err)
				}
				port.HWAddr = mac
			}
			slot.Ports = append(slot.Ports, port)
		}
		opts.Slots = append(opts.Slots, slot)
	}

	var closer io.Closer = io.NopCloser(nil)
	switch c.OffloadOutput {
	case "":
	case "-":
		opts.OffloadOutput = os.Stdout
	default:
		f, err := os.OpenFile(c.OffloadOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		opts.OffloadOutput = f
		closer = f
	}

	return opts, closer, nil
}
