package pofswitch

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/heyvito/pofswitch/internal/proto"
)

type configStore struct {
	mu       sync.Mutex
	config   proto.SwitchConfig
	fixedID  uint32
	deviceID uint32
}

func newConfigStore(opts *Options) *configStore {
	return &configStore{
		config:   proto.SwitchConfig{Flags: opts.Flags, MissSendLen: opts.MissSendLen},
		fixedID:  opts.DeviceID,
		deviceID: opts.DeviceID,
	}
}

func (c *configStore) SetConfig(flags, missSendLen uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = proto.SwitchConfig{Flags: flags, MissSendLen: missSendLen}
	return nil
}

func (c *configStore) Config() proto.SwitchConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// ResetDeviceID keeps a configured device id, and otherwise draws a new
// random, non-zero one.
func (c *configStore) ResetDeviceID() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fixedID != 0 {
		c.deviceID = c.fixedID
		return c.deviceID, nil
	}

	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("generating device id: %w", err)
		}
		if id := binary.BigEndian.Uint32(buf[:]); id != 0 {
			c.deviceID = id
			return id, nil
		}
	}
}

func (c *configStore) DeviceID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}
