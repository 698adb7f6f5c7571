package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
controllers:
  - 10.0.0.1:6633
localAddress: 10.0.0.2
multipleSlots: true
deviceId: 12
echoInterval: 5s
slots:
  - id: 0
    ports:
      - id: 1
        name: eth0
        mac: 02:00:00:00:00:01
        speed: 1000000
      - id: 2
        name: eth1
        disabled: true
  - id: 1
`

func TestConfigOptions(t *testing.T) {
	cfg := &fileConfig{}
	require.NoError(t, decodeConfig(strings.NewReader(sampleConfig), cfg))
	assert.Equal(t, 5*time.Second, cfg.EchoInterval)

	opts, closer, err := cfg.options()
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	assert.Equal(t, []string{"10.0.0.1:6633"}, opts.Controllers)
	assert.Equal(t, "10.0.0.2", opts.LocalAddress.String())
	assert.True(t, opts.MultipleSlots)
	assert.Equal(t, uint32(12), opts.DeviceID)
	require.Len(t, opts.Slots, 2)
	require.Len(t, opts.Slots[0].Ports, 2)
	assert.Equal(t, "02:00:00:00:00:01", opts.Slots[0].Ports[0].HWAddr.String())
	assert.True(t, opts.Slots[0].Ports[0].OFEnable)
	assert.False(t, opts.Slots[0].Ports[1].OFEnable)
	assert.Empty(t, opts.Slots[1].Ports)
	assert.Nil(t, opts.OffloadOutput)
}

func TestConfigRejectsUnknownFields(t *testing.T) {
	cfg := &fileConfig{}
	assert.Error(t, decodeConfig(strings.NewReader("controler: x\n"), cfg))
}

func TestConfigRejectsBadMAC(t *testing.T) {
	cfg := &fileConfig{Slots: []slotConfig{{ID: 0, Ports: []portConfig{{ID: 1, MAC: "nope"}}}}}
	_, _, err := cfg.options()
	assert.ErrorContains(t, err, "slot 0 port 1")
}

func TestEmptyConfigPath(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Controllers)
}
