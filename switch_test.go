package pofswitch

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/heyvito/pofswitch/internal/localres"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type controller struct {
	t *testing.T
	l net.Listener
}

func newController(t *testing.T) *controller {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return &controller{t: t, l: l}
}

func (c *controller) accept() net.Conn {
	c.t.Helper()
	require.NoError(c.t, c.l.(*net.TCPListener).SetDeadline(time.Now().Add(5*time.Second)))
	conn, err := c.l.Accept()
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, c net.Conn, xid uint32, msg proto.Message) {
	t.Helper()
	_, err := c.Write(proto.Pkt(xid, msg).Bytes())
	require.NoError(t, err)
}

func receive(t *testing.T, c net.Conn) *proto.Packet {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	header := make([]byte, proto.HeaderSize)
	_, err := io.ReadFull(c, header)
	require.NoError(t, err)

	length := int(header[2])<<8 | int(header[3])
	data := make([]byte, length)
	copy(data, header)
	_, err = io.ReadFull(c, data[proto.HeaderSize:])
	require.NoError(t, err)
	p, err := proto.ParsePacket(data)
	require.NoError(t, err)
	return p
}

func newTestSwitch(t *testing.T, controllers ...string) *Switch {
	sw, err := New(&Options{
		Controllers:       controllers,
		LocalAddress:      AnyLocalAddr,
		Slots:             []SlotOptions{{SlotID: 0}, {SlotID: 1}},
		DeviceID:          7,
		ReconnectInterval: 20 * time.Millisecond,
		LogHandler:        zap.NewNop(),
	})
	require.NoError(t, err)
	return sw
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(&Options{})
	assert.Error(t, err)

	_, err = New(&Options{
		Controllers:  []string{"127.0.0.1:6633"},
		LocalAddress: AnyLocalAddr,
		Slots:        []SlotOptions{{SlotID: 3}, {SlotID: 3}},
	})
	assert.ErrorContains(t, err, "slot 3")
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{
		Controllers:  []string{"127.0.0.1:6633"},
		LocalAddress: MustIPAddr("127.0.0.1"),
	}
	require.NoError(t, opts.normalize())
	require.Len(t, opts.Slots, 1)
	assert.Len(t, opts.Slots[0].Ports, 4)
	assert.Equal(t, uint16(128), opts.MissSendLen)
	assert.Equal(t, 3*time.Second, opts.ReconnectInterval)
	assert.Equal(t, "127.0.0.1", opts.localIP().String())

	opts.LocalAddress = AnyLocalAddr
	assert.Nil(t, opts.localIP())
}

func TestSwitchServesController(t *testing.T) {
	ctrl := newController(t)
	sw := newTestSwitch(t, ctrl.l.Addr().String())
	require.NoError(t, sw.Start(context.Background()))

	c := ctrl.accept()
	hello := receive(t, c)
	assert.Equal(t, proto.TypeHello, hello.Header.Type)

	send(t, c, 10, &proto.FeaturesRequest{})
	for _, slot := range []uint16{0, 1} {
		p := receive(t, c)
		require.Equal(t, proto.TypeFeaturesReply, p.Header.Type)
		assert.Equal(t, uint32(10), p.Header.Xid)
		reply := p.Message.(*proto.FeaturesReply)
		assert.Equal(t, slot, reply.SlotID)
		assert.Equal(t, uint32(7), reply.DeviceID)
	}

	send(t, c, 11, &proto.RoleRequest{RoleBody: proto.RoleBody{Role: proto.RoleMaster, GenerationID: 1}})
	p := receive(t, c)
	require.Equal(t, proto.TypeRoleReply, p.Header.Type)
	assert.Equal(t, proto.RoleMaster, p.Message.(*proto.RoleReply).Role)

	send(t, c, 12, &proto.FlowTable{
		Command:   proto.TableAdd,
		TableID:   1,
		TableType: proto.TableExactMatch,
		Size:      64,
		KeyLength: 48,
		Name:      "mac",
	})
	send(t, c, 13, &proto.EchoRequest{})
	p = receive(t, c)
	assert.Equal(t, proto.TypeEchoReply, p.Header.Type)
	assert.Equal(t, uint32(13), p.Header.Xid)

	err := sw.gateway.Datapath().Each(func(_ uint16, r resource.Resource) error {
		assert.Equal(t, 1, r.(*localres.Store).Summary().Tables)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(13), sw.dispatcher.LastXid())
	require.Len(t, sw.Roles(), 1)
	assert.Equal(t, proto.RoleMaster, sw.Roles()[0].Role)

	require.NoError(t, sw.Shutdown())
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = c.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, sw.Roles())
	assert.EqualValues(t, 1, sw.translator.Stats().Submitted)
}

func TestSwitchReconnects(t *testing.T) {
	ctrl := newController(t)
	sw := newTestSwitch(t, ctrl.l.Addr().String())
	require.NoError(t, sw.Start(context.Background()))
	defer func() { assert.NoError(t, sw.Shutdown()) }()

	first := ctrl.accept()
	receive(t, first)
	require.NoError(t, first.Close())

	second := ctrl.accept()
	hello := receive(t, second)
	assert.Equal(t, proto.TypeHello, hello.Header.Type)

	send(t, second, 1, &proto.EchoRequest{})
	receive(t, second)
	assert.Len(t, sw.Roles(), 1)
}

func TestSwitchRecordsXidOfMalformedFrame(t *testing.T) {
	ctrl := newController(t)
	sw := newTestSwitch(t, ctrl.l.Addr().String())
	require.NoError(t, sw.Start(context.Background()))
	defer func() { assert.NoError(t, sw.Shutdown()) }()

	c := ctrl.accept()
	receive(t, c)

	frame := make([]byte, proto.HeaderSize+3)
	proto.Header{
		Version: proto.ProtocolVersion,
		Type:    proto.TypeFlowMod,
		Length:  uint16(len(frame)),
		Xid:     40,
	}.Encode(frame)
	_, err := c.Write(frame)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return sw.dispatcher.LastXid() == 40 }, 5*time.Second, 5*time.Millisecond)

	send(t, c, 41, &proto.EchoRequest{})
	p := receive(t, c)
	assert.Equal(t, proto.TypeEchoReply, p.Header.Type)
	assert.Equal(t, uint32(41), p.Header.Xid)
}

func TestSwitchStartTwice(t *testing.T) {
	ctrl := newController(t)
	sw := newTestSwitch(t, ctrl.l.Addr().String())
	require.NoError(t, sw.Start(context.Background()))
	assert.Error(t, sw.Start(context.Background()))
	require.NoError(t, sw.Shutdown())
	assert.NoError(t, sw.Shutdown())
	assert.Error(t, sw.Start(context.Background()))
}

func TestSendReplyUnknownConnection(t *testing.T) {
	sw := newTestSwitch(t, "127.0.0.1:1")
	assert.Error(t, sw.SendReply(42, 1, &proto.EchoReply{}))
}

func TestConfigStore(t *testing.T) {
	c := newConfigStore(&Options{MissSendLen: 128})
	id, err := c.ResetDeviceID()
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, id, c.DeviceID())

	require.NoError(t, c.SetConfig(1, 256))
	assert.Equal(t, proto.SwitchConfig{Flags: 1, MissSendLen: 256}, c.Config())

	fixed := newConfigStore(&Options{DeviceID: 99})
	id, err = fixed.ResetDeviceID()
	require.NoError(t, err)
	assert.Equal(t, uint32(99), id)
}

func refusedAddress(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestShutdownCombinesControllerFailures(t *testing.T) {
	addrs := []string{refusedAddress(t), refusedAddress(t)}
	sw := newTestSwitch(t, addrs...)
	sw.opts.ReconnectInterval = time.Hour
	require.NoError(t, sw.Start(context.Background()))

	require.Eventually(t, func() bool { return len(sw.controllerFailures()) == 2 }, 5*time.Second, 10*time.Millisecond)

	err := sw.Shutdown()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	for _, a := range addrs {
		assert.ErrorContains(t, err, a)
	}
}

func TestShutdownAfterHealthyConnectionIsClean(t *testing.T) {
	ctrl := newController(t)
	sw := newTestSwitch(t, ctrl.l.Addr().String())
	require.NoError(t, sw.Start(context.Background()))
	c := ctrl.accept()
	receive(t, c)

	assert.Empty(t, sw.controllerFailures())
	assert.NoError(t, sw.Shutdown())
}
