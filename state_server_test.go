package pofswitch

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/heyvito/pofswitch/internal/dispatch"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStateSwitch(t *testing.T) (*Switch, *httptest.Server) {
	sw, err := New(&Options{
		Controllers:  []string{"127.0.0.1:1"},
		LocalAddress: AnyLocalAddr,
		Slots:        []SlotOptions{{SlotID: 0}, {SlotID: 4}},
		StateAddress: "127.0.0.1:0",
		LogHandler:   zap.NewNop(),
	})
	require.NoError(t, err)
	require.NotNil(t, sw.state)

	srv := httptest.NewServer(sw.state.router())
	t.Cleanup(srv.Close)
	return sw, srv
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(into))
	}
	return res.StatusCode
}

func TestStateDocument(t *testing.T) {
	sw, srv := newStateSwitch(t)

	id := sw.roles.Register()
	_, err := sw.roles.RequestRole(id, proto.RoleMaster)
	require.NoError(t, err)
	err = sw.dispatcher.Dispatch(id, proto.Pkt(21, &proto.FlowTable{
		Command:   proto.TableAdd,
		TableID:   2,
		TableType: proto.TableMaskedMatch,
		Size:      16,
		KeyLength: 32,
		Name:      "acl",
	}))
	require.NoError(t, err)

	var doc stateDocument
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/state", &doc))
	assert.Equal(t, uint32(21), doc.LastXid)
	assert.Equal(t, uint16(128), doc.MissSendLen)
	require.Len(t, doc.Controllers, 1)
	assert.Equal(t, "MASTER", doc.Controllers[0].Role)
	require.Len(t, doc.Slots, 2)
	assert.Equal(t, uint16(4), doc.Slots[1].SlotID)
	for _, slot := range doc.Slots {
		assert.Equal(t, 1, slot.Summary.Tables)
		assert.Len(t, slot.Ports, 4)
	}
	require.Len(t, doc.Dispatch, 1)
	assert.Equal(t, "TABLE_MOD", doc.Dispatch[0].Type)
	assert.EqualValues(t, 1, doc.Offload.Submitted)
}

func TestStateSlotRoutes(t *testing.T) {
	_, srv := newStateSwitch(t)

	var slot stateSlot
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/slots/4", &slot))
	assert.Equal(t, uint16(4), slot.SlotID)
	assert.Equal(t, "port1", slot.Ports[0].Name)
	assert.True(t, slot.Ports[0].Enabled)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/slots/9", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/slots/0/flows/2/1/0", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/slots/0/flows/900/1/0", nil))
}

func TestStateEventStream(t *testing.T) {
	sw, srv := newStateSwitch(t)
	hub := sw.state.hub
	go hub.run()
	defer func() {
		close(hub.quit)
		<-hub.done
	}()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	require.Eventually(t, hub.hasClient.Load, 5*time.Second, 10*time.Millisecond)

	sw.observe(dispatch.Event{Conn: 3, Type: proto.TypeEchoRequest, Xid: 9, Duration: 2 * time.Millisecond})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev stateEvent
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, "dispatch", ev.Kind)
	assert.Equal(t, "ECHO_REQUEST", ev.Type)
	assert.Equal(t, uint32(9), ev.Xid)
	assert.Equal(t, int64(2000), ev.Duration)
	assert.Empty(t, ev.Error)
}

func TestStateClientsRejectedAfterHubStops(t *testing.T) {
	sw, srv := newStateSwitch(t)
	hub := sw.state.hub
	go hub.run()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	early, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = early.Close() }()
	require.Eventually(t, hub.hasClient.Load, 5*time.Second, 10*time.Millisecond)

	close(hub.quit)
	<-hub.done
	assert.False(t, hub.hasClient.Load())

	require.NoError(t, early.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = early.ReadMessage()
	assert.Error(t, err)

	for i := 0; i < 10; i++ {
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err = ws.ReadMessage()
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) {
			assert.False(t, netErr.Timeout(), "connection %d was left open", i)
		}
		assert.Error(t, err)
		_ = ws.Close()
	}
	assert.Empty(t, hub.clients)
}
