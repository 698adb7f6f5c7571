package pofswitch

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/heyvito/pofswitch/internal/dispatch"
	"github.com/heyvito/pofswitch/internal/localres"
	"github.com/heyvito/pofswitch/internal/offload"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
	"github.com/heyvito/pofswitch/internal/stats"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type stateController struct {
	Conn uint32 `json:"conn"`
	Role string `json:"role"`
}

type statePort struct {
	PortID    uint32 `json:"portId"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	TxPackets uint64 `json:"txPackets"`
	TxBytes   uint64 `json:"txBytes"`
}

type stateSlot struct {
	SlotID  uint16           `json:"slotId"`
	Summary localres.Summary `json:"summary"`
	Ports   []statePort      `json:"ports"`
}

type stateDocument struct {
	DeviceID    uint32            `json:"deviceId"`
	Flags       uint16            `json:"flags"`
	MissSendLen uint16            `json:"missSendLen"`
	LastXid     uint32            `json:"lastXid"`
	Controllers []stateController `json:"controllers"`
	Slots       []stateSlot       `json:"slots"`
	Dispatch    []stats.TypeStats `json:"dispatch"`
	Offload     offload.Stats     `json:"offload"`
}

type stateEvent struct {
	Kind     string `json:"kind"`
	Conn     uint32 `json:"conn"`
	Type     string `json:"type"`
	Xid      uint32 `json:"xid"`
	Duration int64  `json:"durationUs"`
	Error    string `json:"error,omitempty"`
}

type stateHubClient struct {
	send chan []byte
	hub  *stateHub
	conn *websocket.Conn
}

func (c *stateHubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *stateHubClient) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Websocket client failed", zap.Error(err))
			}
			return
		}
	}
}

type stateHub struct {
	clients    map[*stateHubClient]bool
	broadcast  chan stateEvent
	register   chan *stateHubClient
	unregister chan *stateHubClient
	quit       chan struct{}
	done       chan struct{}

	hasClient atomic.Bool
	logger    *zap.Logger
}

func newStateHub(logger *zap.Logger) *stateHub {
	return &stateHub{
		clients:    map[*stateHubClient]bool{},
		broadcast:  make(chan stateEvent, 256),
		register:   make(chan *stateHubClient),
		unregister: make(chan *stateHubClient),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (s *stateHub) leave(c *stateHubClient) {
	select {
	case s.unregister <- c:
	case <-s.done:
	}
}

func (s *stateHub) drop(c *stateHubClient) {
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.hasClient.Store(len(s.clients) > 0)
}

func (s *stateHub) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			for c := range s.clients {
				s.drop(c)
			}
			return
		case client := <-s.register:
			s.clients[client] = true
			s.hasClient.Store(true)
		case client := <-s.unregister:
			s.drop(client)
		case ev := <-s.broadcast:
			v, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("Failed marshalling event", zap.Error(err))
				continue
			}
			for client := range s.clients {
				select {
				case client.send <- v:
				default:
					s.drop(client)
				}
			}
		}
	}
}

type stateServer struct {
	sw         *Switch
	logger     *zap.Logger
	hub        *stateHub
	httpServer *http.Server
	l          net.Listener
}

func newStateServer(logger *zap.Logger, sw *Switch) *stateServer {
	logger = logger.With(zap.String("facility", "state"))
	return &stateServer{
		sw:     sw,
		logger: logger,
		hub:    newStateHub(logger.Named("hub")),
	}
}

func (s *stateServer) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/slots/{slot:[0-9]+}", s.handleSlot).Methods(http.MethodGet)
	r.HandleFunc("/slots/{slot:[0-9]+}/flows/{type:[0-9]+}/{table:[0-9]+}/{index:[0-9]+}", s.handleFlow).Methods(http.MethodGet)
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error("Failed upgrading connection", zap.Error(err))
			return
		}
		s.serviceClient(conn)
	})
	return r
}

func (s *stateServer) start(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.l = l
	s.httpServer = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("State server failed", zap.Error(err))
		}
	}()
	go s.hub.run()
	s.logger.Info("State server listening", zap.Stringer("address", l.Addr()))
	return nil
}

func (s *stateServer) stop() error {
	if s.httpServer == nil {
		return nil
	}
	close(s.hub.quit)
	<-s.hub.done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *stateServer) serviceClient(conn *websocket.Conn) {
	c := &stateHubClient{
		send: make(chan []byte, 256),
		conn: conn,
		hub:  s.hub,
	}
	select {
	case s.hub.register <- c:
	case <-s.hub.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (s *stateServer) publish(e dispatch.Event) {
	if !s.hub.hasClient.Load() {
		return
	}
	ev := stateEvent{
		Kind:     "dispatch",
		Conn:     uint32(e.Conn),
		Type:     e.Type.String(),
		Xid:      e.Xid,
		Duration: e.Duration.Microseconds(),
	}
	if e.Err != nil {
		ev.Error = e.Err.Error()
	}
	select {
	case s.hub.broadcast <- ev:
	default:
		s.logger.Debug("Event stream is saturated, dropping event")
	}
}

func (s *stateServer) slot(id uint16, store *localres.Store) (stateSlot, error) {
	out := stateSlot{SlotID: id}
	err := s.sw.gateway.Datapath().With(id, func(resource.Resource) error {
		out.Summary = store.Summary()
		for _, st := range store.PortResources() {
			pkts, bytes, _ := store.PortStats(st.Port.PortID)
			out.Ports = append(out.Ports, statePort{
				PortID:    st.Port.PortID,
				Name:      st.Port.Name,
				Enabled:   st.Port.OFEnable,
				TxPackets: pkts,
				TxBytes:   bytes,
			})
		}
		return nil
	})
	return out, err
}

func (s *stateServer) document() (stateDocument, error) {
	cfg := s.sw.config.Config()
	doc := stateDocument{
		DeviceID:    s.sw.config.DeviceID(),
		Flags:       cfg.Flags,
		MissSendLen: cfg.MissSendLen,
		LastXid:     s.sw.dispatcher.LastXid(),
		Controllers: []stateController{},
		Dispatch:    s.sw.Stats(),
		Offload:     s.sw.translator.Stats(),
	}
	for _, e := range s.sw.Roles() {
		doc.Controllers = append(doc.Controllers, stateController{Conn: uint32(e.ID), Role: e.Role.String()})
	}
	for _, store := range s.sw.stores {
		slot, err := s.slot(store.SlotID(), store)
		if err != nil {
			return doc, err
		}
		doc.Slots = append(doc.Slots, slot)
	}
	return doc, nil
}

func (s *stateServer) store(r *http.Request) *localres.Store {
	id, err := strconv.ParseUint(mux.Vars(r)["slot"], 10, 16)
	if err != nil {
		return nil
	}
	for _, store := range s.sw.stores {
		if store.SlotID() == uint16(id) {
			return store
		}
	}
	return nil
}

func (s *stateServer) writeJSON(w http.ResponseWriter, v any, err error) {
	if err != nil {
		s.logger.Error("Failed serving state request", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed writing state response", zap.Error(err))
	}
}

func (s *stateServer) handleState(w http.ResponseWriter, _ *http.Request) {
	doc, err := s.document()
	s.writeJSON(w, doc, err)
}

func (s *stateServer) handleSlot(w http.ResponseWriter, r *http.Request) {
	store := s.store(r)
	if store == nil {
		http.NotFound(w, r)
		return
	}
	slot, err := s.slot(store.SlotID(), store)
	s.writeJSON(w, slot, err)
}

func (s *stateServer) handleFlow(w http.ResponseWriter, r *http.Request) {
	store := s.store(r)
	if store == nil {
		http.NotFound(w, r)
		return
	}
	vars := mux.Vars(r)
	typ, tErr := strconv.ParseUint(vars["type"], 10, 8)
	table, bErr := strconv.ParseUint(vars["table"], 10, 8)
	index, iErr := strconv.ParseUint(vars["index"], 10, 32)
	if tErr != nil || bErr != nil || iErr != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var (
		entry proto.FlowEntry
		found bool
	)
	err := s.sw.gateway.Datapath().With(store.SlotID(), func(resource.Resource) error {
		entry, found = store.Flow(uint8(table), proto.TableType(typ), uint32(index))
		return nil
	})
	if err == nil && !found {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, entry, err)
}
