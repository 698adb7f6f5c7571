package role

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/heyvito/pofswitch/internal/logutil"
	"github.com/heyvito/pofswitch/internal/proto"
	"go.uber.org/zap"
)

// ErrUnknownConnection indicates an operation on a connection that was never
// registered, or was already unregistered.
var ErrUnknownConnection = fmt.Errorf("unknown controller connection")

// ConnID identifies a controller connection.
type ConnID uint32

func (c ConnID) String() string { return fmt.Sprintf("conn#%d", uint32(c)) }

// Role is the role a connection currently holds.
type Role = proto.ControllerRole

const (
	Equal  = proto.RoleEqual
	Master = proto.RoleMaster
	Slave  = proto.RoleSlave
)

// Outcome is the result of a role request. Role is always the role the
// requester holds afterwards, and is what the role reply must carry.
type Outcome struct {
	Role     Role
	Changed  bool
	Demoted  []ConnID
	Previous Role
}

// Entry is a snapshot of a single connection.
type Entry struct {
	ID   ConnID
	Role Role
}

// Arbiter tracks the role of every controller connection and guarantees that
// at most one of them is Master.
type Arbiter interface {
	// Register adds a new connection, starting as Equal, and returns its id.
	Register() ConnID

	// Unregister removes a connection. Removing the master clears the
	// master singleton.
	Unregister(id ConnID)

	// RequestRole applies a role request made by id.
	RequestRole(id ConnID, requested Role) (Outcome, error)

	// IsMaster returns whether id is the current master.
	IsMaster(id ConnID) bool

	// Role returns the role held by id.
	Role(id ConnID) (Role, error)

	// Master returns the current master, if any.
	Master() (ConnID, bool)

	// Snapshot returns every registered connection ordered by id.
	Snapshot() []Entry
}

// NewArbiter returns a new Arbiter with no connections.
func NewArbiter(logger *zap.Logger) Arbiter {
	return &arbiter{
		log:   logger.With(zap.String("facility", "role")),
		conns: map[ConnID]Role{},
	}
}

type arbiter struct {
	log *zap.Logger

	mu        sync.Mutex
	nextID    ConnID
	conns     map[ConnID]Role
	master    ConnID
	hasMaster bool
}

func (a *arbiter) Register() ConnID {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	a.conns[a.nextID] = Equal
	return a.nextID
}

func (a *arbiter) Unregister(id ConnID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.conns[id]; !ok {
		return
	}
	delete(a.conns, id)
	if a.hasMaster && a.master == id {
		a.hasMaster = false
		a.log.Info("Master connection went away", logutil.Conn(id))
	}
}

func (a *arbiter) RequestRole(id ConnID, requested Role) (Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, ok := a.conns[id]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %d", ErrUnknownConnection, id)
	}

	out := Outcome{Role: current, Previous: current}
	switch requested {
	case Master:
		for other, r := range a.conns {
			if other != id && r == Master {
				a.conns[other] = Slave
				out.Demoted = append(out.Demoted, other)
			}
		}
		a.conns[id] = Master
		a.master = id
		a.hasMaster = true
		out.Role = Master

	case Equal:
		if current == Master {
			a.hasMaster = false
		}
		a.conns[id] = Equal
		out.Role = Equal

	default:
		// Slave and NoChange requests leave the state untouched.
		return out, nil
	}

	out.Changed = out.Role != current || len(out.Demoted) > 0
	if out.Changed {
		a.log.Info("Role changed",
			logutil.Conn(id),
			zap.Stringer("from", current),
			zap.Stringer("to", out.Role),
			logutil.StringerArr("demoted", out.Demoted))
	}
	return out, nil
}

func (a *arbiter) IsMaster(id ConnID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMaster && a.master == id
}

func (a *arbiter) Role(id ConnID) (Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.conns[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownConnection, id)
	}
	return r, nil
}

func (a *arbiter) Master() (ConnID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.master, a.hasMaster
}

func (a *arbiter) Snapshot() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Entry, 0, len(a.conns))
	for id, r := range a.conns {
		out = append(out, Entry{ID: id, Role: r})
	}
	slices.SortFunc(out, func(x, y Entry) int { return cmp.Compare(x.ID, y.ID) })
	return out
}
