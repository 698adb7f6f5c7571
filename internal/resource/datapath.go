package resource

import (
	"fmt"
	"sync"

	"github.com/heyvito/pofswitch/internal/containers"
)

// ErrInvalidSlot indicates that no slot with a given id exists.
var ErrInvalidSlot = fmt.Errorf("invalid slot id")

type slot struct {
	id  uint16
	mu  sync.Mutex
	res Resource
}

// Datapath owns the slots of a device. Slots keep the order in which they
// were provided, and that order is used by every iteration. Each slot has
// its own lock, held for the duration of any call made through Datapath.
type Datapath struct {
	slots []*slot
	byID  map[uint16]*slot
}

// NewDatapath returns a Datapath holding the provided resources, keyed by
// their SlotID.
func NewDatapath(resources ...Resource) (*Datapath, error) {
	d := &Datapath{byID: make(map[uint16]*slot, len(resources))}
	for _, r := range resources {
		id := r.SlotID()
		if _, ok := d.byID[id]; ok {
			return nil, fmt.Errorf("duplicated slot id %d", id)
		}
		s := &slot{id: id, res: r}
		d.slots = append(d.slots, s)
		d.byID[id] = s
	}
	return d, nil
}

// Len returns the amount of slots.
func (d *Datapath) Len() int { return len(d.slots) }

// IDs returns slot ids in iteration order.
func (d *Datapath) IDs() []uint16 {
	return containers.MapFn(d.slots, func(s *slot) uint16 { return s.id })
}

// Base returns the first slot id.
func (d *Datapath) Base() (uint16, bool) {
	if len(d.slots) == 0 {
		return 0, false
	}
	return d.slots[0].id, true
}

// Has returns whether a slot exists.
func (d *Datapath) Has(id uint16) bool {
	_, ok := d.byID[id]
	return ok
}

// Each calls fn for every slot in order while holding that slot's lock. It
// stops at, and returns, the first error returned by fn.
func (d *Datapath) Each(fn func(id uint16, r Resource) error) error {
	for _, s := range d.slots {
		if err := s.run(fn); err != nil {
			return err
		}
	}
	return nil
}

// With calls fn against a single slot while holding its lock.
func (d *Datapath) With(id uint16, fn func(r Resource) error) error {
	s, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, id)
	}
	return s.run(func(_ uint16, r Resource) error { return fn(r) })
}

func (s *slot) run(fn func(id uint16, r Resource) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.id, s.res)
}
