package resource

import (
	"fmt"

	"go.uber.org/zap"
)

// FanoutError reports the slot at which a fan-out stopped. Slots preceding
// it in iteration order have already been mutated.
type FanoutError struct {
	Slot uint16
	Op   string
	Err  error
}

func (f *FanoutError) Error() string {
	return fmt.Sprintf("%s failed on slot %d: %s", f.Op, f.Slot, f.Err)
}

func (f *FanoutError) Unwrap() error { return f.Err }

// Gateway applies mutations to the slots of a Datapath.
type Gateway interface {
	// ApplyToAll applies op to every slot in order, stopping at the first
	// failure, which is returned as a *FanoutError. Already mutated slots
	// are not rolled back.
	ApplyToAll(op Op) error

	// Apply applies op to a single slot. A missing slot yields
	// ErrInvalidSlot; a failing op yields a *FanoutError.
	Apply(slot uint16, op Op) error

	// Datapath returns the underlying Datapath.
	Datapath() *Datapath
}

// NewGateway returns a Gateway over dp.
func NewGateway(logger *zap.Logger, dp *Datapath) Gateway {
	return &gateway{
		log: logger.With(zap.String("facility", "gateway")),
		dp:  dp,
	}
}

type gateway struct {
	log *zap.Logger
	dp  *Datapath
}

func (g *gateway) Datapath() *Datapath { return g.dp }

func (g *gateway) ApplyToAll(op Op) error {
	return g.dp.Each(func(id uint16, r Resource) error {
		return g.apply(id, r, op)
	})
}

func (g *gateway) Apply(slot uint16, op Op) error {
	return g.dp.With(slot, func(r Resource) error {
		return g.apply(slot, r, op)
	})
}

func (g *gateway) apply(id uint16, r Resource, op Op) error {
	if err := op.Apply(r); err != nil {
		g.log.Warn("Operation failed",
			zap.String("op", op.Name()),
			zap.Uint16("slot", id),
			zap.Error(err))
		return &FanoutError{Slot: id, Op: op.Name(), Err: err}
	}
	g.log.Debug("Operation applied", zap.String("op", op.Name()), zap.Uint16("slot", id))
	return nil
}
