// Package mailbox emulates a CAN controller's message objects on top of a
// canbus.Bus: a fixed number of slots, each either listening with an
// identifier/mask filter or holding one frame waiting to go out.
//
// Controller implements arke.Transport.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
)

// ErrDropped reports a frame still queued for transmission when the
// controller was closed.
var ErrDropped = errors.New("mailbox: frame dropped")

// DefaultSlots matches the number of message objects an Arke node reserves.
const DefaultSlots = 6

type mode uint8

const (
	free mode = iota
	listening
	sending
)

type slot struct {
	mode  mode
	txn   *arke.Txn
	id    arke.IDT
	mask  arke.IDT
	limit int
	frame canbus.Frame
}

type result struct {
	status arke.TxnStatus
	frame  *canbus.Frame
	limit  int
}

// Controller owns a bus and schedules transactions onto its slots.
type Controller struct {
	bus    canbus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	slots   []slot
	results map[*arke.Txn]result

	txq    chan int
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New starts a controller with n slots over bus. n <= 0 selects
// DefaultSlots. The controller owns bus and closes it on Close.
func New(bus canbus.Bus, n int, logger *slog.Logger) *Controller {
	if n <= 0 {
		n = DefaultSlots
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		bus:     bus,
		logger:  logger,
		slots:   make([]slot, n),
		results: make(map[*arke.Txn]result),
		txq:     make(chan int, n),
		cancel:  cancel,
	}
	c.wg.Add(2)
	go c.receiveLoop(ctx)
	go c.transmitLoop(ctx)
	return c
}

// Listen arms a slot to receive the next standard data frame accepted by
// t.ID/t.Mask into t.Data. Re-arming a transaction that is still listening
// updates its filter in place.
func (c *Controller) Listen(t *arke.Txn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.find(t, listening)
	if i < 0 {
		if i = c.find(nil, free); i < 0 {
			return arke.ErrSlotExhausted
		}
	}
	delete(c.results, t)
	c.slots[i] = slot{
		mode:  listening,
		txn:   t,
		id:    t.ID,
		mask:  t.Mask,
		limit: min(int(t.Length), len(t.Data)),
	}
	return nil
}

// Send copies the frame described by t into a free slot and queues it for
// transmission in submission order.
func (c *Controller) Send(t *arke.Txn) error {
	f := canbus.Frame{ID: uint32(t.ID), Len: t.Length}
	if t.Length > 8 || int(t.Length) > len(t.Data) {
		return canbus.ErrInvalidLen
	}
	copy(f.Data[:], t.Data[:t.Length])
	if err := f.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.find(nil, free)
	if i < 0 {
		return arke.ErrSlotExhausted
	}
	delete(c.results, t)
	c.slots[i] = slot{mode: sending, txn: t, frame: f}
	// txq has one entry per slot so this never blocks.
	c.txq <- i
	return nil
}

// Status reports a transaction's state. A completed or failed outcome is
// reported once; a received frame is copied into the transaction then.
func (c *Controller) Status(t *arke.Txn) arke.TxnStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.results[t]; ok {
		delete(c.results, t)
		if r.frame != nil {
			payload := r.frame.Payload()
			t.ID = arke.IDT(r.frame.ID)
			t.Length = uint8(copy(t.Data[:r.limit], payload))
		}
		return r.status
	}
	if c.find(t, listening) >= 0 || c.find(t, sending) >= 0 {
		return arke.Pending
	}
	return arke.Unsubmitted
}

// Free returns the number of unused slots.
func (c *Controller) Free() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.slots {
		if s.mode == free {
			n++
		}
	}
	return n
}

// Close stops the controller and closes the bus. Frames that never made it
// onto the bus fail their transactions and are reported as ErrDropped
// alongside any bus close error.
func (c *Controller) Close() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		err = c.bus.Close()
		c.wg.Wait()

		c.mu.Lock()
		defer c.mu.Unlock()
		for i := range c.slots {
			s := &c.slots[i]
			if s.mode != sending {
				continue
			}
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrDropped, s.frame))
			c.results[s.txn] = result{status: arke.Failed}
			*s = slot{}
		}
	})
	return err
}

// find returns the lowest slot index in mode m bound to t (any txn if t is nil).
func (c *Controller) find(t *arke.Txn, m mode) int {
	for i := range c.slots {
		if c.slots[i].mode == m && (t == nil || c.slots[i].txn == t) {
			return i
		}
	}
	return -1
}

func (c *Controller) receiveLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		f, err := c.bus.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, canbus.ErrClosed) {
				return
			}
			c.logger.Warn("mailbox receive failed", "error", err)
			continue
		}
		if f.Extended || f.RTR {
			continue
		}
		c.deliver(f)
	}
}

// deliver hands f to the lowest-index listening slot that accepts it.
func (c *Controller) deliver(f canbus.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := arke.IDT(f.ID)
	for i := range c.slots {
		s := &c.slots[i]
		if s.mode != listening || !arke.Matches(id, s.id, s.mask) {
			continue
		}
		frame := f
		c.results[s.txn] = result{status: arke.Completed, frame: &frame, limit: s.limit}
		*s = slot{}
		return
	}
}

func (c *Controller) transmitLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		var i int
		select {
		case <-ctx.Done():
			return
		case i = <-c.txq:
		}
		c.mu.Lock()
		f := c.slots[i].frame
		c.mu.Unlock()

		err := c.bus.Send(ctx, f)

		c.mu.Lock()
		status := arke.Completed
		if err != nil {
			status = arke.Failed
			c.logger.Warn("mailbox send failed", "id", f.ID, "error", err)
		}
		if c.slots[i].mode == sending {
			c.results[c.slots[i].txn] = result{status: status}
		}
		c.slots[i] = slot{}
		c.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
	}
}
