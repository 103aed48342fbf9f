package arke

// TxnStatus is the state of a transport transaction.
type TxnStatus uint8

const (
	Unsubmitted TxnStatus = iota
	Pending
	Completed
	Failed
)

func (s TxnStatus) String() string {
	switch s {
	case Unsubmitted:
		return "unsubmitted"
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Txn is one asynchronous send-or-listen transaction. For a listen, ID and
// Mask select accepted identifiers and Data receives the payload; on
// completion the transport overwrites ID and Length with the received frame.
// For a send, the first Length bytes of Data are the payload.
type Txn struct {
	ID     IDT
	Mask   IDT
	Length uint8
	Data   []byte
}

// Transport is the slot layer the engine schedules against. Listen and
// Send return ErrSlotExhausted when no slot is free. Status reports a
// Completed or Failed outcome exactly once, after which the transaction
// reads as Unsubmitted; callers query it at most once per poll.
type Transport interface {
	Listen(t *Txn) error
	Send(t *Txn) error
	Status(t *Txn) TxnStatus
}

// Tick is a free-running millisecond counter that wraps at 16 bits.
type Tick uint16

// Since returns the ticks elapsed from earlier to t, across wraparound.
func (t Tick) Since(earlier Tick) Tick { return t - earlier }

// Clock provides the current tick. Reads must be consistent even when the
// counter is advanced concurrently.
type Clock interface {
	Now() Tick
}

// Restarter is the platform hard-reset hook.
type Restarter interface {
	Restart()
}

// RestartFunc adapts a function to Restarter.
type RestartFunc func()

func (f RestartFunc) Restart() { f() }

// AddressStore is the byte-granular non-volatile storage holding the node
// address.
type AddressStore interface {
	LoadAddress() (byte, error)
	StoreAddress(addr byte) error
}
