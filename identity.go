package arke

import "fmt"

// Identity is the node's persisted sub-address. It only changes through
// ChangeTo, and a change never takes effect before a restart.
type Identity struct {
	store AddressStore
	max   NodeID
	addr  NodeID
}

// LoadIdentity reads the address from store. An address outside
// [1, layout max] is repaired to 1 and the repair is persisted.
func LoadIdentity(store AddressStore, l Layout) (*Identity, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	raw, err := store.LoadAddress()
	if err != nil {
		return nil, fmt.Errorf("arke: load address: %w", err)
	}
	id := &Identity{store: store, max: l.MaxAddress(), addr: NodeID(raw)}
	if !id.valid(id.addr) {
		id.addr = 1
		if err := store.StoreAddress(byte(id.addr)); err != nil {
			return nil, fmt.Errorf("arke: repair address %d: %w", raw, err)
		}
	}
	return id, nil
}

// Address returns the address the node runs with.
func (i *Identity) Address() NodeID { return i.addr }

func (i *Identity) valid(addr NodeID) bool { return addr >= 1 && addr <= i.max }

// ChangeTo persists addr as the node's next address. It fails with
// ErrInvalidAddress, leaving storage untouched, when addr is out of range.
// Otherwise it always returns an error wrapping ErrRestart, also when
// persisting failed: the running address is never changed in place.
func (i *Identity) ChangeTo(addr NodeID) error {
	if !i.valid(addr) {
		return fmt.Errorf("%w: %d (valid 1..%d)", ErrInvalidAddress, addr, i.max)
	}
	if err := i.store.StoreAddress(byte(addr)); err != nil {
		return fmt.Errorf("%w (persisting address %d failed: %v)", ErrRestart, addr, err)
	}
	return ErrRestart
}
