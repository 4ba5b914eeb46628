package tree

import (
	"fmt"

	"fortio.org/safecast"
)

// arena stores every node ever allocated by a Tree. Slots are never reused,
// so a stale NodeID resolves to a deleted node instead of an unrelated one.
type arena struct {
	data []*node
	live int
}

func newArena(capacity uint32) *arena {
	if capacity == 0 {
		capacity = 64
	}
	return &arena{
		data: make([]*node, 1, capacity+1), // index 0 reserved for NoNode
	}
}

func (a *arena) alloc(parent NodeID, k key) NodeID {
	value, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("node arena overflow: %w", err))
	}
	id := NodeID(value)
	a.data = append(a.data, &node{id: id, parent: parent, key: k})
	a.live++
	return id
}

// get returns the node or nil for an invalid ID. Deleted nodes are returned
// so callers can tell "gone" from "never existed".
func (a *arena) get(id NodeID) *node {
	if !id.IsValid() || int(id) >= len(a.data) {
		return nil
	}
	return a.data[id]
}

func (a *arena) release(n *node) {
	if n.state == StateDeleted {
		return
	}
	n.state = StateDeleted
	n.children = nil
	a.live--
}

// Len reports the number of live nodes.
func (a *arena) Len() int { return a.live }
