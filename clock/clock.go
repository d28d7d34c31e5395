// Package clock implements the Lamport scalar clock that orders
// critical-section requests across nodes.
//
// Two rules govern the clock: before any send or internal event the clock
// is incremented (Tick), and on receipt of a message carrying timestamp t
// the clock advances to max(own, t) + 1 (Observe). Ties between equal
// timestamps are broken by node id, giving every node the same total
// order over requests without coordination.
package clock

// Clock is a Lamport logical clock. Each node actor owns its clock
// exclusively, so no locking is needed.
type Clock struct {
	ts int64
}

// Tick increments the clock and returns the new timestamp.
func (c *Clock) Tick() int64 {
	c.ts++
	return c.ts
}

// Observe advances the clock past a received timestamp,
// max(own, received) + 1, and returns the new value.
func (c *Clock) Observe(received int64) int64 {
	if received > c.ts {
		c.ts = received
	}
	c.ts++
	return c.ts
}

// Value returns the current timestamp without advancing it.
func (c *Clock) Value() int64 { return c.ts }

// Less reports whether request (tsA, idA) precedes (tsB, idB) in the
// total order: earlier timestamp wins, equal timestamps fall back to the
// lower node id. Priority decisions in every protocol use this order
// rather than arrival order, since delivery across senders is unordered.
func Less(tsA int64, idA int, tsB int64, idB int) bool {
	if tsA != tsB {
		return tsA < tsB
	}
	return idA < idB
}
