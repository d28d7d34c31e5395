package node

import (
	"container/heap"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/clock"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/simnet"
)

// maekawa implements quorum-voting mutual exclusion. Every node plays the
// voting-member role for the quorums it belongs to; requesters
// additionally collect LOCKED votes from their own quorum. The node's own
// vote travels as an uncounted loopback message, so self-granting costs
// nothing on the wire but still goes through the member state machine:
// a node cannot use its vote while it is granted to somebody else.
//
// In heavy-demand mode a member that is already granted sends INQUIRE to
// its holder when a strictly higher-priority request arrives, recalling
// the vote unless the holder has already entered the critical section.
// This breaks the circular waits light demand cannot resolve.
type maekawa struct {
	n     *Node
	heavy bool

	// requester role
	requested bool
	myTS      int64
	votes     map[int]bool

	// voting-member role
	grantedTo int // requester holding this node's vote, -1 when free
	grantedTS int64
	inquired  bool // INQUIRE outstanding to the current holder
	waiting   waitQueue
}

func newMaekawa(n *Node, heavy bool) *maekawa {
	return &maekawa{
		n:         n,
		heavy:     heavy,
		votes:     make(map[int]bool),
		grantedTo: -1,
	}
}

func (m *maekawa) Begin(ts int64, reqID string) []*simnet.Envelope {
	m.requested = true
	m.myTS = ts
	clear(m.votes)
	envs := make([]*simnet.Envelope, 0, len(m.n.cfg.Quorum))
	for _, member := range m.n.cfg.Quorum {
		envs = append(envs, m.n.request(member, ts, reqID))
	}
	return envs
}

func (m *maekawa) OnMessage(typ string, from int, ts int64) []*simnet.Envelope {
	switch typ {
	case simnet.TypeRequest:
		return m.onRequest(from, ts)
	case simnet.TypeRelease:
		return m.onRelease(from)
	case simnet.TypeRelinquish:
		return m.onRelinquish(from)
	case simnet.TypeLocked:
		return m.onLocked(from)
	case simnet.TypeInquire:
		return m.onInquire(from)
	case simnet.TypeFailed:
		// Informational in heavy demand; the request stays queued remotely.
		return nil
	}
	m.n.log.WithField("type", typ).Warn("protocol violation: message not in protocol")
	return nil
}

// onRequest runs the voting-member side: grant when free, otherwise queue
// by (timestamp, id). Heavy demand additionally recalls the vote from a
// lower-priority holder, or tells the newcomer it lost for now.
func (m *maekawa) onRequest(from int, ts int64) []*simnet.Envelope {
	if m.grantedTo < 0 {
		m.grantedTo = from
		m.grantedTS = ts
		return []*simnet.Envelope{m.n.ack(simnet.TypeLocked, from)}
	}

	heap.Push(&m.waiting, waiter{ts: ts, id: from})
	if !m.heavy {
		return nil
	}
	if clock.Less(ts, from, m.grantedTS, m.grantedTo) && !m.inquired {
		m.inquired = true
		return []*simnet.Envelope{m.n.ack(simnet.TypeInquire, m.grantedTo)}
	}
	return []*simnet.Envelope{m.n.ack(simnet.TypeFailed, from)}
}

// onRelease clears the grant and hands the vote to the best waiter. A
// RELEASE from a requester that was merely queued (an aborted attempt)
// removes it from the queue instead.
func (m *maekawa) onRelease(from int) []*simnet.Envelope {
	if from != m.grantedTo {
		m.waiting.remove(from)
		return nil
	}
	m.clearGrant()
	return m.grantNext()
}

// onRelinquish returns the holder's vote: the holder is requeued under
// its original timestamp and the best waiter is granted instead.
func (m *maekawa) onRelinquish(from int) []*simnet.Envelope {
	if from != m.grantedTo {
		m.n.log.WithField("from", from).Warn("protocol violation: RELINQUISH from non-holder")
		return nil
	}
	heap.Push(&m.waiting, waiter{ts: m.grantedTS, id: m.grantedTo})
	m.clearGrant()
	return m.grantNext()
}

// onLocked records a vote for the current attempt. A vote arriving after
// the attempt ended is handed straight back so the member does not stay
// locked on a dead request.
func (m *maekawa) onLocked(from int) []*simnet.Envelope {
	if !m.requested {
		return []*simnet.Envelope{m.n.ack(simnet.TypeRelease, from)}
	}
	m.votes[from] = true
	return nil
}

// onInquire decides whether to give a vote back. Only a holder that has
// not yet assembled its full quorum relinquishes; once in the critical
// section the inquiry is ignored.
func (m *maekawa) onInquire(from int) []*simnet.Envelope {
	if !m.heavy {
		m.n.log.WithField("from", from).Warn("protocol violation: INQUIRE in light demand")
		return nil
	}
	if m.n.phase == InCS || !m.requested || !m.votes[from] {
		return nil
	}
	delete(m.votes, from)
	return []*simnet.Envelope{m.n.ack(simnet.TypeRelinquish, from)}
}

func (m *maekawa) Ready() bool {
	return m.requested && len(m.votes) == len(m.n.cfg.Quorum)
}

// Exit releases every quorum member; each one hands the vote onward.
func (m *maekawa) Exit() []*simnet.Envelope {
	m.requested = false
	clear(m.votes)
	envs := make([]*simnet.Envelope, 0, len(m.n.cfg.Quorum))
	for _, member := range m.n.cfg.Quorum {
		envs = append(envs, m.n.ack(simnet.TypeRelease, member))
	}
	return envs
}

// Abort releases the whole quorum as well: members holding our vote free
// it, members still queueing us drop the stale request.
func (m *maekawa) Abort() []*simnet.Envelope {
	if !m.requested {
		return nil
	}
	return m.Exit()
}

func (m *maekawa) clearGrant() {
	m.grantedTo = -1
	m.grantedTS = 0
	m.inquired = false
}

func (m *maekawa) grantNext() []*simnet.Envelope {
	if m.waiting.Len() == 0 {
		return nil
	}
	next := heap.Pop(&m.waiting).(waiter)
	m.grantedTo = next.id
	m.grantedTS = next.ts
	return []*simnet.Envelope{m.n.ack(simnet.TypeLocked, next.id)}
}

// waiter is one queued request at a voting member.
type waiter struct {
	ts int64
	id int
}

// waitQueue orders pending requesters by (timestamp, id).
type waitQueue []waiter

func (q waitQueue) Len() int { return len(q) }
func (q waitQueue) Less(i, j int) bool {
	return clock.Less(q[i].ts, q[i].id, q[j].ts, q[j].id)
}
func (q waitQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *waitQueue) Push(x any) { *q = append(*q, x.(waiter)) }

func (q *waitQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	*q = old[:n-1]
	return w
}

// remove drops id from the queue if present.
func (q *waitQueue) remove(id int) {
	for i, w := range *q {
		if w.id == id {
			heap.Remove(q, i)
			return
		}
	}
}
