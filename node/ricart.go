package node

import (
	"github.com/DennisHuamanYrigoin/sdis-maekawa/clock"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/simnet"
)

// ricartAgrawala implements unanimous-consent mutual exclusion: a request
// is broadcast to all N-1 peers and the critical section opens once every
// peer has replied. A peer withholds its reply only while it competes
// with a strictly lower (timestamp, id) pair of its own, which gives the
// fixed cost of 2(N-1) messages per uncontended acquisition.
type ricartAgrawala struct {
	n *Node

	myTS        int64
	pendingAcks int
	deferred    []int // peers whose REPLY is withheld until our exit
}

func newRicartAgrawala(n *Node) *ricartAgrawala {
	return &ricartAgrawala{n: n}
}

func (r *ricartAgrawala) Begin(ts int64, reqID string) []*simnet.Envelope {
	r.myTS = ts
	r.pendingAcks = r.n.cfg.N - 1
	r.deferred = r.deferred[:0]
	envs := make([]*simnet.Envelope, 0, r.n.cfg.N-1)
	for i := 0; i < r.n.cfg.N; i++ {
		if i == r.n.ID {
			continue
		}
		envs = append(envs, r.n.request(i, ts, reqID))
	}
	return envs
}

func (r *ricartAgrawala) OnMessage(typ string, from int, ts int64) []*simnet.Envelope {
	switch typ {
	case simnet.TypeRequest:
		if r.n.phase == InCS ||
			(r.n.phase == Requesting && clock.Less(r.myTS, r.n.ID, ts, from)) {
			r.deferred = append(r.deferred, from)
			return nil
		}
		return []*simnet.Envelope{r.n.ack(simnet.TypeReply, from)}

	case simnet.TypeReply:
		if r.n.phase != Requesting {
			r.n.log.WithField("from", from).Warn("protocol violation: REPLY outside request")
			return nil
		}
		r.pendingAcks--
		return nil
	}
	r.n.log.WithField("type", typ).Warn("protocol violation: message not in protocol")
	return nil
}

func (r *ricartAgrawala) Ready() bool {
	return r.n.phase == Requesting && r.pendingAcks == 0
}

// Exit replies to every deferred peer, unblocking the next requester in
// timestamp order.
func (r *ricartAgrawala) Exit() []*simnet.Envelope {
	envs := make([]*simnet.Envelope, 0, len(r.deferred))
	for _, id := range r.deferred {
		envs = append(envs, r.n.ack(simnet.TypeReply, id))
	}
	r.deferred = r.deferred[:0]
	return envs
}

// Abort releases deferred peers as well: a timed-out requester must not
// keep anyone else waiting.
func (r *ricartAgrawala) Abort() []*simnet.Envelope {
	return r.Exit()
}
