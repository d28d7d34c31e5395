// Package node implements the actor running one simulated process and the
// three mutual-exclusion engines behind it. Each node owns its protocol
// state exclusively: a single receive loop dispatches incoming envelopes
// to the engine, and acquisition progress is driven by accumulated
// reply/vote counts rather than extra goroutines.
package node

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/clock"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/metrics"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/simnet"
)

// Phase of the local acquisition state machine.
type Phase int

const (
	Idle Phase = iota
	Requesting
	InCS
)

// Protocol selects the engine a node runs.
type Protocol int

const (
	RicartAgrawala Protocol = iota
	MaekawaLight
	MaekawaHeavy
)

func (p Protocol) String() string {
	switch p {
	case RicartAgrawala:
		return "Ricart-Agrawala"
	case MaekawaLight:
		return "Maekawa (Light Demand)"
	case MaekawaHeavy:
		return "Maekawa (Heavy Demand)"
	}
	return "unknown"
}

// idlePollInterval bounds how long a non-requesting node blocks on its
// mailbox before re-checking for shutdown.
const idlePollInterval = 500 * time.Millisecond

// engine is the per-protocol state machine behind the shared actor shell.
// Methods return envelopes to transmit and are only called from the
// owning node's loop.
type engine interface {
	// Begin starts an acquisition stamped with ts.
	Begin(ts int64, reqID string) []*simnet.Envelope
	// OnMessage handles one protocol message already observed by the clock.
	OnMessage(typ string, from int, ts int64) []*simnet.Envelope
	// Ready reports whether the acceptance condition for the current
	// attempt is fully satisfied. Partial satisfaction never unlocks.
	Ready() bool
	// Exit produces the messages released on leaving the critical section.
	Exit() []*simnet.Envelope
	// Abort produces the cleanup messages for a timed-out attempt, leaving
	// remote quorum state consistent.
	Abort() []*simnet.Envelope
}

// Config carries the per-node slice of the run configuration.
type Config struct {
	Protocol       Protocol
	N              int
	Requester      bool
	Quorum         []int // Maekawa only; includes the node itself
	CSDuration     time.Duration
	AttemptTimeout time.Duration
	StartDelay     time.Duration
	// CSWork, when set, replaces the plain hold inside the critical
	// section. Tests use it to probe for overlapping entries.
	CSWork func()
}

// Node is one simulated process.
type Node struct {
	ID  int
	cfg Config

	net *simnet.Network
	col *metrics.Collector
	clk clock.Clock
	log *log.Entry

	phase    Phase
	eng      engine
	msgsSent int
	stopped  bool
}

// New builds a node for the configured protocol.
func New(id int, cfg Config, nw *simnet.Network, col *metrics.Collector) *Node {
	n := &Node{
		ID:  id,
		cfg: cfg,
		net: nw,
		col: col,
		log: log.WithFields(log.Fields{"node": id, "protocol": cfg.Protocol.String()}),
	}
	switch cfg.Protocol {
	case RicartAgrawala:
		n.eng = newRicartAgrawala(n)
	case MaekawaLight:
		n.eng = newMaekawa(n, false)
	case MaekawaHeavy:
		n.eng = newMaekawa(n, true)
	}
	return n
}

// Run executes the node's protocol loop until a STOP envelope arrives.
// A requester performs one acquisition attempt and then keeps servicing
// peers; a non-requester only services peers. The node's outgoing message
// count is reported as a MSG_COUNT event on shutdown.
func (n *Node) Run() error {
	if n.cfg.StartDelay > 0 {
		time.Sleep(n.cfg.StartDelay)
	}
	if n.cfg.Requester {
		n.acquireOnce()
	}
	n.serveUntilStop()
	n.col.Emit(metrics.Event{
		Kind:   metrics.KindMsgCount,
		NodeID: n.ID,
		Value:  float64(n.msgsSent),
	})
	return nil
}

// acquireOnce runs one bounded acquisition attempt: request, collect
// grants while servicing peers, hold the critical section, release.
func (n *Node) acquireOnce() {
	reqID := uuid.NewString()
	start := time.Now()
	deadline := start.Add(n.cfg.AttemptTimeout)

	ts := n.clk.Tick()
	n.phase = Requesting
	n.transmit(n.eng.Begin(ts, reqID))

	for !n.eng.Ready() {
		env, ok := n.net.Recv(n.ID, time.Until(deadline))
		if !ok {
			n.abortAttempt()
			return
		}
		if env.Type == simnet.TypeStop {
			// Run ended while still waiting; clean up and shut down.
			n.abortAttempt()
			n.stopped = true
			return
		}
		n.dispatch(env)
	}

	n.phase = InCS
	entry := time.Now()
	n.col.Emit(metrics.Event{Kind: metrics.KindCSEntry, NodeID: n.ID, Timestamp: entry})
	n.col.Emit(metrics.Event{
		Kind:   metrics.KindResponseTime,
		NodeID: n.ID,
		Value:  entry.Sub(start).Seconds(),
	})
	n.log.Info("entering critical section")

	if n.cfg.CSWork != nil {
		n.cfg.CSWork()
	} else {
		time.Sleep(n.cfg.CSDuration)
	}

	exit := time.Now()
	n.col.Emit(metrics.Event{Kind: metrics.KindCSExit, NodeID: n.ID, Timestamp: exit})
	n.log.Info("exiting critical section")

	n.phase = Idle
	n.transmit(n.eng.Exit())
	n.col.Emit(metrics.Event{Kind: metrics.KindDone, NodeID: n.ID})
}

// abortAttempt abandons the current acquisition: remote quorum members are
// released so their grant state stays consistent, and the attempt is
// recorded as a timeout. No retry follows.
func (n *Node) abortAttempt() {
	n.phase = Idle
	n.transmit(n.eng.Abort())
	n.col.Emit(metrics.Event{Kind: metrics.KindTimeoutAbort, NodeID: n.ID})
	n.log.Warn("acquisition timed out, attempt aborted")
}

// serveUntilStop keeps answering peer messages after (or instead of) the
// node's own attempt, so other requesters can still make progress.
func (n *Node) serveUntilStop() {
	for !n.stopped {
		env, ok := n.net.Recv(n.ID, idlePollInterval)
		if !ok {
			continue
		}
		if env.Type == simnet.TypeStop {
			return
		}
		n.dispatch(env)
	}
}

// dispatch decodes env, applies the Lamport receive rule and hands the
// message to the engine. Messages that do not decode or that are not part
// of the protocol are logged and discarded, never fatal.
func (n *Node) dispatch(env *simnet.Envelope) {
	var ts int64
	switch env.Type {
	case simnet.TypeRequest:
		var req simnet.Request
		if err := simnet.Decode(env.Payload, &req); err != nil {
			n.log.WithError(err).WithField("from", env.From).Warn("protocol violation: bad REQUEST payload")
			return
		}
		ts = req.Timestamp
	case simnet.TypeReply, simnet.TypeLocked, simnet.TypeRelease,
		simnet.TypeInquire, simnet.TypeRelinquish, simnet.TypeFailed:
		var ack simnet.Ack
		if err := simnet.Decode(env.Payload, &ack); err != nil {
			n.log.WithError(err).WithField("from", env.From).Warn("protocol violation: bad payload")
			return
		}
		ts = ack.Timestamp
	default:
		n.log.WithFields(log.Fields{"from": env.From, "type": env.Type}).
			Warn("protocol violation: unknown message type")
		return
	}
	n.clk.Observe(ts)
	n.transmit(n.eng.OnMessage(env.Type, env.From, ts))
}

// transmit sends a batch of envelopes. Loopback envelopes go straight
// into the node's own mailbox without latency and are not counted as
// network messages; remote envelopes share one latency window per burst.
func (n *Node) transmit(envs []*simnet.Envelope) {
	var remote []*simnet.Envelope
	for _, env := range envs {
		if env == nil {
			continue
		}
		if env.To == n.ID {
			if err := n.net.Inject(env); err != nil {
				n.log.WithError(err).Warn("loopback failed")
			}
			continue
		}
		remote = append(remote, env)
	}
	var err error
	switch len(remote) {
	case 0:
		return
	case 1:
		err = n.net.Send(remote[0])
	default:
		err = n.net.Multicast(remote)
	}
	if err != nil {
		n.log.WithError(err).Warn("send failed")
		return
	}
	n.msgsSent += len(remote)
}

// request builds a REQUEST envelope for the current attempt.
func (n *Node) request(to int, ts int64, reqID string) *simnet.Envelope {
	env, err := simnet.NewEnvelope(simnet.TypeRequest, n.ID, to, simnet.Request{
		Timestamp: ts,
		RequestID: reqID,
	})
	if err != nil {
		n.log.WithError(err).Warn("encode REQUEST")
		return nil
	}
	return env
}

// ack builds a non-REQUEST protocol envelope stamped with a fresh tick.
func (n *Node) ack(typ string, to int) *simnet.Envelope {
	env, err := simnet.NewEnvelope(typ, n.ID, to, simnet.Ack{Timestamp: n.clk.Tick()})
	if err != nil {
		n.log.WithError(err).WithField("type", typ).Warn("encode failed")
		return nil
	}
	return env
}
