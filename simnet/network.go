// Package simnet connects node actors through per-node mailboxes with a
// simulated link latency. Any goroutine may send into a mailbox; only the
// owning node's actor loop receives from it. Delivery between a given
// sender and receiver is FIFO; nothing is guaranteed across senders.
package simnet

import (
	"fmt"
	"time"
)

const mailboxBuffer = 1024

// Network owns one buffered mailbox per node.
type Network struct {
	latency time.Duration
	boxes   []chan *Envelope
}

// New creates a network of n mailboxes with the given delivery latency.
func New(n int, latency time.Duration) *Network {
	boxes := make([]chan *Envelope, n)
	for i := range boxes {
		boxes[i] = make(chan *Envelope, mailboxBuffer)
	}
	return &Network{latency: latency, boxes: boxes}
}

// Size returns the number of nodes on the network.
func (nw *Network) Size() int { return len(nw.boxes) }

// Send delivers env to its destination mailbox after the simulated
// latency. The wait happens in the caller, so messages from one sender to
// one receiver stay in order. Loopback sends skip the latency: a node
// talking to itself does not cross the network.
func (nw *Network) Send(env *Envelope) error {
	if err := nw.check(env.To); err != nil {
		return err
	}
	if env.From != env.To {
		time.Sleep(nw.latency)
	}
	nw.boxes[env.To] <- env
	return nil
}

// Multicast applies the latency once and then enqueues every envelope,
// modeling a node transmitting a burst of messages back to back.
func (nw *Network) Multicast(envs []*Envelope) error {
	for _, env := range envs {
		if err := nw.check(env.To); err != nil {
			return err
		}
	}
	time.Sleep(nw.latency)
	for _, env := range envs {
		nw.boxes[env.To] <- env
	}
	return nil
}

// Inject enqueues env immediately, bypassing the latency. Used by the
// runner for control messages such as STOP.
func (nw *Network) Inject(env *Envelope) error {
	if err := nw.check(env.To); err != nil {
		return err
	}
	nw.boxes[env.To] <- env
	return nil
}

// Recv blocks until a message arrives in node id's mailbox or the timeout
// elapses. ok is false on timeout.
func (nw *Network) Recv(id int, timeout time.Duration) (env *Envelope, ok bool) {
	select {
	case env := <-nw.boxes[id]:
		return env, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (nw *Network) check(to int) error {
	if to < 0 || to >= len(nw.boxes) {
		return fmt.Errorf("simnet: no node %d", to)
	}
	return nil
}
