package node

import (
	"testing"
	"time"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/metrics"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/simnet"
)

func newTestNode(t *testing.T, id int, cfg Config) *Node {
	t.Helper()
	if cfg.CSDuration == 0 {
		cfg.CSDuration = 10 * time.Millisecond
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = time.Second
	}
	col := metrics.NewCollector(64, nil)
	t.Cleanup(col.Close)
	return New(id, cfg, simnet.New(cfg.N, 0), col)
}

func raNode(t *testing.T, id, n int) (*Node, *ricartAgrawala) {
	t.Helper()
	nd := newTestNode(t, id, Config{Protocol: RicartAgrawala, N: n})
	return nd, nd.eng.(*ricartAgrawala)
}

func singleEnvelope(t *testing.T, envs []*simnet.Envelope, typ string, to int) {
	t.Helper()
	if len(envs) != 1 {
		t.Fatalf("got %d envelopes, want 1", len(envs))
	}
	if envs[0].Type != typ || envs[0].To != to {
		t.Fatalf("got %s to %d, want %s to %d", envs[0].Type, envs[0].To, typ, to)
	}
}

func TestRicartRequestFanOut(t *testing.T) {
	nd, r := raNode(t, 0, 4)
	nd.phase = Requesting

	envs := r.Begin(5, "attempt-1")
	if len(envs) != 3 {
		t.Fatalf("Begin produced %d envelopes, want N-1 = 3", len(envs))
	}
	seen := make(map[int]bool)
	for _, env := range envs {
		if env.Type != simnet.TypeRequest {
			t.Errorf("envelope to %d has type %s, want REQUEST", env.To, env.Type)
		}
		var req simnet.Request
		if err := simnet.Decode(env.Payload, &req); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if req.Timestamp != 5 || req.RequestID != "attempt-1" {
			t.Errorf("payload %+v, want ts=5 id=attempt-1", req)
		}
		seen[env.To] = true
	}
	for _, peer := range []int{1, 2, 3} {
		if !seen[peer] {
			t.Errorf("no REQUEST sent to peer %d", peer)
		}
	}
}

func TestRicartGrantsWhenIdle(t *testing.T) {
	_, r := raNode(t, 0, 3)
	envs := r.OnMessage(simnet.TypeRequest, 2, 9)
	singleEnvelope(t, envs, simnet.TypeReply, 2)
}

func TestRicartDefersLowerPriorityRequest(t *testing.T) {
	nd, r := raNode(t, 0, 4)
	nd.phase = Requesting
	r.Begin(5, "a")

	// Timestamp 7 loses against our 5 and is deferred.
	if envs := r.OnMessage(simnet.TypeRequest, 1, 7); len(envs) != 0 {
		t.Errorf("lower-priority request answered immediately: %v", envs)
	}
	// Timestamp 3 beats our 5 and is granted at once.
	envs := r.OnMessage(simnet.TypeRequest, 2, 3)
	singleEnvelope(t, envs, simnet.TypeReply, 2)

	if len(r.deferred) != 1 || r.deferred[0] != 1 {
		t.Errorf("deferred = %v, want [1]", r.deferred)
	}
}

func TestRicartEqualTimestampsBreakTiesById(t *testing.T) {
	// Node 0 requesting at ts 5 wins against (5, 1) and defers it.
	nd0, r0 := raNode(t, 0, 3)
	nd0.phase = Requesting
	r0.Begin(5, "a")
	if envs := r0.OnMessage(simnet.TypeRequest, 1, 5); len(envs) != 0 {
		t.Errorf("node 0 replied to (5,1) while holding (5,0): %v", envs)
	}

	// Node 1 requesting at ts 5 loses against (5, 0) and grants.
	nd1, r1 := raNode(t, 1, 3)
	nd1.phase = Requesting
	r1.Begin(5, "b")
	envs := r1.OnMessage(simnet.TypeRequest, 0, 5)
	singleEnvelope(t, envs, simnet.TypeReply, 0)
}

func TestRicartReadyOnlyAfterAllReplies(t *testing.T) {
	nd, r := raNode(t, 0, 4)
	nd.phase = Requesting
	r.Begin(1, "a")

	for _, peer := range []int{1, 2} {
		r.OnMessage(simnet.TypeReply, peer, 2)
		if r.Ready() {
			t.Fatalf("ready after reply from %d with one still outstanding", peer)
		}
	}
	r.OnMessage(simnet.TypeReply, 3, 2)
	if !r.Ready() {
		t.Error("not ready after all N-1 replies")
	}
}

func TestRicartDefersWhileInCS(t *testing.T) {
	nd, r := raNode(t, 0, 3)
	nd.phase = InCS
	if envs := r.OnMessage(simnet.TypeRequest, 1, 1); len(envs) != 0 {
		t.Errorf("request answered while in the critical section: %v", envs)
	}
	if len(r.deferred) != 1 {
		t.Errorf("deferred = %v, want [1]", r.deferred)
	}
}

func TestRicartExitRepliesToDeferred(t *testing.T) {
	nd, r := raNode(t, 0, 4)
	nd.phase = Requesting
	r.Begin(2, "a")
	r.OnMessage(simnet.TypeRequest, 1, 9)
	r.OnMessage(simnet.TypeRequest, 3, 9)

	nd.phase = Idle
	envs := r.Exit()
	if len(envs) != 2 {
		t.Fatalf("Exit produced %d envelopes, want 2", len(envs))
	}
	for _, env := range envs {
		if env.Type != simnet.TypeReply {
			t.Errorf("exit envelope type %s, want REPLY", env.Type)
		}
	}
	if len(r.deferred) != 0 {
		t.Errorf("deferred not cleared: %v", r.deferred)
	}
	if envs := r.Exit(); len(envs) != 0 {
		t.Errorf("second Exit produced envelopes: %v", envs)
	}
}

func TestRicartAbortUnblocksDeferred(t *testing.T) {
	nd, r := raNode(t, 0, 3)
	nd.phase = Requesting
	r.Begin(2, "a")
	r.OnMessage(simnet.TypeRequest, 1, 9)

	envs := r.Abort()
	singleEnvelope(t, envs, simnet.TypeReply, 1)
}

func TestRicartStrayMessagesAreDiscarded(t *testing.T) {
	_, r := raNode(t, 0, 3)
	if envs := r.OnMessage(simnet.TypeReply, 1, 4); len(envs) != 0 {
		t.Errorf("stray REPLY produced envelopes: %v", envs)
	}
	if envs := r.OnMessage(simnet.TypeLocked, 1, 4); len(envs) != 0 {
		t.Errorf("foreign message produced envelopes: %v", envs)
	}
}
