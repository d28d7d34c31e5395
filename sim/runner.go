package sim

import (
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/metrics"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/node"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/simnet"
)

// Scenario is one runnable simulation. Quorums and StartDelays are
// normally left nil; tests override them to pin down contention patterns.
type Scenario struct {
	Config      Config
	Quorums     map[int][]int         // nil: BuildQuorums(N) for Maekawa
	StartDelays map[int]time.Duration // nil: all nodes start immediately
	Trace       io.Writer             // optional JSONL event trace
	CSWork      func(id int)          // optional critical-section body
}

// Run executes the scenario: N actors exchange messages until every
// requester has either completed its critical section or aborted, then
// all actors are stopped and the collected events are aggregated.
func Run(ctx context.Context, sc Scenario) (metrics.Stats, error) {
	cfg := sc.Config
	if err := cfg.Validate(); err != nil {
		return metrics.Stats{}, err
	}

	quorums := sc.Quorums
	if quorums == nil && cfg.Protocol != node.RicartAgrawala {
		quorums = BuildQuorums(cfg.N)
	}

	nw := simnet.New(cfg.N, cfg.NetworkDelay)
	col := metrics.NewCollector(cfg.N*8, sc.Trace)
	start := time.Now()

	var g errgroup.Group
	for i := 0; i < cfg.N; i++ {
		ncfg := node.Config{
			Protocol:       cfg.Protocol,
			N:              cfg.N,
			Requester:      i < cfg.K,
			Quorum:         quorums[i],
			CSDuration:     cfg.CSDuration,
			AttemptTimeout: cfg.attemptTimeout(),
			StartDelay:     sc.StartDelays[i],
		}
		if sc.CSWork != nil {
			id := i
			ncfg.CSWork = func() { sc.CSWork(id) }
		}
		g.Go(node.New(i, ncfg, nw, col).Run)
	}

	log.WithFields(log.Fields{
		"protocol": cfg.Protocol.String(),
		"n":        cfg.N,
		"k":        cfg.K,
	}).Info("simulation started")

	// Wait until every requester reports DONE or TIMEOUT_ABORT. The run
	// deadline is a backstop only; per-attempt watchdogs fire first.
	deadline := time.NewTimer(cfg.runTimeout())
	defer deadline.Stop()
	var runErr error
	for finished := 0; finished < cfg.K; {
		select {
		case <-col.Terminal():
			finished++
		case <-deadline.C:
			log.Warn("run deadline reached before all requesters finished")
			finished = cfg.K
		case <-ctx.Done():
			runErr = ctx.Err()
			finished = cfg.K
		}
	}

	for i := 0; i < cfg.N; i++ {
		stop := &simnet.Envelope{Type: simnet.TypeStop, From: -1, To: i}
		if err := nw.Inject(stop); err != nil {
			return metrics.Stats{}, err
		}
	}
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	col.Close()

	return col.Stats(cfg.K, time.Since(start)), runErr
}
