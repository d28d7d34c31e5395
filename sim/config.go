// Package sim validates run configurations, builds Maekawa quorums and
// orchestrates a full protocol run over the simulated network.
package sim

import (
	"fmt"
	"time"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/node"
)

// Config describes one protocol run.
type Config struct {
	Protocol     node.Protocol
	N            int           // total nodes, at least 2
	K            int           // concurrent requesters, 1..N
	CSDuration   time.Duration // critical-section hold time
	NetworkDelay time.Duration // simulated per-message latency

	// AttemptTimeout bounds a single acquisition attempt. Zero derives a
	// bound from K, CSDuration and NetworkDelay.
	AttemptTimeout time.Duration
	// RunTimeout bounds the whole run. Zero derives it from AttemptTimeout.
	RunTimeout time.Duration
}

// Validate fails fast on configurations no actor should ever see.
func (c Config) Validate() error {
	if c.N < 2 {
		return fmt.Errorf("config: N must be at least 2, got %d", c.N)
	}
	if c.K < 1 || c.K > c.N {
		return fmt.Errorf("config: k must be in [1, %d], got %d", c.N, c.K)
	}
	if c.CSDuration <= 0 {
		return fmt.Errorf("config: CS duration must be positive, got %v", c.CSDuration)
	}
	if c.NetworkDelay < 0 {
		return fmt.Errorf("config: network delay must not be negative, got %v", c.NetworkDelay)
	}
	return nil
}

// attemptTimeout is the per-acquisition watchdog bound: the worst-case
// serialization of K holders, each paying the hold time plus a generous
// latency margin for its message rounds, plus slack for scheduling noise.
func (c Config) attemptTimeout() time.Duration {
	if c.AttemptTimeout > 0 {
		return c.AttemptTimeout
	}
	perHolder := c.CSDuration + 15*c.NetworkDelay
	return time.Duration(c.K)*perHolder + 5*time.Second
}

// runTimeout is the backstop for the whole run; individual attempts abort
// well before it fires.
func (c Config) runTimeout() time.Duration {
	if c.RunTimeout > 0 {
		return c.RunTimeout
	}
	return c.attemptTimeout() + 10*time.Second
}
