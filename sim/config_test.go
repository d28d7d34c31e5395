package sim

import (
	"testing"
	"time"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/node"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Protocol:     node.RicartAgrawala,
		N:            4,
		K:            2,
		CSDuration:   100 * time.Millisecond,
		NetworkDelay: 10 * time.Millisecond,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"N below 2", func(c *Config) { c.N = 1 }},
		{"N zero", func(c *Config) { c.N = 0 }},
		{"k zero", func(c *Config) { c.K = 0 }},
		{"k above N", func(c *Config) { c.K = 5 }},
		{"negative k", func(c *Config) { c.K = -1 }},
		{"zero CS duration", func(c *Config) { c.CSDuration = 0 }},
		{"negative CS duration", func(c *Config) { c.CSDuration = -time.Second }},
		{"negative delay", func(c *Config) { c.NetworkDelay = -time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("invalid config accepted: %+v", cfg)
			}
		})
	}
}

func TestAttemptTimeoutScalesWithLoad(t *testing.T) {
	small := Config{K: 1, CSDuration: time.Second, NetworkDelay: 100 * time.Millisecond}
	big := Config{K: 5, CSDuration: time.Second, NetworkDelay: 100 * time.Millisecond}
	if small.attemptTimeout() >= big.attemptTimeout() {
		t.Errorf("timeout does not grow with k: k=1 %v, k=5 %v",
			small.attemptTimeout(), big.attemptTimeout())
	}
	explicit := Config{AttemptTimeout: 42 * time.Second}
	if got := explicit.attemptTimeout(); got != 42*time.Second {
		t.Errorf("explicit attempt timeout not honored: %v", got)
	}
}
