package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/metrics"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/node"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/sim"
)

func TestTheoreticalMsgsPerEntry(t *testing.T) {
	cases := []struct {
		p    node.Protocol
		n    int
		want float64
	}{
		{node.RicartAgrawala, 4, 6},
		{node.RicartAgrawala, 9, 16},
		// N=4 grid: every quorum has two remote members.
		{node.MaekawaLight, 4, 6},
		{node.MaekawaHeavy, 4, 10},
	}
	for _, c := range cases {
		if got := TheoreticalMsgsPerEntry(c.p, c.n); got != c.want {
			t.Errorf("TheoreticalMsgsPerEntry(%s, %d) = %v, want %v", c.p, c.n, got, c.want)
		}
	}
}

func TestRenderCompleteRun(t *testing.T) {
	cfg := sim.Config{
		Protocol:     node.RicartAgrawala,
		N:            4,
		K:            2,
		CSDuration:   100 * time.Millisecond,
		NetworkDelay: 10 * time.Millisecond,
	}
	st := metrics.Stats{
		TotalMessages:    12,
		CompletedEntries: 2,
		AvgMsgsPerEntry:  6,
		AvgResponseTime:  300 * time.Millisecond,
		SyncDelay:        20 * time.Millisecond,
		Throughput:       4.2,
	}

	var buf bytes.Buffer
	Render(&buf, cfg, st)
	out := buf.String()

	for _, want := range []string{
		"RESULTS: Ricart-Agrawala",
		"N=4, k=2",
		"system total     : 12 (theory ~12.0)",
		"average per CS   : 6.0 (theory ~6.0)",
		"COMPLETED / ABORTED   : 2 / 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "INCOMPLETE") {
		t.Errorf("complete run rendered incomplete warning:\n%s", out)
	}
}

func TestRenderIncompleteRun(t *testing.T) {
	cfg := sim.Config{
		Protocol:     node.MaekawaLight,
		N:            4,
		K:            2,
		CSDuration:   50 * time.Millisecond,
		NetworkDelay: 10 * time.Millisecond,
	}
	st := metrics.Stats{Aborts: 2, Incomplete: true}

	var buf bytes.Buffer
	Render(&buf, cfg, st)
	out := buf.String()

	if !strings.Contains(out, "INCOMPLETE RUN: 0 of 2") {
		t.Errorf("output missing incomplete warning:\n%s", out)
	}
	if !strings.Contains(out, "circular wait") {
		t.Errorf("output missing deadlock hint:\n%s", out)
	}
}
