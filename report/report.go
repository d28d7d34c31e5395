// Package report renders the aggregated statistics of a run next to the
// theoretical baselines of each protocol.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/DennisHuamanYrigoin/sdis-maekawa/metrics"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/node"
	"github.com/DennisHuamanYrigoin/sdis-maekawa/sim"
)

const lineWidth = 70

// TheoreticalMsgsPerEntry returns the expected message cost of one
// critical-section entry: 2(N-1) for Ricart-Agrawala; roughly 3 and 5
// times the mean remote quorum size for Maekawa light and heavy demand
// (request/locked/release, plus inquire/relinquish/failed traffic).
func TheoreticalMsgsPerEntry(p node.Protocol, n int) float64 {
	switch p {
	case node.RicartAgrawala:
		return 2 * float64(n-1)
	case node.MaekawaLight:
		return 3 * sim.MeanRemoteQuorumSize(n)
	case node.MaekawaHeavy:
		return 5 * sim.MeanRemoteQuorumSize(n)
	}
	return 0
}

// Render writes the metrics block for one finished run.
func Render(w io.Writer, cfg sim.Config, st metrics.Stats) {
	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)
	perEntry := TheoreticalMsgsPerEntry(cfg.Protocol, cfg.N)

	fmt.Fprintf(w, "\n%s\n RESULTS: %s\n%s\n", rule, cfg.Protocol, rule)
	fmt.Fprintf(w, "Configuration: N=%d, k=%d, E=%v, delay=%v\n",
		cfg.N, cfg.K, cfg.CSDuration, cfg.NetworkDelay)
	fmt.Fprintln(w, thin)
	fmt.Fprintln(w, "[1] MESSAGE COMPLEXITY")
	fmt.Fprintf(w, "    system total     : %d (theory ~%.1f)\n",
		st.TotalMessages, perEntry*float64(cfg.K))
	fmt.Fprintf(w, "    average per CS   : %.1f (theory ~%.1f)\n",
		st.AvgMsgsPerEntry, perEntry)
	fmt.Fprintln(w, thin)
	fmt.Fprintf(w, "[2] SYNCHRONIZATION DELAY : %.4fs\n", st.SyncDelay.Seconds())
	fmt.Fprintf(w, "[3] AVG RESPONSE TIME     : %.4fs\n", st.AvgResponseTime.Seconds())
	fmt.Fprintf(w, "[4] THROUGHPUT            : %.4f entries/s\n", st.Throughput)
	fmt.Fprintf(w, "[5] COMPLETED / ABORTED   : %d / %d\n", st.CompletedEntries, st.Aborts)
	if st.Incomplete {
		fmt.Fprintln(w, thin)
		fmt.Fprintf(w, "!!! INCOMPLETE RUN: %d of %d requesters entered the CS\n",
			st.CompletedEntries, cfg.K)
		fmt.Fprintln(w, "!!! remaining attempts timed out (likely circular wait)")
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}
