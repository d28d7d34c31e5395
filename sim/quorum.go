package sim

import (
	"math"
	"sort"
)

// BuildQuorums computes Maekawa voting sets for n nodes. Ids are arranged
// row-major on a k x k grid with k = ceil(sqrt(n)); node i's quorum is
// every id sharing its row or column, plus i itself, clipped to ids < n.
//
// Any two quorums intersect, including on partial grids: for nodes i and
// j with rows ri <= rj, the id ri*k + col(j) is at most j and therefore
// valid, and it lies in i's row and j's column. The construction is pure
// and deterministic; quorums are computed once per run and shared
// read-only.
func BuildQuorums(n int) map[int][]int {
	quorums := make(map[int][]int, n)
	if n <= 0 {
		return quorums
	}
	k := int(math.Ceil(math.Sqrt(float64(n))))
	for i := 0; i < n; i++ {
		row, col := i/k, i%k
		members := map[int]struct{}{i: {}}
		for c := 0; c < k; c++ {
			if m := row*k + c; m < n {
				members[m] = struct{}{}
			}
		}
		for r := 0; r < k; r++ {
			if m := r*k + col; m < n {
				members[m] = struct{}{}
			}
		}
		ids := make([]int, 0, len(members))
		for m := range members {
			ids = append(ids, m)
		}
		sort.Ints(ids)
		quorums[i] = ids
	}
	return quorums
}

// MeanRemoteQuorumSize returns the average number of quorum members a
// requester must contact over the network (its quorum minus itself).
// Used for the theoretical message-cost baselines.
func MeanRemoteQuorumSize(n int) float64 {
	if n <= 0 {
		return 0
	}
	var sum int
	quorums := BuildQuorums(n)
	for _, q := range quorums {
		sum += len(q) - 1
	}
	return float64(sum) / float64(n)
}
