package dixon

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// Rank returns an ascending copy of values. The input is never modified.
func Rank(values []float64) []float64 {
	ranked := make(stats.Float64Data, len(values))
	copy(ranked, values)
	sort.Sort(ranked)
	return ranked
}
