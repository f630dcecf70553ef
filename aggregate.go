package nkdvprep

import (
	"sort"

	"github.com/pkg/errors"
)

// EdgeRecord is edge joined with all observations assigned to it
type EdgeRecord struct {
	Key    EdgeKey
	Length float64
	// Offsets in ascending order. Equal offsets keep input order of points
	Offsets []float64
	// Input indices of points which produced Offsets (same order)
	Points []int
}

// Count returns number of observations
func (record *EdgeRecord) Count() int {
	return len(record.Offsets)
}

// edgesOrder returns positions of edges sorted by (U, V). Parallel edges keep their relative order
func edgesOrder(edges []*Edge) []int {
	order := make([]int, len(edges))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return edges[order[i]].Key.Less(edges[order[j]].Key)
	})
	return order
}

type observation struct {
	offset float64
	index  int
}

// Aggregate groups projections by edge and returns exactly one record per given edge, sorted by (U, V).
//
// Edges of the same unordered pair {U, V} form one group: its observations are attached to the first record of the group
// and the rest of records get empty sequences. Offsets of projections made in opposite direction to the owning record are flipped
func Aggregate(edges []*Edge, projections []Projection) ([]EdgeRecord, error) {
	order := edgesOrder(edges)
	owners := make(map[EdgeKey]int, len(edges))
	for pos, edgeIdx := range order {
		unordered := edges[edgeIdx].Key.Unordered()
		if _, ok := owners[unordered]; !ok {
			owners[unordered] = pos
		}
	}

	groups := make(map[int][]observation)
	for _, projection := range projections {
		pos, ok := owners[projection.Key.Unordered()]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "edge %s of point %d", projection.Key, projection.Index)
		}
		owner := edges[order[pos]]
		offset := projection.Offset
		if projection.Key.U != owner.Key.U {
			offset = owner.ChordLength() - offset
			if offset < 0 {
				offset = 0
			}
		}
		groups[pos] = append(groups[pos], observation{offset: offset, index: projection.Index})
	}

	records := make([]EdgeRecord, len(order))
	for pos, edgeIdx := range order {
		edge := edges[edgeIdx]
		observations := groups[pos]
		sort.SliceStable(observations, func(i, j int) bool {
			if observations[i].offset != observations[j].offset {
				return observations[i].offset < observations[j].offset
			}
			return observations[i].index < observations[j].index
		})
		record := EdgeRecord{
			Key:     edge.Key,
			Length:  edge.Length,
			Offsets: make([]float64, len(observations)),
			Points:  make([]int, len(observations)),
		}
		for i, obs := range observations {
			record.Offsets[i] = obs.offset
			record.Points[i] = obs.index
		}
		records[pos] = record
	}
	return records, nil
}
