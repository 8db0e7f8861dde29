// Package timeline merges dosing/event records with observation times into
// one ordered per-individual timeline.
package timeline

import (
	"sort"

	"github.com/pksim/pksim/internal/dataset"
)

type Kind int

const (
	// Observation marks a sampled time: a design time or an evid-0 record.
	Observation Kind = iota
	// Event marks a dose/reset record.
	Event
)

// Point is one entry of the merged timeline. Rec is nil for design times.
// Shadowed is set on an event point whose time coincides with an
// observation point; the observation row at the same instant already
// reports the post-dose state, so the marker row is redundant.
type Point struct {
	Time      float64
	Kind      Kind
	Rec       *dataset.Record
	Augmented bool
	Shadowed  bool
}

// Merge combines design observation times with an individual's data
// records. Order is strictly by time; at equal times events come before
// observations, so doses take effect before the state is reported.
func Merge(obsTimes []float64, recs []dataset.Record) []Point {
	points := make([]Point, 0, len(obsTimes)+len(recs))

	obsAt := make(map[float64]bool, len(obsTimes))
	for _, t := range obsTimes {
		points = append(points, Point{Time: t, Kind: Observation})
		obsAt[t] = true
	}

	for i := range recs {
		rec := &recs[i]
		if rec.Evid == dataset.EvidObservation {
			points = append(points, Point{Time: rec.Time, Kind: Observation, Rec: rec})
			obsAt[rec.Time] = true
			continue
		}
		points = append(points, Point{Time: rec.Time, Kind: Event, Rec: rec})
	}

	for i := range points {
		if points[i].Kind == Event && obsAt[points[i].Time] {
			points[i].Shadowed = true
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Time != points[j].Time {
			return points[i].Time < points[j].Time
		}
		return points[i].Kind == Event && points[j].Kind == Observation
	})

	return points
}
