package rules

import "github.com/NERVsystems/ridecore/pkg/graph"

// Candidate is one fork option scored by the RuleEngine, carrying just
// enough of the segment's identity for tie-breaking.
type Candidate struct {
	Segment graph.SegmentID
	LengthM float64
	Verdict Verdict
}

// PickBest selects the winning candidate among non-avoided options: the
// highest weight wins, ties broken by lower segment id, then by shorter
// length. It returns -1 if every candidate is avoided or cands is empty.
func PickBest(cands []Candidate) int {
	best := -1
	for i, c := range cands {
		if c.Verdict.Avoid {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if better(c, cands[best]) {
			best = i
		}
	}
	return best
}

func better(a, b Candidate) bool {
	if a.Verdict.Weight != b.Verdict.Weight {
		return a.Verdict.Weight > b.Verdict.Weight
	}
	if a.Segment != b.Segment {
		return a.Segment < b.Segment
	}
	return a.LengthM < b.LengthM
}
