package track

import "github.com/aisleview/shelfwatch/internal/detect"

// MatchPair associates a detection index with a track index.
type MatchPair struct {
	Detection int
	Track     int
}

// Assignment partitions one cycle's detections and predicted track boxes
// into matched pairs and leftovers. Indices refer to the input slices;
// every index appears exactly once across the three sets.
type Assignment struct {
	Matched            []MatchPair
	UnmatchedDetection []int
	UnmatchedTrack     []int
}

// associate solves detection-to-track assignment by maximising total IoU.
// The cost matrix holds negated IoU so the minimum-cost solver yields the
// maximum-overlap matching; accepted pairs must clear iouThreshold or they
// are demoted to unmatched on both sides.
func associate(detections, predicted []detect.Box, iouThreshold float64) Assignment {
	if len(predicted) == 0 {
		a := Assignment{}
		for d := range detections {
			a.UnmatchedDetection = append(a.UnmatchedDetection, d)
		}
		return a
	}

	iou := make([][]float64, len(detections))
	cost := make([][]float64, len(detections))
	for d, db := range detections {
		iou[d] = make([]float64, len(predicted))
		cost[d] = make([]float64, len(predicted))
		for t, tb := range predicted {
			iou[d][t] = detect.IoU(db, tb)
			cost[d][t] = -iou[d][t]
		}
	}

	assign := hungarianAssign(cost)

	a := Assignment{}
	trackMatched := make([]bool, len(predicted))
	for d, t := range assign {
		if t < 0 {
			a.UnmatchedDetection = append(a.UnmatchedDetection, d)
			continue
		}
		if iou[d][t] < iouThreshold {
			// Below the acceptance floor: treat both sides as unmatched.
			a.UnmatchedDetection = append(a.UnmatchedDetection, d)
			continue
		}
		a.Matched = append(a.Matched, MatchPair{Detection: d, Track: t})
		trackMatched[t] = true
	}

	for t := range predicted {
		if !trackMatched[t] {
			a.UnmatchedTrack = append(a.UnmatchedTrack, t)
		}
	}

	return a
}
