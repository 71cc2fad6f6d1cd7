package track

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aisleview/shelfwatch/internal/detect"
)

func TestAssociate_NoTracks(t *testing.T) {
	dets := []detect.Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
		{X1: 20, Y1: 20, X2: 30, Y2: 30},
	}
	a := associate(dets, nil, 0.3)

	if len(a.Matched) != 0 {
		t.Errorf("expected no matches, got %v", a.Matched)
	}
	if len(a.UnmatchedDetection) != 2 {
		t.Errorf("expected 2 unmatched detections, got %v", a.UnmatchedDetection)
	}
	if len(a.UnmatchedTrack) != 0 {
		t.Errorf("expected no unmatched tracks, got %v", a.UnmatchedTrack)
	}
}

func TestAssociate_PerfectOverlap(t *testing.T) {
	box := detect.Box{X1: 10, Y1: 10, X2: 50, Y2: 50}
	a := associate([]detect.Box{box}, []detect.Box{box}, 0.3)

	if len(a.Matched) != 1 {
		t.Fatalf("expected 1 match, got %v", a.Matched)
	}
	if a.Matched[0].Detection != 0 || a.Matched[0].Track != 0 {
		t.Errorf("wrong pairing: %+v", a.Matched[0])
	}
}

func TestAssociate_BelowThresholdDemoted(t *testing.T) {
	// Slight overlap well under the 0.3 floor: both sides go unmatched.
	det := detect.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
	trk := detect.Box{X1: 9, Y1: 9, X2: 19, Y2: 19}
	a := associate([]detect.Box{det}, []detect.Box{trk}, 0.3)

	if len(a.Matched) != 0 {
		t.Errorf("expected no matches below threshold, got %v", a.Matched)
	}
	if len(a.UnmatchedDetection) != 1 || len(a.UnmatchedTrack) != 1 {
		t.Errorf("expected both sides unmatched, got dets=%v tracks=%v",
			a.UnmatchedDetection, a.UnmatchedTrack)
	}
}

func TestAssociate_Partition(t *testing.T) {
	// Two detections, three tracks. Each index must appear exactly once
	// across matched and unmatched sets.
	dets := []detect.Box{
		{X1: 0, Y1: 0, X2: 40, Y2: 40},
		{X1: 100, Y1: 100, X2: 140, Y2: 140},
	}
	trks := []detect.Box{
		{X1: 2, Y1: 2, X2: 42, Y2: 42},
		{X1: 102, Y1: 102, X2: 142, Y2: 142},
		{X1: 500, Y1: 500, X2: 540, Y2: 540},
	}
	a := associate(dets, trks, 0.3)

	seenDet := make(map[int]int)
	seenTrk := make(map[int]int)
	for _, m := range a.Matched {
		seenDet[m.Detection]++
		seenTrk[m.Track]++
	}
	for _, d := range a.UnmatchedDetection {
		seenDet[d]++
	}
	for _, tk := range a.UnmatchedTrack {
		seenTrk[tk]++
	}

	for d := range dets {
		if seenDet[d] != 1 {
			t.Errorf("detection %d appears %d times", d, seenDet[d])
		}
	}
	for tk := range trks {
		if seenTrk[tk] != 1 {
			t.Errorf("track %d appears %d times", tk, seenTrk[tk])
		}
	}

	if len(a.Matched) != 2 {
		t.Errorf("expected 2 matches, got %v", a.Matched)
	}
	if len(a.UnmatchedTrack) != 1 || a.UnmatchedTrack[0] != 2 {
		t.Errorf("expected track 2 unmatched, got %v", a.UnmatchedTrack)
	}
}

func TestAssociate_TwoByTwoExact(t *testing.T) {
	dets := []detect.Box{
		{X1: 0, Y1: 0, X2: 40, Y2: 40},
		{X1: 300, Y1: 300, X2: 340, Y2: 340},
	}
	trks := []detect.Box{
		{X1: 302, Y1: 302, X2: 342, Y2: 342},
		{X1: 2, Y1: 2, X2: 42, Y2: 42},
	}

	got := associate(dets, trks, 0.3)
	want := Assignment{
		Matched: []MatchPair{
			{Detection: 0, Track: 1},
			{Detection: 1, Track: 0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
}

func TestAssociate_PicksBestOverlap(t *testing.T) {
	// One detection overlapping two tracks; the higher-IoU track wins.
	det := detect.Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
	trks := []detect.Box{
		{X1: 50, Y1: 0, X2: 150, Y2: 100}, // IoU 1/3
		{X1: 10, Y1: 0, X2: 110, Y2: 100}, // IoU 0.9/1.1
	}
	a := associate([]detect.Box{det}, trks, 0.3)

	if len(a.Matched) != 1 || a.Matched[0].Track != 1 {
		t.Errorf("expected match to track 1, got %v", a.Matched)
	}
}
