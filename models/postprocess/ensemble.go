package postprocess

import "sort"

// Ensemble fuses the detections of two independent detectors.
//
// All detections are grouped by class regardless of their source and each
// class group is fused with FuseBoxes on its own; classes never interact.
// Callers are expected to have applied each source's own confidence floor.
//
// Arguments:
//   - a: Detections from the first detector.
//   - b: Detections from the second detector. May be empty.
//   - iouThreshold: Clustering threshold handed to FuseBoxes.
//
// Returns:
//   - []Detection: Fused detections ordered by ascending class index.
func Ensemble(a, b []Detection, iouThreshold float64) []Detection {
	groups := make(map[int][]Detection)
	for _, d := range a {
		groups[d.Class] = append(groups[d.Class], d)
	}
	for _, d := range b {
		groups[d.Class] = append(groups[d.Class], d)
	}
	if len(groups) == 0 {
		return nil
	}

	classes := make([]int, 0, len(groups))
	for class := range groups {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	var fused []Detection
	for _, class := range classes {
		fused = append(fused, FuseBoxes(groups[class], iouThreshold)...)
	}
	return fused
}
