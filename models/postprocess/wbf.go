package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-humansort/images"
)

// FuseBoxes merges same-class detections with Weighted Box Fusion.
//
// Detections are visited in descending confidence order (stable, so ties keep
// their input order). Each unclaimed detection seeds a cluster and claims every
// other unclaimed detection whose IoU with the seed exceeds iouThreshold.
// Members are compared against the seed only, never against each other, so two
// boxes that only overlap the seed still land in the same cluster.
//
// Every cluster yields one detection with Source set to SourceFused:
//   - Box: confidence-weighted mean of each member coordinate.
//   - Score: arithmetic mean of member confidences.
//   - Class: the class of the seed.
//
// Arguments:
//   - detections: Detections of a single class, in any order. Not modified.
//   - iouThreshold: Overlap above which a detection joins the seed's cluster.
//
// Returns:
//   - []Detection: One fused detection per cluster, strongest seed first. Nil for empty input.
func FuseBoxes(detections []Detection, iouThreshold float64) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	order := make([]Detection, n)
	copy(order, detections)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Score > order[j].Score
	})

	claimed := make([]bool, n)
	fused := make([]Detection, 0, n)
	cluster := make([]Detection, 0, n)

	for i := 0; i < n; i++ {
		if claimed[i] {
			continue
		}

		seed := order[i]
		claimed[i] = true
		cluster = append(cluster[:0], seed)

		for j := i + 1; j < n; j++ {
			if claimed[j] {
				continue
			}
			if images.CalculateIoU(seed.Box, order[j].Box) > iouThreshold {
				claimed[j] = true
				cluster = append(cluster, order[j])
			}
		}

		fused = append(fused, fuseCluster(cluster))
	}

	return fused
}

// fuseCluster collapses one cluster into a single fused detection.
func fuseCluster(cluster []Detection) Detection {
	if len(cluster) == 1 {
		single := cluster[0]
		single.Source = SourceFused
		return single
	}

	var sumScore, x1, y1, x2, y2 float64
	for _, d := range cluster {
		sumScore += d.Score
		x1 += d.Score * d.Box.X1
		y1 += d.Score * d.Box.Y1
		x2 += d.Score * d.Box.X2
		y2 += d.Score * d.Box.Y2
	}

	count := float64(len(cluster))
	weight := sumScore
	if weight <= 0 {
		// All-zero confidences: fall back to an unweighted mean.
		x1, y1, x2, y2 = 0, 0, 0, 0
		for _, d := range cluster {
			x1 += d.Box.X1
			y1 += d.Box.Y1
			x2 += d.Box.X2
			y2 += d.Box.Y2
		}
		weight = count
	}

	return Detection{
		Box:    images.Rect{X1: x1 / weight, Y1: y1 / weight, X2: x2 / weight, Y2: y2 / weight},
		Score:  sumScore / count,
		Class:  cluster[0].Class,
		Source: SourceFused,
	}
}
