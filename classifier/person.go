package classifier

import (
	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/images"
	"github.com/nvr-ai/go-humansort/models/postprocess"
)

// DetectPerson looks for a person box covering enough of the image.
//
// Each detector's output is cut at its own confidence floor and restricted to
// the person class, both sources are fused with Ensemble, and the fused boxes
// whose area ratio reaches Person.MinAreaRatio are kept. Enabled size, aspect
// and centering gates drop further boxes. The evidence score is the largest
// kept area ratio.
//
// Arguments:
//   - in: The detections and image size of one image.
//   - th: The thresholds to apply.
//
// Returns:
//   - Evidence: Person evidence carrying the kept boxes.
//   - bool: False when no fused box is large enough.
func DetectPerson(in Input, th config.Thresholds) (Evidence, bool) {
	a := postprocess.FilterByClass(postprocess.FilterByScore(in.DetectionsA, th.Person.SourceA), th.PersonClass)
	b := postprocess.FilterByClass(postprocess.FilterByScore(in.DetectionsB, th.Person.SourceB), th.PersonClass)
	if len(a) == 0 && len(b) == 0 {
		return Evidence{}, false
	}

	var kept []postprocess.Detection
	best := 0.0
	for _, d := range postprocess.Ensemble(a, b, th.Person.IoU) {
		ratio := images.AreaRatio(d.Box, in.Width, in.Height)
		if ratio < th.Person.MinAreaRatio || !fitsShape(d.Box, in, th.Person) {
			continue
		}
		kept = append(kept, d)
		best = max(best, ratio)
	}
	if len(kept) == 0 {
		return Evidence{}, false
	}

	return Evidence{Kind: EvidencePerson, Score: best, Boxes: kept}, true
}

// fitsShape applies the enabled optional gates of p to a fused person box.
func fitsShape(box images.Rect, in Input, p config.PersonThresholds) bool {
	if p.MaxAreaRatio > 0 && !images.IsValidSize(box, in.imageArea(), p.MinAreaRatio, p.MaxAreaRatio) {
		return false
	}
	if p.Aspect.Max > 0 && !images.IsValidAspect(box, p.Aspect) {
		return false
	}
	if p.CenterThreshold > 0 && !images.IsCentered(box, float64(in.Width), float64(in.Height), p.CenterThreshold) {
		return false
	}
	return true
}
