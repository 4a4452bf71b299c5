// Package classifier decides whether an image contains a human from the fused
// output of two object detectors and two pose estimators.
package classifier

import (
	"fmt"
	"strings"

	"github.com/nvr-ai/go-humansort/models/postprocess"
	"github.com/nvr-ai/go-humansort/pose"
)

// EvidenceKind is the category of signal that justified a human verdict.
type EvidenceKind int

const (
	// EvidencePerson is a large fused person box.
	EvidencePerson EvidenceKind = iota
	// EvidenceFace is a visible face of sufficient size.
	EvidenceFace
	// EvidenceBody is a visible body with enough confident keypoints.
	EvidenceBody
)

func (k EvidenceKind) String() string {
	switch k {
	case EvidencePerson:
		return "person"
	case EvidenceFace:
		return "face"
	case EvidenceBody:
		return "body"
	default:
		return fmt.Sprintf("EvidenceKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in logs and JSON.
func (k EvidenceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Input is everything the classifier needs to know about one image.
type Input struct {
	// Width and Height are the image dimensions in pixels.
	Width, Height int
	// DetectionsA and DetectionsB are the raw detections of each detector.
	DetectionsA, DetectionsB []postprocess.Detection
	// PoseA and PoseB are the pose estimates of each estimator; nil when no pose was found.
	PoseA, PoseB *pose.Pose
}

// imageArea returns the pixel area of the input image.
func (in Input) imageArea() float64 {
	return float64(in.Width) * float64(in.Height)
}

// Evidence is the tagged output of one decision procedure.
type Evidence struct {
	Kind  EvidenceKind
	Score float64
	// Boxes holds the fused person boxes that passed the size gate. Only set
	// for EvidencePerson.
	Boxes []postprocess.Detection
}

// Reason is one entry of a verdict's justification.
type Reason struct {
	Kind  EvidenceKind `json:"kind"`
	Score float64      `json:"score"`
}

func (r Reason) String() string {
	return fmt.Sprintf("%s(%.4f)", r.Kind, r.Score)
}

// Verdict is the classification of one image.
type Verdict struct {
	IsHuman bool     `json:"is_human"`
	Reasons []Reason `json:"reasons"`
}

// Has reports whether the verdict carries evidence of kind k.
func (v Verdict) Has(k EvidenceKind) bool {
	for _, r := range v.Reasons {
		if r.Kind == k {
			return true
		}
	}
	return false
}

func (v Verdict) String() string {
	if !v.IsHuman {
		return "non-human"
	}
	parts := make([]string, len(v.Reasons))
	for i, r := range v.Reasons {
		parts[i] = r.String()
	}
	return "human [" + strings.Join(parts, ", ") + "]"
}
