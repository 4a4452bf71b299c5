// Package pose provides the COCO-17 body keypoint schema, keypoint fusion
// across two pose sources and the area estimators built on top of them.
package pose

import (
	"fmt"
	"math"
)

// Index identifies an anatomical keypoint in the COCO-17 schema.
type Index int

// Keypoint indices following the COCO convention shared by YOLO-pose models.
const (
	Nose Index = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	NumKeypoints
)

var indexNames = [NumKeypoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

func (i Index) String() string {
	if i < 0 || i >= NumKeypoints {
		return fmt.Sprintf("Index(%d)", int(i))
	}
	return indexNames[i]
}

// EssentialKeypoints gate body evidence. Wrists are left out, pose models
// place them poorly.
var EssentialKeypoints = []Index{
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// BodyAreaKeypoints span the body bounding area (no elbows, no wrists).
var BodyAreaKeypoints = []Index{
	LeftShoulder, RightShoulder,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// Keypoint is a single landmark in absolute pixel coordinates.
// A confidence of 0 marks the keypoint as missing.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Present reports whether the keypoint carries any confidence.
func (k Keypoint) Present() bool {
	return k.Confidence > 0
}

// Pose is one pose estimate: every keypoint of the schema, in index order.
// A source that found no pose is represented by a nil *Pose, never by a
// shorter array.
type Pose [NumKeypoints]Keypoint

// At returns the keypoint at i.
func (p *Pose) At(i Index) Keypoint {
	return p[i]
}

// distance calculates the Euclidean distance between two keypoints.
func distance(a, b Keypoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// CountConfident counts the keypoints in idx whose confidence is at least threshold.
// A nil pose has no confident keypoints.
func CountConfident(p *Pose, idx []Index, threshold float64) int {
	if p == nil {
		return 0
	}
	count := 0
	for _, i := range idx {
		if p[i].Confidence >= threshold {
			count++
		}
	}
	return count
}
