// Package models - Class label sets of the supported detector families.
package models

import "github.com/pkg/errors"

// ModelFamily is the family of models, which decides how class indices map to labels.
type ModelFamily string

const (
	// ModelFamilyYOLO indexes the 80 COCO labels from zero.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyCOCO indexes the 80 COCO labels from one, with a background at zero.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyVOC is the Pascal VOC label set with a background at zero.
	ModelFamilyVOC ModelFamily = "voc"
)

// PersonLabel is the label every supported family uses for people.
const PersonLabel = "person"

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet ties a model family to its full list of labels.
type OutputClassSet struct {
	Style   ModelFamily
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// newClassSet numbers names from offset.
func newClassSet(style ModelFamily, offset int, names ...string) OutputClassSet {
	classes := make([]OutputClass, len(names))
	for i, name := range names {
		classes[i] = OutputClass{Index: offset + i, Name: name}
	}
	return OutputClassSet{Style: style, Classes: classes}
}

// BuildNameIndexMap builds or rebuilds the name->index map.
func (s *OutputClassSet) BuildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Classes))
	for _, c := range s.Classes {
		s.nameToIdx[c.Name] = c.Index
	}
}

// ClassManager holds all registered class sets.
type ClassManager struct {
	sets map[ModelFamily]*OutputClassSet
}

// NewClassManager initializes and registers the given sets.
func NewClassManager(allSets ...OutputClassSet) *ClassManager {
	mgr := &ClassManager{sets: make(map[ModelFamily]*OutputClassSet, len(allSets))}
	for _, set := range allSets {
		set := set
		set.BuildNameIndexMap()
		mgr.sets[set.Style] = &set
	}
	return mgr
}

// DefaultClassManager registers every built-in class set.
func DefaultClassManager() *ClassManager {
	return NewClassManager(AllClassSets...)
}

// GetName returns the class name for a given style and index.
func (m *ClassManager) GetName(style ModelFamily, idx int) (string, error) {
	set, ok := m.sets[style]
	if !ok {
		return "", errors.Errorf("style %q not registered", style)
	}
	for _, c := range set.Classes {
		if c.Index == idx {
			return c.Name, nil
		}
	}
	return "", errors.Errorf("index %d out of range for style %q", idx, style)
}

// GetIndex returns the class index for a given style and name.
func (m *ClassManager) GetIndex(style ModelFamily, name string) (int, error) {
	set, ok := m.sets[style]
	if !ok {
		return -1, errors.Errorf("style %q not registered", style)
	}
	idx, ok := set.nameToIdx[name]
	if !ok {
		return -1, errors.Errorf("name %q not found in style %q", name, style)
	}
	return idx, nil
}

// PersonIndex returns the index a family uses for people.
//
// Arguments:
//   - style: The model family.
//
// Returns:
//   - int: The person class index.
//   - error: An error if the family is unknown.
//
// @example
// idx, _ := DefaultClassManager().PersonIndex(ModelFamilyVOC) // 15
func (m *ClassManager) PersonIndex(style ModelFamily) (int, error) {
	return m.GetIndex(style, PersonLabel)
}

// Count returns the number of labels of a family, which is the number of
// class scores its detection head carries.
func (m *ClassManager) Count(style ModelFamily) (int, error) {
	set, ok := m.sets[style]
	if !ok {
		return 0, errors.Errorf("style %q not registered", style)
	}
	return len(set.Classes), nil
}

var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra",
	"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

// YOLOClasses is the 80 COCO classes (no background).
// YOLO models index directly into this zero-based list.
var YOLOClasses = newClassSet(ModelFamilyYOLO, 0, cocoNames...)

// COCOClasses is the 80 COCO classes plus "__background__" at index 0.
var COCOClasses = newClassSet(ModelFamilyCOCO, 0, append([]string{"__background__"}, cocoNames...)...)

// PascalVOCClasses is the 20 Pascal VOC classes + "__background__" at index 0.
var PascalVOCClasses = newClassSet(ModelFamilyVOC, 0,
	"__background__", "aeroplane", "bicycle", "bird", "boat", "bottle", "bus",
	"car", "cat", "chair", "cow", "diningtable", "dog", "horse", "motorbike",
	"person", "pottedplant", "sheep", "sofa", "train", "tvmonitor",
)

// AllClassSets collects every OutputClassSet in one place.
var AllClassSets = []OutputClassSet{
	YOLOClasses,
	COCOClasses,
	PascalVOCClasses,
}
