package inference

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DNN is a Runner backed by the OpenCV dnn module.
type DNN struct {
	mu   sync.Mutex
	net  *gocv.Net
	blob gocv.Mat
	size image.Point
}

// NewDNN loads an ONNX model into OpenCV.
//
// Arguments:
//   - modelPath: The ONNX model file.
//   - inputSize: The square input side in pixels.
//
// Returns:
//   - *DNN: The runner.
//   - error: An error if the model cannot be read.
func NewDNN(modelPath string, inputSize int) (*DNN, error) {
	if inputSize <= 0 {
		return nil, errors.Errorf("invalid input size %d", inputSize)
	}
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, errors.Errorf("error reading network from %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "error setting dnn backend")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "error setting dnn target")
	}

	return &DNN{
		net:  &net,
		blob: gocv.NewMatWithSizes([]int{1, 3, inputSize, inputSize}, gocv.MatTypeCV32F),
		size: image.Pt(inputSize, inputSize),
	}, nil
}

// InputSize returns the model input size.
func (d *DNN) InputSize() image.Point {
	return d.size
}

// Run feeds input through the network and returns a copy of the output.
func (d *DNN) Run(input []float32) ([]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.net == nil {
		return nil, ErrNotInitialized
	}
	dst, err := d.blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "error accessing input blob")
	}
	if len(input) != len(dst) {
		return nil, errors.Errorf("input has %d floats, network expects %d", len(input), len(dst))
	}
	copy(dst, input)

	d.net.SetInput(d.blob, "")
	out := d.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "error reading network output")
	}
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

// Close releases the network and its input blob.
func (d *DNN) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.net == nil {
		return nil
	}
	d.blob.Close()
	err := d.net.Close()
	d.net = nil
	return err
}
