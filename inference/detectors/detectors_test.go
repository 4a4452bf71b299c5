package detectors

import (
	"context"
	"image"
	"testing"

	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/images"
	"github.com/nvr-ai/go-humansort/models/postprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	size   image.Point
	output []float32
	err    error
	closed bool
	inputs int
}

func (f *fakeRunner) InputSize() image.Point { return f.size }

func (f *fakeRunner) Run(input []float32) ([]float32, error) {
	f.inputs = len(input)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float32, len(f.output))
	copy(out, f.output)
	return out, nil
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

// channelMajor lays out per-anchor rows the way a YOLO head exports them.
func channelMajor(rows [][]float32) []float32 {
	channels := len(rows[0])
	out := make([]float32, 0, channels*len(rows))
	for c := 0; c < channels; c++ {
		for _, row := range rows {
			out = append(out, row[c])
		}
	}
	return out
}

// testImage is 64x32; with a 32x32 model input it scales x by 2 and y by 1.
func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 32))
}

func TestAnchorRows(t *testing.T) {
	rows, anchors, err := anchorRows([]float32{1, 2, 3, 4, 5, 6}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, anchors)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, rows)

	_, _, err = anchorRows([]float32{1, 2, 3}, 2)
	assert.Error(t, err)

	rows, anchors, err = anchorRows([]float32{7, 8}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, anchors)
	assert.Equal(t, []float32{7, 8}, rows)
}

func TestAnchorRows_Transpose(t *testing.T) {
	want := [][]float32{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{10, 11, 12},
	}

	rows, anchors, err := anchorRows(channelMajor(want), 3)
	require.NoError(t, err)
	assert.Equal(t, 4, anchors)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, rows)
}

func TestYOLODetector_Detect(t *testing.T) {
	runner := &fakeRunner{
		size: image.Pt(32, 32),
		output: channelMajor([][]float32{
			{8, 8, 4, 4, 0.9, 0.1},
			{8.5, 8, 4, 4, 0.8, 0.05},
			{24, 16, 8, 8, 0.1, 0.6},
			{10, 10, 4, 4, 0.1, 0.2},
		}),
	}
	cfg := DefaultConfig()
	cfg.Classes = 2
	cfg.Source = postprocess.SourceB

	detector := NewYOLODetector(runner, cfg)
	got, err := detector.Detect(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, 3*32*32, runner.inputs)

	require.Len(t, got, 2)
	assert.Equal(t, images.Rect{X1: 12, Y1: 6, X2: 20, Y2: 10}, got[0].Box)
	assert.InDelta(t, 0.9, got[0].Score, 1e-6)
	assert.Equal(t, 0, got[0].Class)
	assert.Equal(t, postprocess.SourceB, got[0].Source)

	assert.Equal(t, images.Rect{X1: 40, Y1: 12, X2: 56, Y2: 20}, got[1].Box)
	assert.InDelta(t, 0.6, got[1].Score, 1e-6)
	assert.Equal(t, 1, got[1].Class)

	require.NoError(t, detector.Close())
	assert.True(t, runner.closed)
}

func TestYOLODetector_ClampsToImage(t *testing.T) {
	runner := &fakeRunner{
		size:   image.Pt(32, 32),
		output: channelMajor([][]float32{{2, 30, 8, 8, 0.9}}),
	}
	cfg := DefaultConfig()
	cfg.Classes = 1

	got, err := NewYOLODetector(runner, cfg).Detect(context.Background(), testImage())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, images.Rect{X1: 0, Y1: 26, X2: 12, Y2: 32}, got[0].Box)
}

func TestYOLODetector_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Classes = 1

	t.Run("runner failure", func(t *testing.T) {
		boom := errors.New("boom")
		runner := &fakeRunner{size: image.Pt(32, 32), err: boom}
		_, err := NewYOLODetector(runner, cfg).Detect(context.Background(), testImage())
		assert.Equal(t, boom, errors.Cause(err))
	})

	t.Run("malformed head", func(t *testing.T) {
		runner := &fakeRunner{size: image.Pt(32, 32), output: []float32{1, 2, 3, 4, 5, 6, 7}}
		_, err := NewYOLODetector(runner, cfg).Detect(context.Background(), testImage())
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		runner := &fakeRunner{size: image.Pt(32, 32)}
		_, err := NewYOLODetector(runner, cfg).Detect(ctx, testImage())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, runner.inputs)
	})
}

func poseRow(score float32, conf float32) []float32 {
	row := make([]float32, PoseChannels)
	copy(row, []float32{16, 16, 8, 16, score})
	for k := 0; k < 17; k++ {
		row[5+k*3] = float32(k)
		row[5+k*3+1] = float32(2 * k)
		row[5+k*3+2] = conf
	}
	return row
}

func TestYOLOPose_Estimate(t *testing.T) {
	runner := &fakeRunner{
		size:   image.Pt(32, 32),
		output: channelMajor([][]float32{poseRow(0.4, 0.2), poseRow(0.9, 0.5)}),
	}

	got, err := NewYOLOPose(runner, 0.25).Estimate(context.Background(), testImage())
	require.NoError(t, err)
	require.NotNil(t, got)
	for k, kp := range got {
		assert.Equal(t, float64(2*k), kp.X, "keypoint %d x", k)
		assert.Equal(t, float64(2*k), kp.Y, "keypoint %d y", k)
		assert.Equal(t, 0.5, kp.Confidence, "keypoint %d confidence", k)
	}
}

func TestYOLOPose_BelowFloor(t *testing.T) {
	runner := &fakeRunner{
		size:   image.Pt(32, 32),
		output: channelMajor([][]float32{poseRow(0.1, 0.9), poseRow(0.2, 0.9)}),
	}

	got, err := NewYOLOPose(runner, 0.25).Estimate(context.Background(), testImage())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenRunner_UnsupportedBackend(t *testing.T) {
	_, err := OpenRunner(config.ModelConfig{Path: "m.onnx", Backend: "tflite", InputSize: 640}, "", 84)
	assert.Error(t, err)
}

func TestOpen_UnknownFamily(t *testing.T) {
	cfg := config.Default().Models
	cfg.Family = "imagenet"

	set, err := Open(cfg)
	assert.Nil(t, set)
	assert.ErrorContains(t, err, "imagenet")
}

func TestSet_Close(t *testing.T) {
	a, b := &fakeRunner{}, &fakeRunner{}
	set := &Set{
		DetectorA: NewYOLODetector(a, DefaultConfig()),
		PoseB:     NewYOLOPose(b, 0.25),
	}

	require.NoError(t, set.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
