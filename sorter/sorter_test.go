package sorter

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/nvr-ai/go-humansort/classifier"
	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/images"
	"github.com/nvr-ai/go-humansort/inference/detectors"
	"github.com/nvr-ai/go-humansort/models/postprocess"
	"github.com/nvr-ai/go-humansort/pose"
	"github.com/nvr-ai/go-humansort/profiler"
	"github.com/nvr-ai/go-humansort/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// humanSide is the width of test images the fake detectors see a person in.
const humanSide = 100

type fakeDetector struct {
	failWidth int
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image) ([]postprocess.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := img.Bounds().Dx()
	if f.failWidth != 0 && w == f.failWidth {
		return nil, errors.New("inference failed")
	}
	if w != humanSide {
		return nil, nil
	}
	return []postprocess.Detection{{
		Box:   images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 90},
		Score: 0.9,
		Class: 0,
	}}, nil
}

func (f *fakeDetector) Close() error { return nil }

type fakePose struct{}

func (fakePose) Estimate(ctx context.Context, img image.Image) (*pose.Pose, error) {
	return nil, ctx.Err()
}

func (fakePose) Close() error { return nil }

func writePNG(t *testing.T, path string, side int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

type dirs struct {
	input, human, nonHuman string
}

func setup(t *testing.T) dirs {
	t.Helper()
	root := t.TempDir()
	d := dirs{
		input:    filepath.Join(root, "inbox"),
		human:    filepath.Join(root, "human"),
		nonHuman: filepath.Join(root, "non_human"),
	}
	require.NoError(t, os.Mkdir(d.input, 0o755))

	writePNG(t, filepath.Join(d.input, "a.png"), humanSide)
	writePNG(t, filepath.Join(d.input, "b.png"), humanSide)
	writePNG(t, filepath.Join(d.input, "c.png"), 50)
	require.NoError(t, os.WriteFile(filepath.Join(d.input, "broken.jpg"), []byte("not an image"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d.input, "notes.txt"), []byte("skip me"), 0o644))
	return d
}

func newSorter(t *testing.T, d dirs, dryRun bool, journal Recorder, detectorB *fakeDetector) *Sorter {
	t.Helper()
	c, err := classifier.New(config.DefaultThresholds(), nil)
	require.NoError(t, err)
	if detectorB == nil {
		detectorB = &fakeDetector{}
	}

	s, err := New(Options{
		Models: &detectors.Set{
			DetectorA: &fakeDetector{},
			DetectorB: detectorB,
			PoseA:     fakePose{},
			PoseB:     fakePose{},
		},
		Classifier: c,
		Config: config.SorterConfig{
			InputDir:    d.input,
			HumanDir:    d.human,
			NonHumanDir: d.nonHuman,
			Workers:     3,
			DryRun:      dryRun,
		},
		Journal: journal,
		Timings: profiler.New(0),
	})
	require.NoError(t, err)
	return s
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestSorter_Run(t *testing.T) {
	d := setup(t)
	journal, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	s := newSorter(t, d, false, journal, nil)
	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Human)
	assert.Equal(t, 1, summary.NonHuman)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, []string{"a.png", "b.png"}, listNames(t, d.human))
	assert.Equal(t, []string{"c.png"}, listNames(t, d.nonHuman))
	assert.Equal(t, []string{"broken.jpg", "notes.txt"}, listNames(t, d.input), "failed images stay in place")

	run, err := journal.GetRun(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{Total: 4, Human: 2, NonHuman: 1, Failed: 1}, run.Counts)

	entries, err := journal.Verdicts(summary.RunID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byPath := make(map[string]store.Entry, len(entries))
	for _, e := range entries {
		byPath[filepath.Base(e.Path)] = e
	}
	assert.True(t, byPath["a.png"].IsHuman)
	require.Len(t, byPath["a.png"].Reasons, 1)
	assert.Equal(t, "person", byPath["a.png"].Reasons[0].Kind)
	assert.InDelta(t, 0.9, byPath["a.png"].Reasons[0].Score, 1e-9)
	assert.Empty(t, byPath["c.png"].Reasons)
	assert.Equal(t, filepath.Join(d.human, "a.png"), byPath["a.png"].Destination)
	assert.False(t, byPath["c.png"].IsHuman)
	assert.NotEmpty(t, byPath["broken.jpg"].Error)

	kinds, err := journal.ReasonCounts(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"person": 2}, kinds)
}

func TestSorter_DryRun(t *testing.T) {
	d := setup(t)
	s := newSorter(t, d, true, nil, nil)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 4, Human: 2, NonHuman: 1, Failed: 1}, summary)

	assert.Equal(t, []string{"a.png", "b.png", "broken.jpg", "c.png", "notes.txt"}, listNames(t, d.input))
	_, err = os.Stat(d.human)
	assert.True(t, os.IsNotExist(err), "dry run creates no directories")
}

func TestSorter_NameCollision(t *testing.T) {
	d := setup(t)
	require.NoError(t, os.Mkdir(d.human, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d.human, "a.png"), []byte("earlier run"), 0o644))

	s := newSorter(t, d, false, nil, nil)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png", "a_1.png", "b.png"}, listNames(t, d.human))
	kept, err := os.ReadFile(filepath.Join(d.human, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "earlier run", string(kept))
}

func TestSorter_DetectorFailureIsIsolated(t *testing.T) {
	d := setup(t)
	s := newSorter(t, d, false, nil, &fakeDetector{failWidth: 50})

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Human)
	assert.Equal(t, 0, summary.NonHuman)
	assert.Equal(t, 2, summary.Failed)
	assert.Contains(t, listNames(t, d.input), "c.png")
}

func TestSorter_Cancelled(t *testing.T) {
	d := setup(t)
	s := newSorter(t, d, false, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Total)
}

func TestSorter_RecordsTimings(t *testing.T) {
	d := setup(t)
	s := newSorter(t, d, true, nil, nil)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	stages := map[string]int64{}
	for _, st := range s.opts.Timings.Snapshot() {
		stages[st.Name] = st.Count
	}
	assert.Equal(t, int64(4), stages["decode"])
	assert.Equal(t, int64(3), stages["classify"])
	assert.NotContains(t, stages, "move")
}

func TestNew_Validation(t *testing.T) {
	c, err := classifier.New(config.DefaultThresholds(), nil)
	require.NoError(t, err)
	models := &detectors.Set{DetectorA: &fakeDetector{}, DetectorB: &fakeDetector{}, PoseA: fakePose{}, PoseB: fakePose{}}
	cfg := config.SorterConfig{HumanDir: "h", NonHumanDir: "n"}

	_, err = New(Options{Classifier: c, Config: cfg})
	assert.Error(t, err, "missing models")

	_, err = New(Options{Models: &detectors.Set{DetectorA: &fakeDetector{}}, Classifier: c, Config: cfg})
	assert.Error(t, err, "partial models")

	_, err = New(Options{Models: models, Config: cfg})
	assert.Error(t, err, "missing classifier")

	_, err = New(Options{Models: models, Classifier: c})
	assert.Error(t, err, "missing directories")

	_, err = New(Options{Models: models, Classifier: c, Config: cfg})
	assert.NoError(t, err)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	p, err := uniquePath(dir, "x.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x.jpg"), p)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.jpg"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x_1.jpg"), nil, 0o644))

	p, err = uniquePath(dir, "x.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x_2.jpg"), p)
}
