// Package sorter routes image files into human and non-human directories.
package sorter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/nvr-ai/go-humansort/classifier"
	"github.com/nvr-ai/go-humansort/config"
	"github.com/nvr-ai/go-humansort/images"
	"github.com/nvr-ai/go-humansort/inference/detectors"
	"github.com/nvr-ai/go-humansort/profiler"
	"github.com/nvr-ai/go-humansort/store"
	"github.com/nvr-ai/go-humansort/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.01f%%" "?"}} {{etime . "%s elapsed"}} {{rtime . "%s remain" "%s total" "???"}}`

// Recorder persists run outcomes. *store.Journal implements it.
type Recorder interface {
	BeginRun(inputDir string, dryRun bool) (string, error)
	Record(runID string, e store.Entry) error
	FinishRun(runID string, counts store.Counts) error
}

// Summary counts the outcomes of one run.
type Summary struct {
	RunID    string
	Total    int
	Human    int
	NonHuman int
	Failed   int
}

// Options wires a Sorter to its collaborators.
type Options struct {
	// Models are the two detectors and two pose estimators. Required.
	Models *detectors.Set
	// Classifier turns model outputs into a verdict. Required.
	Classifier *classifier.Classifier
	// Config is the directory routing configuration.
	Config config.SorterConfig
	// Journal records every verdict. Optional.
	Journal Recorder
	// Timings collects per-stage durations. Optional.
	Timings *profiler.Timings
	// Log receives per-image results. Nil discards logs.
	Log logrus.FieldLogger
	// ProgressOutput is where the progress bar is drawn when enabled. Nil uses stderr.
	ProgressOutput io.Writer
}

// Sorter classifies every image of a directory and moves it into place.
type Sorter struct {
	opts Options
	log  logrus.FieldLogger
	// moveMu serializes picking a free destination name and renaming into it.
	moveMu sync.Mutex
}

// outcome is the result of one image.
type outcome struct {
	entry   store.Entry
	verdict classifier.Verdict
	err     error
}

// New validates opts and creates a sorter.
func New(opts Options) (*Sorter, error) {
	if opts.Models == nil || opts.Models.DetectorA == nil || opts.Models.DetectorB == nil ||
		opts.Models.PoseA == nil || opts.Models.PoseB == nil {
		return nil, errors.New("sorter needs both detectors and both pose estimators")
	}
	if opts.Classifier == nil {
		return nil, errors.New("sorter needs a classifier")
	}
	if opts.Config.HumanDir == "" || opts.Config.NonHumanDir == "" {
		return nil, errors.New("sorter needs human and non-human directories")
	}
	if opts.Timings == nil {
		opts.Timings = profiler.New(0)
	}
	log := opts.Log
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Sorter{opts: opts, log: log}, nil
}

// Run sorts every image file directly inside the input directory.
//
// Each image is decoded, passed through both detectors and both pose
// estimators, classified and moved into the human or non-human directory.
// A failure on one image is logged, counted and leaves the file in place;
// the remaining images are still processed.
//
// Arguments:
//   - ctx: Stops handing out new images when done.
//
// Returns:
//   - Summary: Outcome counts of the images that were processed.
//   - error: An error if the run could not start, or ctx.Err() if it was cut short.
func (s *Sorter) Run(ctx context.Context) (Summary, error) {
	cfg := s.opts.Config
	files, err := util.ListImageFiles(cfg.InputDir)
	if err != nil {
		return Summary{}, err
	}
	if !cfg.DryRun {
		for _, dir := range []string{cfg.HumanDir, cfg.NonHumanDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Summary{}, errors.Wrapf(err, "create %s", dir)
			}
		}
	}

	var summary Summary
	if s.opts.Journal != nil {
		if summary.RunID, err = s.opts.Journal.BeginRun(cfg.InputDir, cfg.DryRun); err != nil {
			return Summary{}, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"input":   cfg.InputDir,
		"images":  len(files),
		"workers": cfg.Workers,
		"dry_run": cfg.DryRun,
		"run_id":  summary.RunID,
	}).Info("starting run")

	var bar *pb.ProgressBar
	if cfg.Progress && len(files) > 0 {
		bar = pb.ProgressBarTemplate(progressTemplate).New(len(files))
		if s.opts.ProgressOutput != nil {
			bar.SetWriter(s.opts.ProgressOutput)
		}
		bar.Set("prefix", "sorting")
		bar.Start()
	}

	results := make(chan outcome)
	var collect sync.WaitGroup
	collect.Add(1)
	go func() {
		defer collect.Done()
		for o := range results {
			s.tally(&summary, o)
			if bar != nil {
				bar.Increment()
			}
		}
	}()

	jobs := make(chan util.ImageFile)
	var wg sync.WaitGroup
	workers := max(1, min(cfg.Workers, len(files)))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				results <- s.process(ctx, f)
			}
		}()
	}

	var runErr error
dispatch:
	for _, f := range files {
		if runErr = ctx.Err(); runErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		case jobs <- f:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	collect.Wait()

	if bar != nil {
		bar.Finish()
	}

	if s.opts.Journal != nil {
		counts := store.Counts{
			Total:    summary.Total,
			Human:    summary.Human,
			NonHuman: summary.NonHuman,
			Failed:   summary.Failed,
		}
		if err := s.opts.Journal.FinishRun(summary.RunID, counts); err != nil && runErr == nil {
			runErr = err
		}
	}

	s.log.WithFields(logrus.Fields{
		"total":     summary.Total,
		"human":     summary.Human,
		"non_human": summary.NonHuman,
		"failed":    summary.Failed,
	}).Info("run finished")

	return summary, runErr
}

// tally counts and journals one outcome. Only the collector goroutine calls it.
func (s *Sorter) tally(summary *Summary, o outcome) {
	summary.Total++
	switch {
	case o.err != nil:
		summary.Failed++
	case o.verdict.IsHuman:
		summary.Human++
	default:
		summary.NonHuman++
	}

	if s.opts.Journal != nil {
		if err := s.opts.Journal.Record(summary.RunID, o.entry); err != nil {
			s.log.WithError(err).WithField("path", o.entry.Path).Warn("failed to journal verdict")
		}
	}
}

// process classifies and moves one image. Errors are returned in the outcome.
func (s *Sorter) process(ctx context.Context, f util.ImageFile) outcome {
	start := time.Now()
	log := s.log.WithField("path", f.Path)

	verdict, err := s.classify(ctx, f.Path)
	if err != nil {
		log.WithError(err).Warn("failed to classify image")
		return outcome{entry: store.Entry{Path: f.Path, Error: err.Error()}, err: err}
	}

	entry := store.Entry{
		Path:    f.Path,
		IsHuman: verdict.IsHuman,
		Reasons: make([]store.Reason, 0, len(verdict.Reasons)),
	}
	for _, r := range verdict.Reasons {
		entry.Reasons = append(entry.Reasons, store.Reason{Kind: r.Kind.String(), Score: r.Score})
	}

	entry.Destination, err = s.route(f.Path, verdict.IsHuman)
	if err != nil {
		log.WithError(err).Warn("failed to move image")
		entry.Error = err.Error()
		return outcome{entry: entry, verdict: verdict, err: err}
	}

	log.WithFields(logrus.Fields{
		"is_human":    verdict.IsHuman,
		"verdict":     verdict.String(),
		"destination": entry.Destination,
		"elapsed":     time.Since(start).Truncate(time.Millisecond),
	}).Info("sorted image")
	return outcome{entry: entry, verdict: verdict}
}

// classify decodes one image and runs every model and the classifier on it.
func (s *Sorter) classify(ctx context.Context, path string) (classifier.Verdict, error) {
	timings := s.opts.Timings
	models := s.opts.Models

	done := timings.StartOperation("decode")
	img, err := images.Decode(path)
	done()
	if err != nil {
		return classifier.Verdict{}, err
	}
	bounds := img.Bounds()
	in := classifier.Input{Width: bounds.Dx(), Height: bounds.Dy()}

	done = timings.StartOperation("detect_a")
	in.DetectionsA, err = models.DetectorA.Detect(ctx, img)
	done()
	if err != nil {
		return classifier.Verdict{}, errors.Wrap(err, "detector a")
	}

	done = timings.StartOperation("detect_b")
	in.DetectionsB, err = models.DetectorB.Detect(ctx, img)
	done()
	if err != nil {
		return classifier.Verdict{}, errors.Wrap(err, "detector b")
	}

	done = timings.StartOperation("pose_a")
	in.PoseA, err = models.PoseA.Estimate(ctx, img)
	done()
	if err != nil {
		return classifier.Verdict{}, errors.Wrap(err, "pose estimator a")
	}

	done = timings.StartOperation("pose_b")
	in.PoseB, err = models.PoseB.Estimate(ctx, img)
	done()
	if err != nil {
		return classifier.Verdict{}, errors.Wrap(err, "pose estimator b")
	}

	done = timings.StartOperation("classify")
	verdict := s.opts.Classifier.Classify(in)
	done()
	return verdict, nil
}

// route moves path into its destination directory and returns the new path.
// In dry-run mode nothing moves and the would-be destination is returned.
func (s *Sorter) route(path string, human bool) (string, error) {
	cfg := s.opts.Config
	dir := cfg.NonHumanDir
	if human {
		dir = cfg.HumanDir
	}
	if cfg.DryRun {
		return filepath.Join(dir, filepath.Base(path)), nil
	}

	defer s.opts.Timings.StartOperation("move")()

	s.moveMu.Lock()
	defer s.moveMu.Unlock()

	dst, err := uniquePath(dir, filepath.Base(path))
	if err != nil {
		return "", err
	}
	if err := moveFile(path, dst); err != nil {
		return "", errors.Wrapf(err, "move %s", filepath.Base(path))
	}
	return dst, nil
}
