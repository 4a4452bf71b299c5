package classifier

import (
	"context"
	"io"
	"sync"

	"github.com/nvr-ai/go-humansort/config"
	"github.com/sirupsen/logrus"
)

// procedure is one independent decision procedure.
type procedure func(Input, config.Thresholds) (Evidence, bool)

// procedures run in presentation order: person, face, body.
var procedures = [...]procedure{DetectPerson, DetectFace, DetectBody}

// Classify runs the person, face and body procedures on one image and unions
// their evidence. The image is human iff at least one procedure reports
// evidence; reasons list every reporting procedure in the order person, face,
// body. Classify keeps no state, so identical input gives an identical verdict.
//
// Arguments:
//   - in: The detector and pose outputs of one image.
//   - th: The thresholds to apply.
//
// Returns:
//   - Verdict: The classification. Reasons is empty, never nil, for a non-human image.
func Classify(in Input, th config.Thresholds) Verdict {
	var found [len(procedures)]*Evidence
	for i, p := range procedures {
		if ev, ok := p(in, th); ok {
			found[i] = &ev
		}
	}

	v := Verdict{Reasons: []Reason{}}
	for _, ev := range found {
		if ev == nil {
			continue
		}
		v.IsHuman = true
		v.Reasons = append(v.Reasons, Reason{Kind: ev.Kind, Score: ev.Score})
	}
	return v
}

// Classifier binds a validated set of thresholds to a logger.
type Classifier struct {
	thresholds config.Thresholds
	log        logrus.FieldLogger
}

// New creates a classifier after validating th.
//
// Arguments:
//   - th: The thresholds to apply to every image.
//   - log: The logger for per-image debug output. Nil discards logs.
//
// Returns:
//   - *Classifier: The classifier.
//   - error: An error if a threshold is out of range.
func New(th config.Thresholds, log logrus.FieldLogger) (*Classifier, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Classifier{thresholds: th, log: log}, nil
}

// Thresholds returns the thresholds the classifier applies.
func (c *Classifier) Thresholds() config.Thresholds {
	return c.thresholds
}

// Classify classifies one image.
func (c *Classifier) Classify(in Input) Verdict {
	v := Classify(in, c.thresholds)
	c.log.WithFields(logrus.Fields{
		"width":        in.Width,
		"height":       in.Height,
		"detections_a": len(in.DetectionsA),
		"detections_b": len(in.DetectionsB),
		"pose_a":       in.PoseA != nil,
		"pose_b":       in.PoseB != nil,
		"is_human":     v.IsHuman,
		"reasons":      v.Reasons,
	}).Debug("classified image")
	return v
}

// ClassifyBatch classifies inputs on a bounded pool of workers.
//
// Images share nothing, so no locking is needed beyond handing out indices.
// Inputs not yet started when ctx is cancelled are left as zero verdicts.
//
// Arguments:
//   - ctx: Stops handing out new images when done.
//   - inputs: The images to classify.
//   - workers: Number of goroutines; values below one use a single worker.
//
// Returns:
//   - []Verdict: One verdict per input, at the same index.
//   - error: ctx.Err() if the batch was cut short.
func (c *Classifier) ClassifyBatch(ctx context.Context, inputs []Input, workers int) ([]Verdict, error) {
	verdicts := make([]Verdict, len(inputs))
	if len(inputs) == 0 {
		return verdicts, nil
	}
	workers = max(1, min(workers, len(inputs)))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				verdicts[i] = c.Classify(inputs[i])
			}
		}()
	}

	var err error
dispatch:
	for i := range inputs {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return verdicts, err
}
