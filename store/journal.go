package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Run is one invocation of the sorter over an input directory.
type Run struct {
	ID         string
	InputDir   string
	DryRun     bool
	Counts     Counts
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Counts are the per-run outcome totals.
type Counts struct {
	Total    int
	Human    int
	NonHuman int
	Failed   int
}

// Reason is one piece of evidence behind a human verdict, stored as a JSON
// object so its kind can be queried and its score keeps full precision.
type Reason struct {
	Kind  string  `json:"kind"`
	Score float64 `json:"score"`
}

// Entry is the recorded outcome for one image.
type Entry struct {
	Path        string
	Destination string
	IsHuman     bool
	Reasons     []Reason
	Error       string
	CreatedAt   time.Time
}

// BeginRun records the start of a run.
//
// Arguments:
//   - inputDir: The directory being sorted.
//   - dryRun: Whether files are left in place.
//
// Returns:
//   - string: The new run ID.
//   - error: An error if the run cannot be inserted.
func (j *Journal) BeginRun(inputDir string, dryRun bool) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO runs (id, input_dir, dry_run, started_at) VALUES (?, ?, ?, ?)`,
		id, inputDir, dryRun, time.Now().UTC(),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to insert run")
	}
	return id, nil
}

// Record stores the outcome of one image. Safe for concurrent use.
func (j *Journal) Record(runID string, e Entry) error {
	reasons := e.Reasons
	if reasons == nil {
		reasons = []Reason{}
	}
	encoded, err := json.Marshal(reasons)
	if err != nil {
		return errors.Wrap(err, "failed to encode reasons")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err = j.db.Exec(
		`INSERT INTO verdicts (run_id, path, destination, is_human, reasons, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, e.Path, e.Destination, e.IsHuman, string(encoded), e.Error, e.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record verdict for %s", e.Path)
	}
	return nil
}

// FinishRun stores the final counts of a run.
func (j *Journal) FinishRun(runID string, counts Counts) error {
	res, err := j.db.Exec(
		`UPDATE runs SET total = ?, human = ?, non_human = ?, failed = ?, finished_at = ? WHERE id = ?`,
		counts.Total, counts.Human, counts.NonHuman, counts.Failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to finish run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to finish run")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves a run by its ID.
func (j *Journal) GetRun(runID string) (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	err := j.db.QueryRow(
		`SELECT id, input_dir, dry_run, total, human, non_human, failed, started_at, finished_at
		 FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.InputDir, &r.DryRun, &r.Counts.Total, &r.Counts.Human,
		&r.Counts.NonHuman, &r.Counts.Failed, &r.StartedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to read run")
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}

// Verdicts returns every entry of a run in the order it was recorded.
func (j *Journal) Verdicts(runID string) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT path, destination, is_human, reasons, error, created_at
		 FROM verdicts WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query verdicts")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var reasons string
		if err := rows.Scan(&e.Path, &e.Destination, &e.IsHuman, &reasons, &e.Error, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan verdict")
		}
		if err := json.Unmarshal([]byte(reasons), &e.Reasons); err != nil {
			return nil, errors.Wrapf(err, "failed to decode reasons of %s", e.Path)
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "failed to iterate verdicts")
}

// ReasonCounts returns how many verdicts of a run carry each evidence kind.
func (j *Journal) ReasonCounts(runID string) (map[string]int, error) {
	rows, err := j.db.Query(
		`SELECT json_extract(r.value, '$.kind'), COUNT(*)
		 FROM verdicts v, json_each(v.reasons) r
		 WHERE v.run_id = ?
		 GROUP BY 1`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count reasons")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan reason count")
		}
		counts[kind] = n
	}
	return counts, errors.Wrap(rows.Err(), "failed to iterate reason counts")
}
