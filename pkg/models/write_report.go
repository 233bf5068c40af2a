package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

// WriteOutcome is the result of persisting one entity.
type WriteOutcome struct {
	Kind  EntityKind
	Label string
	Err   error
}

// Failed reports whether the write did not happen.
func (o WriteOutcome) Failed() bool {
	return o.Err != nil
}

// WriteReport accumulates the outcome of every write attempted for one record,
// in the order the writes were attempted. A report with no failures means the
// record is fully and consistently stored.
type WriteReport struct {
	MovieID  int64
	Outcomes []WriteOutcome
}

// NewWriteReport creates an empty report for the given movie.
func NewWriteReport(movieID int64) *WriteReport {
	return &WriteReport{MovieID: movieID}
}

// Record appends an outcome. A nil err marks a successful write.
func (r *WriteReport) Record(kind EntityKind, label string, err error) {
	r.Outcomes = append(r.Outcomes, WriteOutcome{Kind: kind, Label: label, Err: err})
}

// Failures returns the failed outcomes in attempt order.
func (r *WriteReport) Failures() []WriteOutcome {
	var failed []WriteOutcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// OK reports whether every attempted write succeeded.
func (r *WriteReport) OK() bool {
	for _, o := range r.Outcomes {
		if o.Failed() {
			return false
		}
	}
	return true
}

// Count returns how many writes of the given kind were attempted.
func (r *WriteReport) Count(kind EntityKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Written returns how many writes of the given kind succeeded.
func (r *WriteReport) Written(kind EntityKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind && !o.Failed() {
			n++
		}
	}
	return n
}

// Summary describes the failures in one line, e.g.
// "2 failed writes: 1 collection, 1 cast member".
func (r *WriteReport) Summary() string {
	failures := r.Failures()
	if len(failures) == 0 {
		return fmt.Sprintf("%d writes ok", len(r.Outcomes))
	}

	byKind := make(map[EntityKind]int)
	var kinds []EntityKind
	for _, f := range failures {
		if byKind[f.Kind] == 0 {
			kinds = append(kinds, f.Kind)
		}
		byKind[f.Kind]++
	}

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = Quantify(byKind[k], k.Noun())
	}
	return fmt.Sprintf("%s: %s", Quantify(len(failures), "failed write"), strings.Join(parts, ", "))
}

// Quantify renders "1 genre" or "3 genres".
func Quantify(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %s", n, inflection.Plural(noun))
}

// RunSummary aggregates the outcome of an ingest run.
type RunSummary struct {
	RunID    string          `yaml:"run_id"`
	Records  int             `yaml:"records"`
	Written  int             `yaml:"written"`
	Partial  int             `yaml:"partial"`
	Rejected int             `yaml:"rejected"`
	Failures map[string]int  `yaml:"failures_by_kind,omitempty"`
	Problems []RecordProblem `yaml:"problems,omitempty"`
}

// RecordProblem describes one record that was rejected or partially written.
type RecordProblem struct {
	Line    int      `yaml:"line,omitempty"`
	MovieID int64    `yaml:"movie_id,omitempty"`
	Error   string   `yaml:"error,omitempty"`
	Failed  []string `yaml:"failed,omitempty"`
}

// Add folds one persisted record into the summary.
func (s *RunSummary) Add(line int, report *WriteReport) {
	s.Records++
	if report.OK() {
		s.Written++
		return
	}

	s.Partial++
	if s.Failures == nil {
		s.Failures = make(map[string]int)
	}
	problem := RecordProblem{Line: line, MovieID: report.MovieID}
	for _, f := range report.Failures() {
		s.Failures[string(f.Kind)]++
		problem.Failed = append(problem.Failed, fmt.Sprintf("%s %q: %v", f.Kind.Noun(), f.Label, f.Err))
	}
	s.Problems = append(s.Problems, problem)
}

// Reject records a record that could not be built.
func (s *RunSummary) Reject(line int, err error) {
	s.Records++
	s.Rejected++
	s.Problems = append(s.Problems, RecordProblem{Line: line, Error: err.Error()})
}

// Merge folds another summary into s. Problems are appended in merge order;
// call SortProblems once every summary has been merged.
func (s *RunSummary) Merge(other *RunSummary) {
	s.Records += other.Records
	s.Written += other.Written
	s.Partial += other.Partial
	s.Rejected += other.Rejected
	for k, v := range other.Failures {
		if s.Failures == nil {
			s.Failures = make(map[string]int)
		}
		s.Failures[k] += v
	}
	s.Problems = append(s.Problems, other.Problems...)
}

// SortProblems orders problems by input line.
func (s *RunSummary) SortProblems() {
	sort.SliceStable(s.Problems, func(i, j int) bool {
		return s.Problems[i].Line < s.Problems[j].Line
	})
}

// Clean reports whether every record was fully written.
func (s *RunSummary) Clean() bool {
	return s.Partial == 0 && s.Rejected == 0
}
