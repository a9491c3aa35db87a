package core

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"
)

// Outcome is what happened to one record.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// EntityStats are the per-entity counters of a run. Every checked record ends
// up in exactly one of created, updated, skipped or errors.
type EntityStats struct {
	Checked int `json:"checked"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (s *EntityStats) add(o EntityStats) {
	s.Checked += o.Checked
	s.Created += o.Created
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Errors += o.Errors
}

// accumulator collects counters and errors for one run. It is safe for use
// by the workers of a group.
type accumulator struct {
	mu       sync.Mutex
	order    []string
	stats    map[string]*EntityStats
	errors   []RowError
	warnings []string
}

func newAccumulator() *accumulator {
	return &accumulator{stats: make(map[string]*EntityStats)}
}

// entity returns the counters for key, registering it on first use.
// Callers must hold mu.
func (a *accumulator) entity(key string) *EntityStats {
	s, ok := a.stats[key]
	if !ok {
		s = &EntityStats{}
		a.stats[key] = s
		a.order = append(a.order, key)
	}
	return s
}

func (a *accumulator) begin(entity string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entity(entity)
}

func (a *accumulator) record(entity string, o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.entity(entity)
	s.Checked++
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	default:
		s.Skipped++
	}
}

func (a *accumulator) fail(e RowError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.entity(e.Entity)
	s.Checked++
	s.Errors++
	a.errors = append(a.errors, e)
}

func (a *accumulator) warn(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings = append(a.warnings, fmt.Sprintf(format, args...))
}

// errorCount returns the number of errors recorded so far.
func (a *accumulator) errorCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errors)
}

// sortErrorsFrom orders the errors recorded since mark by row, so parallel
// workers leave the same list a sequential pass would.
func (a *accumulator) sortErrorsFrom(mark int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tail := a.errors[mark:]
	sort.SliceStable(tail, func(i, j int) bool { return tail[i].Row < tail[j].Row })
}

func (a *accumulator) snapshot() ([]EntityReport, []RowError, []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entities := make([]EntityReport, len(a.order))
	for i, key := range a.order {
		entities[i] = EntityReport{Entity: key, EntityStats: *a.stats[key]}
	}
	errs := make([]RowError, len(a.errors))
	copy(errs, a.errors)
	warns := make([]string, len(a.warnings))
	copy(warns, a.warnings)
	return entities, errs, warns
}

// EntityReport pairs an entity with its counters.
type EntityReport struct {
	Entity string `json:"entity"`
	EntityStats
}

// RunReport is the result of one sync run.
type RunReport struct {
	RunID           string
	Mode            Mode
	StartedAt       time.Time
	FinishedAt      time.Time
	Entities        []EntityReport // In processing order
	Errors          []RowError
	Warnings        []string
	Aborted         bool
	ArtifactPath    string
	ArchiveLocation string
}

// Stats returns the counters for one entity.
func (r *RunReport) Stats(entity string) EntityStats {
	for _, e := range r.Entities {
		if e.Entity == entity {
			return e.EntityStats
		}
	}
	return EntityStats{}
}

// Totals sums the counters of every entity.
func (r *RunReport) Totals() EntityStats {
	var t EntityStats
	for _, e := range r.Entities {
		t.add(e.EntityStats)
	}
	return t
}

// TotalErrors is the number of failed rows and records across all entities.
func (r *RunReport) TotalErrors() int {
	return len(r.Errors)
}

// Duration is the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WriteSummary prints the per-entity counters and the error total.
func (r *RunReport) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "entity\tchecked\tcreated\tupdated\tskipped\terrors\t\n")
	for _, e := range r.Entities {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t\n",
			e.Entity, e.Checked, e.Created, e.Updated, e.Skipped, e.Errors)
	}
	t := r.Totals()
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\t%d\t%d\t\n", t.Checked, t.Created, t.Updated, t.Skipped, t.Errors)
	if err := tw.Flush(); err != nil {
		return err
	}

	status := "completed"
	if r.Aborted {
		status = "aborted"
	}
	fmt.Fprintf(w, "\nrun %s (%s) %s in %s with %d error(s)\n",
		r.RunID, r.Mode, status, r.Duration().Round(time.Millisecond), r.TotalErrors())
	for _, c := range r.errorCodes() {
		fmt.Fprintf(w, "%d row(s): %s\n", c.count, FormatUserError(errors.New(c.first.Message)))
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if r.ArtifactPath != "" {
		fmt.Fprintf(w, "audit: %s\n", r.ArtifactPath)
	}
	if r.ArchiveLocation != "" {
		fmt.Fprintf(w, "archived: %s\n", r.ArchiveLocation)
	}
	return nil
}

type codeCount struct {
	count int
	first RowError
}

// errorCodes groups the row errors by support code in first-seen order.
func (r *RunReport) errorCodes() []codeCount {
	var out []codeCount
	pos := make(map[string]int)
	for _, e := range r.Errors {
		i, ok := pos[e.Code]
		if !ok {
			i = len(out)
			pos[e.Code] = i
			out = append(out, codeCount{first: e})
		}
		out[i].count++
	}
	return out
}
