package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Level  string
	ID     string
	Params []any
}

// Recorder is an in-memory API used to assert on what a component reported.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(level, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Level: level, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.add("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.add("count", id, []any{count})
}

// Reports returns a copy of every report made so far.
func (r *Recorder) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Count returns how many reports of the given level have an id ending with suffix,
// scoped ids are prefixed with their namespace so suffix matching is usually what you want.
func (r *Recorder) Count(level, suffix string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	n := 0
	for _, rep := range r.reports {
		if rep.Level == level && strings.HasSuffix(rep.ID, suffix) {
			n++
		}
	}
	return n
}
