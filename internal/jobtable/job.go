// Package jobtable tracks background and stopped jobs and their state
// machine.
package jobtable

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// State is a job's position in its state machine.
type State int

const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Job is one tracked pipeline. TraceID is a uuid used only for diagnostic
// correlation (e.g. in structured log fields), not shown to the user.
type Job struct {
	ID          int
	PGID        int
	CommandText string
	State       State
	LastStatus  int
	TraceID     uuid.UUID
	Disowned    bool
	reported    bool
}

// Table is the shell's job table, keyed by monotonically increasing
// job-id.
type Table struct {
	mu     sync.Mutex
	jobs   map[int]*Job
	nextID int
}

// NewTable returns an empty job table.
func NewTable() *Table {
	return &Table{jobs: map[int]*Job{}, nextID: 1}
}

// Add registers a new running job and returns it.
func (t *Table) Add(pgid int, commandText string) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	j := &Job{ID: t.nextID, PGID: pgid, CommandText: commandText, State: Running, TraceID: uuid.New()}
	t.jobs[j.ID] = j
	t.nextID++
	return j
}

// Get looks up a job by id.
func (t *Table) Get(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// ByPGID finds the job owning a process group, used when SIGCHLD reaping
// reports a pid whose pgid the executor already recorded.
func (t *Table) ByPGID(pgid int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.PGID == pgid {
			return j, true
		}
	}
	return nil, false
}

// SetState transitions a job's state and, for Done, records its final
// status.
func (t *Table) SetState(id int, state State, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[id]; ok {
		j.State = state
		if state == Done {
			j.LastStatus = status
		}
	}
}

// Disown removes id from the table without signalling it.
func (t *Table) Disown(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

// List returns all jobs ordered by job-id, for the `jobs` builtin.
func (t *Table) List() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// PurgeReported removes every Done job that has already been reported at
// a prompt.
func (t *Table) PurgeReported() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, j := range t.jobs {
		if j.State == Done && j.reported {
			delete(t.jobs, id)
		}
	}
}

// PendingReports returns Done jobs not yet reported and marks them
// reported, for the "[n]+  Done(status)  cmd" notice printed at the next
// prompt.
func (t *Table) PendingReports() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Job
	for _, j := range t.jobs {
		if j.State == Done && !j.reported {
			j.reported = true
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// Running returns all jobs whose state is not Done, for `wait` with no
// argument.
func (t *Table) Running() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Job
	for _, j := range t.jobs {
		if j.State != Done {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}
