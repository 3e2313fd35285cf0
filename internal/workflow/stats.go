package workflow

import (
	"sync"
	"time"
)

// Stats counts outcomes for one watched folder.
type Stats struct {
	mu       sync.Mutex
	snapshot StatsSnapshot
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Processed       int64     `json:"processed"`
	Deleted         int64     `json:"deleted"`
	Discarded       int64     `json:"discarded"`
	Skipped         int64     `json:"skipped"`
	Retained        int64     `json:"retained"`
	Gone            int64     `json:"gone"`
	Unrecognized    int64     `json:"unrecognized"`
	Reported        int64     `json:"reported"`
	Archived        int64     `json:"archived"`
	ArchiveFailures int64     `json:"archive_failures"`
	Retries         int64     `json:"retries"`
	LastFile        string    `json:"last_file,omitempty"`
	LastOutcome     Outcome   `json:"last_outcome,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorAt     time.Time `json:"last_error_at,omitempty"`
}

func (s *Stats) record(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &s.snapshot
	snap.Processed++
	switch res.Outcome {
	case OutcomeDeleted:
		snap.Deleted++
	case OutcomeDiscarded:
		snap.Discarded++
	case OutcomeSkipped:
		snap.Skipped++
	case OutcomeRetained:
		snap.Retained++
	case OutcomeGone:
		snap.Gone++
	}
	if res.Reported {
		snap.Reported++
	}
	if res.Archived {
		snap.Archived++
	}
	snap.LastFile = res.File.Name
	snap.LastOutcome = res.Outcome
	if res.Err != nil && res.Outcome == OutcomeRetained {
		snap.LastError = res.Err.Error()
		snap.LastErrorAt = time.Now()
	}
}

func (s *Stats) add(field *int64) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

func (s *Stats) unrecognized()   { s.add(&s.snapshot.Unrecognized) }
func (s *Stats) archiveFailure() { s.add(&s.snapshot.ArchiveFailures) }
func (s *Stats) retry()          { s.add(&s.snapshot.Retries) }

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}
