package schedule

import (
	"sort"
	"time"
)

// Schedule is the merged, time-ordered set of pending entries across all
// live fragments.
//
// It is not goroutine-safe. The dispatch actor is its single owner; every
// mutation flows through the actor's serialized event loop.
type Schedule struct {
	fragments map[FragmentID]*fragmentState
	nextOrd   int
	pending   []Entry // sorted by entryLess
}

type fragmentState struct {
	ord      int
	loadTime time.Time
	entries  int // accepted entries at last parse, for logs
}

func New() *Schedule {
	return &Schedule{fragments: map[FragmentID]*fragmentState{}}
}

// Apply replaces the fragment's contribution wholesale: any pending entries
// from this origin are discarded and the new ones inserted. Entries that
// already fired are gone from pending and stay gone. A fragment seen for
// the first time is assigned the next discovery index; re-applied fragments
// keep theirs, so an unchanged file re-parses to an identical ordering.
func (s *Schedule) Apply(id FragmentID, entries []Entry, loadTime time.Time) {
	fs := s.fragments[id]
	if fs == nil {
		fs = &fragmentState{ord: s.nextOrd}
		s.nextOrd++
		s.fragments[id] = fs
	}
	fs.loadTime = loadTime
	fs.entries = len(entries)

	s.dropOrigin(id)
	for _, e := range entries {
		e.Origin = id
		e.ord = fs.ord
		s.pending = append(s.pending, e)
	}
	sort.SliceStable(s.pending, func(i, j int) bool {
		return entryLess(s.pending[i], s.pending[j])
	})
}

// Remove drops a fragment's pending entries and returns how many were
// dropped. The discovery index is retained so a file deleted and re-created
// keeps its slot.
func (s *Schedule) Remove(id FragmentID) int {
	fs, ok := s.fragments[id]
	if !ok {
		return 0
	}
	n := s.dropOrigin(id)
	fs.entries = 0
	return n
}

func (s *Schedule) dropOrigin(id FragmentID) int {
	kept := s.pending[:0]
	for _, e := range s.pending {
		if e.Origin != id {
			kept = append(kept, e)
		}
	}
	dropped := len(s.pending) - len(kept)
	s.pending = kept
	return dropped
}

// Has reports whether the fragment currently contributes to the schedule.
func (s *Schedule) Has(id FragmentID) bool {
	_, ok := s.fragments[id]
	return ok
}

// Fragments returns the ids of all known fragments.
func (s *Schedule) Fragments() []FragmentID {
	ids := make([]FragmentID, 0, len(s.fragments))
	for id := range s.fragments {
		ids = append(ids, id)
	}
	return ids
}

// LoadTime returns the wall-clock time the fragment was last parsed.
func (s *Schedule) LoadTime(id FragmentID) (time.Time, bool) {
	fs, ok := s.fragments[id]
	if !ok {
		return time.Time{}, false
	}
	return fs.loadTime, true
}

// NextDue returns the earliest pending due time.
func (s *Schedule) NextDue() (time.Time, bool) {
	if len(s.pending) == 0 {
		return time.Time{}, false
	}
	return s.pending[0].Due, true
}

// PopDue removes and returns every entry with due <= now, in order. Firing
// everything overdue in one sweep keeps a briefly stalled process from
// delivering only the first backlog entry per timer tick.
func (s *Schedule) PopDue(now time.Time) []Entry {
	n := 0
	for n < len(s.pending) && !s.pending[n].Due.After(now) {
		n++
	}
	if n == 0 {
		return nil
	}
	due := make([]Entry, n)
	copy(due, s.pending[:n])
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return due
}

// Len returns the number of pending entries.
func (s *Schedule) Len() int { return len(s.pending) }
