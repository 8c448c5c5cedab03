package schedule

import "time"

// FragmentID identifies a fragment by its cleaned file path.
type FragmentID string

// Entry is one not-yet-fired unit of work: publish Payload to Topic at Due.
//
// Entries are totally ordered by (Due, fragment discovery order, Seq).
// Discovery order is deterministic: sorted path order for the initial scan,
// append order for fragments that show up later. This keeps simultaneous
// entries from distinct fragments firing in the same order on every run of
// the same directory.
type Entry struct {
	Due     time.Time
	Topic   string
	Payload []byte
	Origin  FragmentID
	Seq     int // position among accepted lines in the origin fragment

	ord int // discovery index of the origin fragment, set on insert
}

func entryLess(a, b Entry) bool {
	if !a.Due.Equal(b.Due) {
		return a.Due.Before(b.Due)
	}
	if a.ord != b.ord {
		return a.ord < b.ord
	}
	return a.Seq < b.Seq
}
