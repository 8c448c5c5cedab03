package dispatch

import (
	"sort"
	"sync"
)

// changeQueue coalesces change notifications arriving between actor wakeups.
//
// The watcher may fire faster than the actor drains. Paths are deduplicated
// in a set and a rescan request is a single flag, so a notification is never
// dropped: at worst several collapse into one reload of the same fragment,
// which is idempotent.
type changeQueue struct {
	mu     sync.Mutex
	paths  map[string]struct{}
	rescan bool

	wake chan struct{} // buffered 1; a pending wake is never duplicated
}

func newChangeQueue() *changeQueue {
	return &changeQueue{
		paths: map[string]struct{}{},
		wake:  make(chan struct{}, 1),
	}
}

func (q *changeQueue) addPath(path string) {
	q.mu.Lock()
	q.paths[path] = struct{}{}
	q.mu.Unlock()
	q.signal()
}

func (q *changeQueue) requestRescan() {
	q.mu.Lock()
	q.rescan = true
	q.mu.Unlock()
	q.signal()
}

func (q *changeQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain empties the queue. Paths come back sorted so repeated runs over the
// same burst of events reload fragments in a stable order.
func (q *changeQueue) drain() (paths []string, rescan bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rescan = q.rescan
	q.rescan = false
	if len(q.paths) > 0 {
		paths = make([]string, 0, len(q.paths))
		for p := range q.paths {
			paths = append(paths, p)
		}
		q.paths = map[string]struct{}{}
		sort.Strings(paths)
	}
	return paths, rescan
}
