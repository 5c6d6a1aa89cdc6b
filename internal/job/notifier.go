package job

import "sync"

// SnapshotFunc receives the current job snapshot, or nil when no job exists.
type SnapshotFunc func(*Snapshot)

// Notifier is a registry of job-state subscribers. Subscribing replays the
// latest snapshot immediately; every later broadcast reaches all current
// subscribers synchronously, in unspecified order.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]SnapshotFunc
	last   *Snapshot
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]SnapshotFunc)}
}

// Subscribe registers fn and invokes it once with the current snapshot.
// The returned function removes the subscription; calling it more than once
// is harmless.
func (n *Notifier) Subscribe(fn SnapshotFunc) func() {
	if n == nil || fn == nil {
		return func() {}
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	last := n.last
	n.mu.Unlock()

	fn(last)

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Broadcast pushes snap to every subscriber and records it for replay.
func (n *Notifier) Broadcast(snap *Snapshot) {
	if n == nil {
		return
	}

	n.mu.Lock()
	n.last = snap
	fns := make([]SnapshotFunc, 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
