// Package session tracks which scheduled class is currently live on the
// device and which identities have already been marked present in it.
//
// The tracker is deliberately not persisted: it is rebuilt from the
// timetable and the wall clock on every poll, so a restart mid-class simply
// begins a fresh session with an empty marked set. A student marked before
// the restart may be marked again, which the at-least-once push semantics
// absorb server-side.
package session

// Transition reports how an Observe call changed the session state.
type Transition int

const (
	// TransitionNone: no session boundary was crossed.
	TransitionNone Transition = iota
	// TransitionStarted: a class became active where none was.
	TransitionStarted
	// TransitionChanged: the active class switched directly to another one.
	TransitionChanged
	// TransitionEnded: the active class ended with no successor.
	TransitionEnded
)

// Tracker is the session state machine. It is used from a single goroutine
// (the recognition loop) and needs no locking.
type Tracker struct {
	active  bool
	classID int64
	marked  map[int64]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe feeds the tracker the current answer to "which class is active
// right now, if any" and returns the transition that answer caused. Entering
// a session, by start or by switch, always begins with an empty marked set.
func (t *Tracker) Observe(classID int64, active bool) Transition {
	switch {
	case active && !t.active:
		t.enter(classID)
		return TransitionStarted
	case active && t.active && classID != t.classID:
		t.enter(classID)
		return TransitionChanged
	case !active && t.active:
		t.active = false
		t.classID = 0
		t.marked = nil
		return TransitionEnded
	default:
		return TransitionNone
	}
}

func (t *Tracker) enter(classID int64) {
	t.active = true
	t.classID = classID
	t.marked = make(map[int64]struct{})
}

// Active returns the current class id, if a session is live.
func (t *Tracker) Active() (int64, bool) {
	return t.classID, t.active
}

// Seen reports whether an identity is already marked in the current session.
func (t *Tracker) Seen(identityID int64) bool {
	_, seen := t.marked[identityID]
	return seen
}

// MarkPresent records an identity as seen in the current session. It returns
// true only the first time an identity is seen, which is the gate keeping
// the recognition loop from writing duplicate attendance within one session.
// Outside a session it always returns false.
func (t *Tracker) MarkPresent(identityID int64) bool {
	if !t.active {
		return false
	}
	if _, seen := t.marked[identityID]; seen {
		return false
	}
	t.marked[identityID] = struct{}{}
	return true
}

// MarkedCount returns how many identities have been marked this session.
func (t *Tracker) MarkedCount() int {
	return len(t.marked)
}
