// Package reconcile keeps a local, editable mirror of a room's server state
// correct under a lossy poll-based transport. The server is always right:
// one speculative action may be shown ahead of it, and is either confirmed
// by the next refresh or rolled back to the last confirmed snapshot.
package reconcile

// Status tracks the pending action through its life.
type Status uint8

const (
	StatusNone Status = iota
	StatusStaged
	StatusAwaiting
	StatusConfirmed
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusStaged:
		return "staged"
	case StatusAwaiting:
		return "awaiting"
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// Pending is the single in-flight speculative action.
type Pending[S, A any] struct {
	Action      A
	Speculative S // confirmed snapshot with Action applied
	Status      Status
}

// State is the local mirror of one room: the last confirmed snapshot, its
// change marker, the latest sideband update and at most one pending action.
// The zero value is an empty state, as on room entry.
type State[S, A, B any] struct {
	snapshot    S
	hasSnapshot bool
	version     uint64
	pending     *Pending[S, A]
	sideband    B
	hasSideband bool
}

// HasSnapshot reports whether the first refresh has landed.
func (s *State[S, A, B]) HasSnapshot() bool { return s.hasSnapshot }

// Confirmed returns the last snapshot confirmed by the server.
func (s *State[S, A, B]) Confirmed() (S, bool) { return s.snapshot, s.hasSnapshot }

// Version returns the highest change marker seen so far (0 if the server
// only reports a boolean flag).
func (s *State[S, A, B]) Version() uint64 { return s.version }

// View returns what the user should see: the speculative snapshot when an
// action is pending, the confirmed one otherwise.
func (s *State[S, A, B]) View() (S, bool) {
	if s.pending != nil {
		return s.pending.Speculative, true
	}
	return s.snapshot, s.hasSnapshot
}

// Pending returns a copy of the pending action.
func (s *State[S, A, B]) Pending() (Pending[S, A], bool) {
	if s.pending == nil {
		return Pending[S, A]{}, false
	}
	return *s.pending, true
}

// Sideband returns the most recent sideband update.
func (s *State[S, A, B]) Sideband() (B, bool) { return s.sideband, s.hasSideband }

func (s *State[S, A, B]) replace(snap S, version uint64) {
	s.snapshot = snap
	s.hasSnapshot = true
	if version > s.version {
		s.version = version
	}
}

func (s *State[S, A, B]) setSideband(b B) {
	s.sideband = b
	s.hasSideband = true
}

// regresses reports whether version is older than the last seen marker.
func (s *State[S, A, B]) regresses(version uint64) bool {
	return version != 0 && version < s.version
}

func (s *State[S, A, B]) clearPending() { s.pending = nil }
