package session

type EventKind int

const (
	EventStateChanged EventKind = iota
	EventTimeWarning
	EventExpired
	EventSubmitFailed
	EventOnlineChanged
)

// Event is a signal for the presentation layer.
type Event struct {
	Kind      EventKind
	State     State
	Remaining int
	Online    bool
	Err       error
}

// Listener receives events outside the controller's lock.
type Listener func(Event)
