package session

// State is the controller's discriminated session state. Exactly one is
// active at a time.
type State int

const (
	StateLoading State = iota
	StateQuestion
	StateReview
	// StateSubmitting is transient: a module submission is in flight.
	StateSubmitting
	StateBreak
	StateResult
	StateError
	// StateExited is terminal after a client-side exit.
	StateExited
)

var stateNames = map[State]string{
	StateLoading:    "loading",
	StateQuestion:   "question",
	StateReview:     "review",
	StateSubmitting: "submitting",
	StateBreak:      "break",
	StateResult:     "result",
	StateError:      "error",
	StateExited:     "exited",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Counting reports whether the module countdown runs in this state.
func (s State) Counting() bool {
	return s == StateQuestion || s == StateReview
}

// Terminal reports whether the session can no longer change.
func (s State) Terminal() bool {
	return s == StateResult || s == StateExited
}
