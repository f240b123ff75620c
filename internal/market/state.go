package market

type State int

// A round runs Polling, Closing, Clearing, Cleared, then returns to Open or
// ends in Closed.
const (
	Created State = iota
	Open
	Polling
	Closing
	Clearing
	Cleared
	Closed
)

var stateNames = map[State]string{
	Created:  "created",
	Open:     "open",
	Polling:  "polling",
	Closing:  "round-closing",
	Clearing: "clearing",
	Cleared:  "round-closed",
	Closed:   "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
