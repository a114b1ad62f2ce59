package session

// State is the lifecycle phase of a duplex connection.
type State int

const (
	// Connecting covers the dial and handshake.
	Connecting State = iota
	// Open means both directions are live.
	Open
	// Closing means a local close is in flight.
	Closing
	// Closed is the terminal state after an orderly shutdown.
	Closed
	// Failed is the terminal state after a transport fault.
	Failed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == Closed || s == Failed }
