package server

// State is a server TCB's position in the SRT connection lifecycle.
type State uint8

const (
	StateClosed State = iota
	StateListening
	StateConnected
	StateCloseWait
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateListening:
		return "LISTENING"
	case StateConnected:
		return "CONNECTED"
	case StateCloseWait:
		return "CLOSEWAIT"
	default:
		return "UNKNOWN"
	}
}
