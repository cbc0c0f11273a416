package client

// State is a client TCB's position in the SRT connection lifecycle.
type State uint8

const (
	StateClosed State = iota
	StateSynSent
	StateConnected
	StateFinWait
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateSynSent:
		return "SYNSENT"
	case StateConnected:
		return "CONNECTED"
	case StateFinWait:
		return "FINWAIT"
	default:
		return "UNKNOWN"
	}
}
