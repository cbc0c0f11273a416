package server

import "github.com/soypat/srt/srt"

// Sock is a handle to one server-side connection slot, returned by
// Endpoint.Sock.
type Sock struct {
	ep  *Endpoint
	tcb *TCB
}

// Sock allocates the first free TCB slot bound to serverPort, with a fresh
// receive buffer of cfg.ReceiveBufSize. Returns srt.ErrNoFreeSlot if the
// connection table is full.
func (ep *Endpoint) Sock(serverPort uint16) (*Sock, error) {
	tcb, err := ep.allocTCB(serverPort)
	if err != nil {
		return nil, err
	}
	return &Sock{ep: ep, tcb: tcb}, nil
}

// Accept sets state to LISTENING and blocks on the TCB's condition
// variable until the demultiplexer observes a SYN and flips state to
// CONNECTED, rather than polling for the transition on a fixed interval.
func (s *Sock) Accept() error {
	tcb := s.tcb
	tcb.mu.Lock()
	defer tcb.mu.Unlock()
	if tcb.state != StateClosed {
		return srt.ErrWrongState
	}
	tcb.state = StateListening
	for tcb.state == StateListening {
		tcb.cond.Wait()
	}
	return nil
}

// Recv blocks until at least len(out) bytes are available in the receive
// buffer, then copies them into out and shifts the remainder down. Blocks
// on the TCB's condition variable, broadcast by the demultiplexer on every
// successful in-order DATA append, rather than polling
// cfg.RecvBufPollingInterval.
func (s *Sock) Recv(out []byte) error {
	tcb := s.tcb
	tcb.mu.Lock()
	defer tcb.mu.Unlock()
	for tcb.usedLen < len(out) {
		tcb.cond.Wait()
	}
	tcb.takeFront(out, len(out))
	return nil
}

// Close blocks until the TCB reaches CLOSED (driven by the close-wait
// timer), then frees its table slot.
func (s *Sock) Close() error {
	tcb := s.tcb
	tcb.mu.Lock()
	for tcb.state != StateClosed {
		tcb.cond.Wait()
	}
	tcb.mu.Unlock()
	s.ep.freeTCB(tcb)
	if s.ep.metrics != nil {
		s.ep.metrics.SetUnacked(tcb.id.String(), 0)
	}
	return nil
}
