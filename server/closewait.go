package server

import "time"

// closeWait is the ephemeral, fire-and-forget goroutine spawned when a TCB
// enters CLOSEWAIT: it sleeps cfg.CloseWaitTimeout and then forces the TCB
// to CLOSED, unblocking any pending server Close.
func (ep *Endpoint) closeWait(tcb *TCB) {
	time.Sleep(ep.cfg.CloseWaitTimeout)
	tcb.mu.Lock()
	tcb.state = StateClosed
	tcb.cond.Broadcast()
	state := tcb.state
	tcb.mu.Unlock()
	tcb.debug(ep.log, state, "server: close-wait elapsed")
}
