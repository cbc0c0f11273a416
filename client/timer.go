package client

import (
	"log/slog"
	"time"
)

// sendTimer runs for the lifetime of a non-empty send buffer: it polls at
// cfg.SendBufPollingInterval and retransmits the entire in-flight region
// (head..unsent, exclusive) whenever the oldest unacknowledged entry has
// been outstanding longer than cfg.DataTimeout. One goroutine is spawned
// per TCB whenever its send buffer transitions from empty to non-empty; it
// exits voluntarily once it observes an empty buffer, and Disconnect drains
// the buffer via sync.Cond rather than busy-waiting on it.
func (ep *Endpoint) sendTimer(tcb *TCB) {
	for {
		time.Sleep(ep.cfg.SendBufPollingInterval)

		tcb.mu.Lock()
		if tcb.head == nil {
			tcb.mu.Unlock()
			return
		}
		if time.Since(tcb.head.sentAt) < ep.cfg.DataTimeout {
			tcb.mu.Unlock()
			continue
		}

		// Collect the entire in-flight window for retransmission. All
		// retransmitted entries share a single time.Now() sample taken
		// once for the whole burst (Open Question #2), rather than one
		// sample per segment.
		var burst []*sendEntry
		for e := tcb.head; e != tcb.unsent; e = e.next {
			burst = append(burst, e)
		}
		state := tcb.state
		tcb.mu.Unlock()

		if len(burst) == 0 {
			continue
		}
		now := time.Now()
		tcb.debug(ep.log, state, "client: retransmitting window", slog.Int("count", len(burst)))
		for _, e := range burst {
			if err := ep.transmitEntry(tcb, e, now); err != nil {
				tcb.logerr(ep.log, state, "client: retransmit failed", slog.String("err", err.Error()))
				break
			}
		}
		if ep.metrics != nil {
			ep.metrics.SegmentRetransmitted(len(burst))
		}
	}
}
