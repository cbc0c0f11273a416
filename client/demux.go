package client

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/soypat/srt/segio"
)

// demux is the Endpoint's single reader goroutine: it pulls segments off
// the shared Codec and dispatches each to the TCB matching its ports,
// mirroring tcp.Handler's one-reader-per-NIC demultiplexing loop.
//
// Unlike the original C reference's demultiplexer, a channel failure here
// does not terminate the process: this is a library, and exiting the host
// process on every channel close would be unacceptable even in tests. The
// goroutine logs the failure and returns, leaving already-connected TCBs to
// fail their own retry loops and report srt.ErrRetriesExhausted upward.
func (ep *Endpoint) demux() {
	defer close(ep.closed)
	for {
		header, payload, err := ep.codec.ReadSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logattrs(ep.log, slog.LevelInfo, "client demux: channel closed")
			} else {
				logattrs(ep.log, slog.LevelError, "client demux: read failed", slog.String("err", err.Error()))
			}
			return
		}
		if ep.metrics != nil {
			ep.metrics.SegmentReceived()
		}
		ep.dispatch(header, payload)
	}
}

// dispatch routes one decoded segment to its TCB's state handler.
func (ep *Endpoint) dispatch(header segio.Header, payload []byte) {
	tcb := ep.lookup(header.DestPort(), header.SrcPort())
	if tcb == nil {
		logattrs(ep.log, LevelTrace, "client demux: no TCB for segment",
			slog.Uint64("client_port", uint64(header.DestPort())),
			slog.Uint64("server_port", uint64(header.SrcPort())))
		return
	}

	tcb.mu.Lock()
	state := tcb.state
	tcb.mu.Unlock()

	switch {
	case state == StateSynSent && header.Type() == segio.TypeSYNACK:
		ep.handleSynAck(tcb)
	case state == StateConnected && header.Type() == segio.TypeDATAACK:
		ep.handleDataAck(tcb, header.Ack())
	case state == StateFinWait && header.Type() == segio.TypeFINACK:
		ep.handleFinAck(tcb)
	default:
		tcb.trace(ep.log, state, "client demux: segment ignored in current state",
			slog.String("segtype", header.Type().String()))
	}
}

func (ep *Endpoint) handleSynAck(tcb *TCB) {
	tcb.mu.Lock()
	tcb.state = StateConnected
	tcb.nextSeq = 1
	tcb.cond.Broadcast()
	state := tcb.state
	tcb.mu.Unlock()
	tcb.debug(ep.log, state, "client: connection established")
}

func (ep *Endpoint) handleFinAck(tcb *TCB) {
	tcb.mu.Lock()
	tcb.state = StateClosed
	tcb.cond.Broadcast()
	state := tcb.state
	tcb.mu.Unlock()
	tcb.debug(ep.log, state, "client: connection closed")
}

// handleDataAck slides the send window: every entry with seq < ack is
// cumulatively acknowledged and popped, and the freed window room is used
// to transmit further queued (unsent) entries, implementing Go-Back-N's
// sender half.
func (ep *Endpoint) handleDataAck(tcb *TCB, ack uint32) {
	tcb.mu.Lock()
	popped := tcb.popAcked(ack)
	if popped == 0 {
		tcb.mu.Unlock()
		return
	}
	var toSend []*sendEntry
	for tcb.unsent != nil && tcb.unackedCount < ep.cfg.GBNWindow {
		toSend = append(toSend, tcb.unsent)
		tcb.unackedCount++
		tcb.unsent = tcb.unsent.next
	}
	empty := tcb.head == nil
	if ep.metrics != nil {
		ep.metrics.SetUnacked(tcb.id.String(), tcb.unackedCount)
	}
	tcb.mu.Unlock()

	for _, e := range toSend {
		if err := ep.transmitEntry(tcb, e, time.Now()); err != nil {
			tcb.mu.Lock()
			state := tcb.state
			tcb.mu.Unlock()
			tcb.logerr(ep.log, state, "client: retransmit after ack failed", slog.String("err", err.Error()))
			break
		}
	}
	if empty {
		tcb.mu.Lock()
		tcb.cond.Broadcast()
		tcb.mu.Unlock()
	}
}
