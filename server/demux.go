package server

import (
	"errors"
	"io"
	"log/slog"

	"github.com/soypat/srt/segio"
)

// demux is the server Endpoint's single reader goroutine, mirroring
// client.Endpoint.demux: it pulls segments off the shared Codec and
// dispatches each to the TCB matching dest_port, learning client_port from
// the first segment seen. A channel failure logs and returns rather than
// exiting the process (see client.Endpoint.demux's equivalent comment).
func (ep *Endpoint) demux() {
	defer close(ep.closed)
	for {
		header, payload, err := ep.codec.ReadSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logattrs(ep.log, slog.LevelInfo, "server demux: channel closed")
			} else {
				logattrs(ep.log, slog.LevelError, "server demux: read failed", slog.String("err", err.Error()))
			}
			return
		}
		if ep.metrics != nil {
			ep.metrics.SegmentReceived()
		}
		ep.dispatch(header, payload)
	}
}

func (ep *Endpoint) dispatch(header segio.Header, payload []byte) {
	tcb := ep.lookup(header.DestPort(), header.SrcPort())
	if tcb == nil {
		logattrs(ep.log, LevelTrace, "server demux: no TCB for segment",
			slog.Uint64("server_port", uint64(header.DestPort())))
		return
	}

	tcb.mu.Lock()
	if tcb.clientPort == 0 {
		tcb.clientPort = header.SrcPort()
	}
	state := tcb.state
	tcb.mu.Unlock()

	switch {
	case state == StateListening && header.Type() == segio.TypeSYN:
		ep.handleSyn(tcb)
	case state == StateConnected && header.Type() == segio.TypeSYN:
		ep.handleSynAckResend(tcb)
	case state == StateConnected && header.Type() == segio.TypeFIN:
		ep.handleFin(tcb)
	case state == StateConnected && header.Type() == segio.TypeDATA:
		ep.handleData(tcb, header, payload)
	case state == StateCloseWait && header.Type() == segio.TypeFIN:
		ep.handleFinAckResend(tcb)
	default:
		tcb.trace(ep.log, state, "server demux: segment ignored in current state",
			slog.String("segtype", header.Type().String()))
	}
}

// buildReply constructs a reply segment with ports swapped relative to
// the server TCB (src=serverPort, dest=clientPort), required for every
// outgoing signal sent back to the client.
func (ep *Endpoint) buildReply(tcb *TCB, typ segio.Type, seq, ack uint32) (segio.Header, []byte) {
	buf := make([]byte, segio.HeaderSize)
	header, err := segio.NewHeader(buf)
	if err != nil {
		panic(err)
	}
	header.ClearHeader()
	header.SetType(typ)
	header.SetSrcPort(tcb.serverPort)
	header.SetDestPort(tcb.clientPort)
	header.SetSeq(seq)
	header.SetAck(ack)
	return header, nil
}

func (ep *Endpoint) handleSyn(tcb *TCB) {
	tcb.mu.Lock()
	tcb.expectSeq = 1
	tcb.state = StateConnected
	tcb.cond.Broadcast()
	state := tcb.state
	tcb.mu.Unlock()

	header, payload := ep.buildReply(tcb, segio.TypeSYNACK, 0, 1)
	if err := ep.transmit(header, payload); err != nil {
		tcb.logerr(ep.log, state, "server: SYNACK send failed", slog.String("err", err.Error()))
	}
	tcb.debug(ep.log, state, "server: connection established")
}

func (ep *Endpoint) handleSynAckResend(tcb *TCB) {
	tcb.mu.Lock()
	state := tcb.state
	tcb.mu.Unlock()

	header, payload := ep.buildReply(tcb, segio.TypeSYNACK, 0, 1)
	if err := ep.transmit(header, payload); err != nil {
		tcb.logerr(ep.log, state, "server: SYNACK resend failed", slog.String("err", err.Error()))
	}
}

func (ep *Endpoint) handleFin(tcb *TCB) {
	tcb.mu.Lock()
	tcb.state = StateCloseWait
	state := tcb.state
	tcb.mu.Unlock()

	header, payload := ep.buildReply(tcb, segio.TypeFINACK, 0, 0)
	if err := ep.transmit(header, payload); err != nil {
		tcb.logerr(ep.log, state, "server: FINACK send failed", slog.String("err", err.Error()))
	}
	tcb.debug(ep.log, state, "server: entering close-wait")
	go ep.closeWait(tcb)
}

func (ep *Endpoint) handleFinAckResend(tcb *TCB) {
	tcb.mu.Lock()
	state := tcb.state
	tcb.mu.Unlock()

	header, payload := ep.buildReply(tcb, segio.TypeFINACK, 0, 0)
	if err := ep.transmit(header, payload); err != nil {
		tcb.logerr(ep.log, state, "server: FINACK resend failed", slog.String("err", err.Error()))
	}
}

// handleData implements the in-order receiver: accepts only segments whose
// seq matches expectSeq and whose payload fits, always answering with the
// current expectSeq either way, which turns duplicate/out-of-order DATA
// into a Go-Back-N retransmission signal for the sender.
func (ep *Endpoint) handleData(tcb *TCB, header segio.Header, payload []byte) {
	tcb.mu.Lock()
	inOrder := header.Seq() == tcb.expectSeq
	if inOrder && tcb.fits(payload) {
		tcb.appendData(payload)
		tcb.cond.Broadcast()
	} else if inOrder {
		tcb.logerr(ep.log, tcb.state, "server: receive buffer full, dropping in-order segment")
	}
	ack := tcb.expectSeq
	state := tcb.state
	tcb.mu.Unlock()

	replyHeader, replyPayload := ep.buildReply(tcb, segio.TypeDATAACK, 0, ack)
	if err := ep.transmit(replyHeader, replyPayload); err != nil {
		tcb.logerr(ep.log, state, "server: DATAACK send failed", slog.String("err", err.Error()))
	}
}
