package client

import (
	"log/slog"
	"time"

	"github.com/soypat/srt/segio"
	"github.com/soypat/srt/srt"
)

// Sock is a handle to one client-side connection slot, returned by
// Endpoint.Sock. It is the application-facing handle to a connection
// table slot, indexed internally by slot position.
type Sock struct {
	ep  *Endpoint
	tcb *TCB
}

// Sock allocates the first free TCB slot bound to clientPort and returns a
// handle to it. Returns srt.ErrNoFreeSlot if the connection table is full.
func (ep *Endpoint) Sock(clientPort uint16) (*Sock, error) {
	tcb, err := ep.allocTCB(clientPort)
	if err != nil {
		return nil, err
	}
	return &Sock{ep: ep, tcb: tcb}, nil
}

// Connect performs the three-way handshake against serverPort. Valid only
// from CLOSED. Retries up to cfg.SynMaxRetry times, each attempt waiting
// cfg.SynTimeout for the demultiplexer to observe a SYNACK and flip the TCB
// to CONNECTED; on exhaustion resets state to CLOSED and returns
// srt.ErrRetriesExhausted.
func (s *Sock) Connect(serverPort uint16) error {
	tcb := s.tcb
	tcb.mu.Lock()
	if tcb.state != StateClosed {
		tcb.mu.Unlock()
		return srt.ErrWrongState
	}
	tcb.serverPort = serverPort
	tcb.mu.Unlock()

	cfg := s.ep.cfg
	hdrbuf := make([]byte, segio.HeaderSize)
	for attempt := 0; attempt < cfg.SynMaxRetry; attempt++ {
		header, err := segio.NewHeader(hdrbuf)
		if err != nil {
			return err
		}
		header.ClearHeader()
		header.SetType(segio.TypeSYN)
		header.SetSrcPort(tcb.clientPort)
		header.SetDestPort(serverPort)
		header.SetSeq(0)
		header.SetLength(0)

		tcb.mu.Lock()
		tcb.state = StateSynSent
		state := tcb.state
		tcb.mu.Unlock()

		if err := s.ep.transmit(header, nil); err != nil {
			return err
		}
		tcb.debug(s.ep.log, state, "client: SYN sent", slog.Int("attempt", attempt+1))

		time.Sleep(cfg.SynTimeout)

		tcb.mu.Lock()
		connected := tcb.state == StateConnected
		tcb.mu.Unlock()
		if connected {
			return nil
		}
	}

	tcb.mu.Lock()
	tcb.state = StateClosed
	tcb.mu.Unlock()
	return srt.ErrRetriesExhausted
}

// Send chops data into segments of at most cfg.MaxSegLen bytes, enqueues
// them at the tail of the send buffer, spawns a send-timer goroutine if the
// buffer was empty beforehand, and transmits consecutive unsent segments
// while unacked_count < cfg.GBNWindow. Valid only in CONNECTED.
func (s *Sock) Send(data []byte) error {
	tcb := s.tcb
	cfg := s.ep.cfg

	tcb.mu.Lock()
	if tcb.state != StateConnected {
		tcb.mu.Unlock()
		return srt.ErrWrongState
	}

	var entries []*sendEntry
	for off := 0; off < len(data); off += cfg.MaxSegLen {
		end := off + cfg.MaxSegLen
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		entries = append(entries, s.buildEntry(chunk, tcb.nextSeq))
		tcb.nextSeq += uint32(len(chunk))
	}
	if len(entries) == 0 {
		tcb.mu.Unlock()
		return nil
	}

	wasEmpty := tcb.pushEntries(entries)

	var toSend []*sendEntry
	for tcb.unsent != nil && tcb.unackedCount < cfg.GBNWindow {
		toSend = append(toSend, tcb.unsent)
		tcb.unackedCount++
		tcb.unsent = tcb.unsent.next
	}
	if s.ep.metrics != nil {
		s.ep.metrics.SetUnacked(tcb.id.String(), tcb.unackedCount)
	}
	tcb.mu.Unlock()

	if wasEmpty {
		go s.ep.sendTimer(tcb)
	}

	now := time.Now()
	for _, e := range toSend {
		if err := s.ep.transmitEntry(tcb, e, now); err != nil {
			return err
		}
	}
	return nil
}

// buildEntry constructs a DATA sendEntry carrying chunk at the given
// sequence number. Caller must hold tcb.mu (nextSeq/clientPort/serverPort
// read).
func (s *Sock) buildEntry(chunk []byte, seq uint32) *sendEntry {
	tcb := s.tcb
	buf := make([]byte, segio.HeaderSize+len(chunk))
	header, err := segio.NewHeader(buf)
	if err != nil {
		panic(err) // buf is always exactly HeaderSize+len(chunk)
	}
	header.ClearHeader()
	header.SetType(segio.TypeDATA)
	header.SetSrcPort(tcb.clientPort)
	header.SetDestPort(tcb.serverPort)
	header.SetSeq(seq)
	header.SetLength(uint16(len(chunk)))
	payload := buf[segio.HeaderSize:]
	copy(payload, chunk)
	return &sendEntry{
		buf:     buf,
		header:  header,
		payload: payload,
		seq:     seq,
	}
}

// Disconnect waits for the send buffer to drain, then performs the
// four-way-ish teardown: repeats up to cfg.FinMaxRetry times, sending a FIN
// at next_seq, waiting cfg.FinTimeout for the demultiplexer to observe a
// FINACK and flip the TCB to CLOSED. On exhaustion forces state to CLOSED
// and returns srt.ErrRetriesExhausted. Valid only in CONNECTED.
func (s *Sock) Disconnect() error {
	tcb := s.tcb
	cfg := s.ep.cfg

	tcb.mu.Lock()
	if tcb.state != StateConnected {
		tcb.mu.Unlock()
		return srt.ErrWrongState
	}
	for tcb.head != nil {
		tcb.cond.Wait()
	}
	nextSeq := tcb.nextSeq
	tcb.mu.Unlock()

	hdrbuf := make([]byte, segio.HeaderSize)
	for attempt := 0; attempt < cfg.FinMaxRetry; attempt++ {
		header, err := segio.NewHeader(hdrbuf)
		if err != nil {
			return err
		}
		header.ClearHeader()
		header.SetType(segio.TypeFIN)
		header.SetSrcPort(tcb.clientPort)
		header.SetDestPort(tcb.serverPort)
		header.SetSeq(nextSeq)
		header.SetLength(0)

		tcb.mu.Lock()
		tcb.state = StateFinWait
		state := tcb.state
		tcb.mu.Unlock()

		if err := s.ep.transmit(header, nil); err != nil {
			return err
		}
		tcb.debug(s.ep.log, state, "client: FIN sent", slog.Int("attempt", attempt+1))

		time.Sleep(cfg.FinTimeout)

		tcb.mu.Lock()
		closed := tcb.state == StateClosed
		tcb.mu.Unlock()
		if closed {
			return nil
		}
	}

	tcb.mu.Lock()
	tcb.state = StateClosed
	tcb.mu.Unlock()
	return srt.ErrRetriesExhausted
}

// Close destroys the socket and frees its table slot. Valid only from
// CLOSED.
func (s *Sock) Close() error {
	s.tcb.mu.Lock()
	state := s.tcb.state
	s.tcb.mu.Unlock()
	if state != StateClosed {
		return srt.ErrWrongState
	}
	s.ep.freeTCB(s.tcb)
	if s.ep.metrics != nil {
		s.ep.metrics.SetUnacked(s.tcb.id.String(), 0)
	}
	return nil
}
