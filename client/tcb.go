package client

import (
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/soypat/srt/segio"
)

// sendEntry is one send buffer node: a fully built segment plus its last
// transmission timestamp.
type sendEntry struct {
	buf     []byte // header(HeaderSize) + payload, owns its memory
	header  segio.Header
	payload []byte
	seq     uint32
	sentAt  time.Time
	next    *sendEntry
}

// TCB is a client Transmission Control Block: one per client socket.
type TCB struct {
	mu   sync.Mutex
	cond *sync.Cond

	id         xid.ID
	clientPort uint16
	serverPort uint16
	state      State

	nextSeq      uint32
	unackedCount int

	head, tail, unsent *sendEntry
}

func newTCB(clientPort uint16) *TCB {
	tcb := &TCB{
		id:         xid.New(),
		clientPort: clientPort,
		state:      StateClosed,
	}
	tcb.cond = sync.NewCond(&tcb.mu)
	return tcb
}

// bufferEmpty reports whether the send buffer has no entries. Caller must
// hold tcb.mu.
func (tcb *TCB) bufferEmpty() bool { return tcb.head == nil }

// pushEntries appends newly built entries at the tail of the send buffer.
// Caller must hold tcb.mu. Returns true if the buffer was empty before the
// push (signal to spawn a send-timer goroutine).
func (tcb *TCB) pushEntries(entries []*sendEntry) (wasEmpty bool) {
	wasEmpty = tcb.head == nil
	for _, e := range entries {
		if tcb.tail == nil {
			tcb.head = e
			tcb.tail = e
		} else {
			tcb.tail.next = e
			tcb.tail = e
		}
	}
	if tcb.unsent == nil {
		// unsent is nil either because the buffer was empty, or every
		// queued entry so far had already been transmitted; either way the
		// newly queued region starts at entries[0].
		tcb.unsent = entries[0]
	}
	return wasEmpty
}

// popAcked removes entries from head while their seq is below ack,
// returning the count removed. Caller must hold tcb.mu.
func (tcb *TCB) popAcked(ack uint32) int {
	popped := 0
	for tcb.head != nil && tcb.head.seq < ack {
		tcb.head = tcb.head.next
		tcb.unackedCount--
		popped++
	}
	if tcb.head == nil {
		tcb.tail = nil
	}
	return popped
}
