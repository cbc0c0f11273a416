package server

import (
	"sync"

	"github.com/rs/xid"
)

// TCB is a server Transmission Control Block: one per listening/accepted
// server socket, holding the contiguous in-order receive buffer.
type TCB struct {
	mu   sync.Mutex
	cond *sync.Cond

	id         xid.ID
	serverPort uint16
	clientPort uint16 // learned from the first received segment
	state      State

	expectSeq uint32

	recvBuf []byte
	usedLen int
}

func newTCB(serverPort uint16, recvBufSize int) *TCB {
	tcb := &TCB{
		id:         xid.New(),
		serverPort: serverPort,
		state:      StateClosed,
		recvBuf:    make([]byte, recvBufSize),
	}
	tcb.cond = sync.NewCond(&tcb.mu)
	return tcb
}

// appendData copies payload onto the tail of the receive buffer, advancing
// expectSeq. Caller must hold tcb.mu and have already verified the segment
// is in-order and fits.
func (tcb *TCB) appendData(payload []byte) {
	copy(tcb.recvBuf[tcb.usedLen:], payload)
	tcb.usedLen += len(payload)
	tcb.expectSeq += uint32(len(payload))
}

// fits reports whether payload can be appended without overflowing
// recvBuf. Caller must hold tcb.mu.
func (tcb *TCB) fits(payload []byte) bool {
	return tcb.usedLen+len(payload) <= len(tcb.recvBuf)
}

// takeFront copies the first n bytes of the receive buffer into out and
// shifts the remainder down. Caller must hold tcb.mu and have verified
// usedLen >= n.
func (tcb *TCB) takeFront(out []byte, n int) {
	copy(out, tcb.recvBuf[:n])
	copy(tcb.recvBuf, tcb.recvBuf[n:tcb.usedLen])
	tcb.usedLen -= n
}
