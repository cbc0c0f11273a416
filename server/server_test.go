package server_test

import (
	"testing"
	"time"

	"github.com/soypat/srt/segio"
	"github.com/soypat/srt/server"
	"github.com/soypat/srt/srt"
)

// stubChannel is a direct in-memory Channel, used here to drive the server
// demultiplexer with hand-built segments without a real client Endpoint.
type stubChannel struct {
	toServer   chan []byte
	fromServer chan []byte
	readBuf    []byte
}

func newStubChannel() *stubChannel {
	return &stubChannel{
		toServer:   make(chan []byte, 16),
		fromServer: make(chan []byte, 16),
	}
}

func (c *stubChannel) Send(p []byte) error {
	cp := append([]byte(nil), p...)
	c.fromServer <- cp
	return nil
}

func (c *stubChannel) RecvByte() (byte, error) {
	for len(c.readBuf) == 0 {
		c.readBuf = <-c.toServer
	}
	b := c.readBuf[0]
	c.readBuf = c.readBuf[1:]
	return b, nil
}

func (c *stubChannel) injectSegment(t *testing.T, typ segio.Type, src, dst uint16, seq, ack uint32, payload []byte) {
	t.Helper()
	buf := make([]byte, segio.HeaderSize+len(payload))
	header, err := segio.NewHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	header.ClearHeader()
	header.SetType(typ)
	header.SetSrcPort(src)
	header.SetDestPort(dst)
	header.SetSeq(seq)
	header.SetAck(ack)
	header.SetLength(uint16(len(payload)))
	copy(buf[segio.HeaderSize:], payload)
	header.ClearChecksum()
	header.SetChecksum(segio.Checksum(header.RawData(), padEven(payload)))

	frame := append([]byte{'!', '&'}, buf...)
	frame = append(frame, '!', '#')
	c.toServer <- frame
}

// recvFrame collects one outgoing segment, which the codec writes as three
// Send calls: start marker, header+payload, end marker.
func (c *stubChannel) recvFrame() []byte {
	var frame []byte
	for i := 0; i < 3; i++ {
		frame = append(frame, <-c.fromServer...)
	}
	return frame
}

func padEven(p []byte) []byte {
	if len(p)%2 == 0 {
		return p
	}
	return append(append([]byte{}, p...), 0)
}

func fastConfig() srt.Config {
	cfg := srt.Default()
	cfg.CloseWaitTimeout = 20 * time.Millisecond
	return cfg
}

// TestServerDuplicateDataIsAnsweredNotAppended exercises the in-order
// receiver invariant: a DATA segment with seq != expect_seq is answered
// with the unchanged expect_seq and never appended to the receive buffer.
func TestServerDuplicateDataIsAnsweredNotAppended(t *testing.T) {
	cfg := fastConfig()
	ch := newStubChannel()
	ep := server.NewEndpoint(ch, cfg, nil, nil)
	ep.Init()

	sock, err := ep.Sock(9500)
	if err != nil {
		t.Fatalf("sock: %v", err)
	}
	acceptErr := make(chan error, 1)
	go func() { acceptErr <- sock.Accept() }()

	ch.injectSegment(t, segio.TypeSYN, 7500, 9500, 0, 0, nil)
	if err := <-acceptErr; err != nil {
		t.Fatalf("accept: %v", err)
	}
	ch.recvFrame() // SYNACK

	// Out-of-order DATA (seq=5, expected 1): must be answered with ack=1
	// and not delivered.
	ch.injectSegment(t, segio.TypeDATA, 7500, 9500, 5, 0, []byte("xy"))
	reply := ch.recvFrame()
	replyHeader, err := segio.NewHeader(reply[2 : len(reply)-2])
	if err != nil {
		t.Fatalf("reply header: %v", err)
	}
	if replyHeader.Type() != segio.TypeDATAACK || replyHeader.Ack() != 1 {
		t.Fatalf("unexpected reply: %s", replyHeader)
	}

	// Correct in-order DATA now delivered.
	ch.injectSegment(t, segio.TypeDATA, 7500, 9500, 1, 0, []byte("ab"))
	out := make([]byte, 2)
	recvErr := make(chan error, 1)
	go func() { recvErr <- sock.Recv(out) }()
	ch.recvFrame() // DATAACK for the accepted segment
	if err := <-recvErr; err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(out) != "ab" {
		t.Fatalf("got %q want %q", out, "ab")
	}
}
