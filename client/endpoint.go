package client

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/soypat/srt/segio"
	"github.com/soypat/srt/srt"
	"github.com/soypat/srt/srtmetrics"
)

// Endpoint is the client side of one SRT overlay channel: it owns the
// connection table and the single Codec that serializes every segment sent
// over the channel, mirroring tcp's per-NIC handler owning its ControlBlock
// table. One Endpoint typically maps to one process's outbound channel.
type Endpoint struct {
	tableMu sync.Mutex
	table   []*TCB

	// sendMu serializes Codec.WriteSegment calls across the demux
	// goroutine, every TCB's send-timer goroutine, and the application
	// Send/Connect/Disconnect paths: WriteSegment issues three separate
	// Channel.Send calls that must not interleave with another
	// WriteSegment's three calls on the wire.
	sendMu sync.Mutex
	codec  *segio.Codec

	cfg     srt.Config
	log     *slog.Logger
	metrics *srtmetrics.Collector

	closed chan struct{}
}

// NewEndpoint constructs a client Endpoint over ch using cfg's tunables.
// Call Init to start its demultiplexer goroutine before using any Sock.
func NewEndpoint(ch segio.Channel, cfg srt.Config, log *slog.Logger, metrics *srtmetrics.Collector) *Endpoint {
	fault := segio.NewFaultInjector(cfg.PktLossRate, rand.Int63())
	codec := segio.NewCodec(ch, fault)
	ep := &Endpoint{
		table:   make([]*TCB, cfg.MaxTransportConnections),
		codec:   codec,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		closed:  make(chan struct{}),
	}
	if metrics != nil {
		codec.OnDropped = metrics.SegmentDropped
		codec.OnCorrupt = metrics.SegmentCorrupted
	}
	return ep
}

// Init starts the Endpoint's demultiplexer goroutine. Must be called
// exactly once before any Sock is used.
func (ep *Endpoint) Init() {
	go ep.demux()
}

// Done returns a channel closed once the demultiplexer goroutine has
// exited, signaling the underlying channel has failed or terminated.
func (ep *Endpoint) Done() <-chan struct{} {
	return ep.closed
}

// allocTCB reserves a free table slot and returns its TCB, or
// srt.ErrNoFreeSlot if the table is full.
func (ep *Endpoint) allocTCB(clientPort uint16) (*TCB, error) {
	ep.tableMu.Lock()
	defer ep.tableMu.Unlock()
	for i, t := range ep.table {
		if t == nil {
			tcb := newTCB(clientPort)
			ep.table[i] = tcb
			return tcb, nil
		}
	}
	return nil, srt.ErrNoFreeSlot
}

// freeTCB releases tcb's table slot, making it available for reuse.
func (ep *Endpoint) freeTCB(tcb *TCB) {
	ep.tableMu.Lock()
	defer ep.tableMu.Unlock()
	for i, t := range ep.table {
		if t == tcb {
			ep.table[i] = nil
			return
		}
	}
}

// lookup finds the TCB matching (clientPort, serverPort), for demux
// dispatch. Returns nil if no such TCB is registered.
func (ep *Endpoint) lookup(clientPort, serverPort uint16) *TCB {
	ep.tableMu.Lock()
	defer ep.tableMu.Unlock()
	for _, t := range ep.table {
		if t != nil && t.clientPort == clientPort && t.serverPort == serverPort {
			return t
		}
	}
	return nil
}

// transmit writes a segment under sendMu; the Codec stamps the header's
// checksum. Caller must NOT hold tcb.mu, since sendMu/Codec IO may block
// on the channel.
func (ep *Endpoint) transmit(header segio.Header, payload []byte) error {
	ep.sendMu.Lock()
	defer ep.sendMu.Unlock()
	err := ep.codec.WriteSegment(header, payload)
	if err == nil && ep.metrics != nil {
		ep.metrics.SegmentSent()
	}
	return err
}

// transmitEntry (re)transmits a queued sendEntry and stamps its sentAt
// under tcb.mu. Must be called without tcb.mu held, since it blocks on
// channel IO; it takes the lock itself only to record the timestamp.
func (ep *Endpoint) transmitEntry(tcb *TCB, e *sendEntry, now time.Time) error {
	err := ep.transmit(e.header, e.payload)
	tcb.mu.Lock()
	e.sentAt = now
	tcb.mu.Unlock()
	return err
}
