package server

import (
	"log/slog"
	"math/rand"
	"sync"

	"github.com/soypat/srt/segio"
	"github.com/soypat/srt/srt"
	"github.com/soypat/srt/srtmetrics"
)

// Endpoint is the server side of one SRT overlay channel: it owns the
// connection table and the single Codec shared by every TCB on this
// channel.
type Endpoint struct {
	tableMu sync.Mutex
	table   []*TCB

	sendMu sync.Mutex
	codec  *segio.Codec

	cfg     srt.Config
	log     *slog.Logger
	metrics *srtmetrics.Collector

	closed chan struct{}
}

// NewEndpoint constructs a server Endpoint over ch using cfg's tunables.
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

// Init starts the Endpoint's demultiplexer goroutine.
func (ep *Endpoint) Init() {
	go ep.demux()
}

// Done returns a channel closed once the demultiplexer goroutine has
// exited, signaling the underlying channel has failed or terminated.
func (ep *Endpoint) Done() <-chan struct{} {
	return ep.closed
}

func (ep *Endpoint) allocTCB(serverPort uint16) (*TCB, error) {
	ep.tableMu.Lock()
	defer ep.tableMu.Unlock()
	for i, t := range ep.table {
		if t == nil {
			tcb := newTCB(serverPort, ep.cfg.ReceiveBufSize)
			ep.table[i] = tcb
			return tcb, nil
		}
	}
	return nil, srt.ErrNoFreeSlot
}

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

// lookup finds the TCB bound to serverPort, and once a client is learned,
// requires clientPort to match too (so a second client cannot hijack an
// established connection on the same server port).
func (ep *Endpoint) lookup(serverPort, clientPort uint16) *TCB {
	ep.tableMu.Lock()
	defer ep.tableMu.Unlock()
	for _, t := range ep.table {
		if t == nil || t.serverPort != serverPort {
			continue
		}
		t.mu.Lock()
		learned := t.clientPort == 0 || t.clientPort == clientPort
		t.mu.Unlock()
		if learned {
			return t
		}
	}
	return nil
}

func (ep *Endpoint) transmit(header segio.Header, payload []byte) error {
	ep.sendMu.Lock()
	defer ep.sendMu.Unlock()
	err := ep.codec.WriteSegment(header, payload)
	if err == nil && ep.metrics != nil {
		ep.metrics.SegmentSent()
	}
	return err
}
