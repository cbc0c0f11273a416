// Package segio implements the SRT segment wire format: header layout,
// checksum, byte-stream framing and the simulated loss/corruption fault
// injector described for the overlay channel.
package segio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed length in bytes of a segment header:
// src_port(16) + dest_port(16) + seq_num(32) + ack_num(32) + length(16) +
// checksum(16) + type(16), all in that order.
const HeaderSize = 18

var errShortHeader = errors.New("segio: buffer shorter than header size")

// Type identifies the purpose of a segment.
type Type uint16

const (
	_ Type = iota
	TypeSYN
	TypeSYNACK
	TypeFIN
	TypeFINACK
	TypeDATA
	TypeDATAACK
)

func (t Type) String() string {
	switch t {
	case TypeSYN:
		return "SYN"
	case TypeSYNACK:
		return "SYNACK"
	case TypeFIN:
		return "FIN"
	case TypeFINACK:
		return "FINACK"
	case TypeDATA:
		return "DATA"
	case TypeDATAACK:
		return "DATAACK"
	default:
		return "UNKNOWN(" + fmt.Sprint(uint16(t)) + ")"
	}
}

// Header is a buffer-backed accessor for a segment's fixed header fields.
// It does not own the memory; callers are expected to size buf with
// HeaderSize+payload and reslice as needed, mirroring tcp.Frame's approach
// to wire header fields.
type Header struct {
	buf []byte
}

// NewHeader wraps buf as a Header. buf must be at least HeaderSize bytes.
func NewHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errShortHeader
	}
	return Header{buf: buf[:HeaderSize:HeaderSize]}, nil
}

// RawData returns the underlying header bytes.
func (h Header) RawData() []byte { return h.buf }

func (h Header) SrcPort() uint16     { return binary.BigEndian.Uint16(h.buf[0:2]) }
func (h Header) SetSrcPort(v uint16) { binary.BigEndian.PutUint16(h.buf[0:2], v) }

func (h Header) DestPort() uint16     { return binary.BigEndian.Uint16(h.buf[2:4]) }
func (h Header) SetDestPort(v uint16) { binary.BigEndian.PutUint16(h.buf[2:4], v) }

// Seq is the byte offset of the first payload byte within the connection's
// stream (SYN segments carry 0; the first data octet is offset 1).
func (h Header) Seq() uint32     { return binary.BigEndian.Uint32(h.buf[4:8]) }
func (h Header) SetSeq(v uint32) { binary.BigEndian.PutUint32(h.buf[4:8], v) }

// Ack is the next expected Seq value (cumulative), valid on DATAACK segments.
func (h Header) Ack() uint32     { return binary.BigEndian.Uint32(h.buf[8:12]) }
func (h Header) SetAck(v uint32) { binary.BigEndian.PutUint32(h.buf[8:12], v) }

func (h Header) Length() uint16     { return binary.BigEndian.Uint16(h.buf[12:14]) }
func (h Header) SetLength(v uint16) { binary.BigEndian.PutUint16(h.buf[12:14], v) }

func (h Header) Checksum() uint16     { return binary.BigEndian.Uint16(h.buf[14:16]) }
func (h Header) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h.buf[14:16], v) }

// ClearChecksum zeros the checksum field, as required before computing it.
func (h Header) ClearChecksum() { h.SetChecksum(0) }

func (h Header) Type() Type         { return Type(binary.BigEndian.Uint16(h.buf[16:18])) }
func (h Header) SetType(t Type) { binary.BigEndian.PutUint16(h.buf[16:18], uint16(t)) }

// ClearHeader zeros out every header field.
func (h Header) ClearHeader() {
	for i := range h.buf {
		h.buf[i] = 0
	}
}

func (h Header) String() string {
	return fmt.Sprintf("%s :%d->:%d seq=%d ack=%d len=%d", h.Type(), h.SrcPort(), h.DestPort(), h.Seq(), h.Ack(), h.Length())
}
