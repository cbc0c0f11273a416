package segio

var (
	startMarker = [2]byte{'!', '&'}
	endMarker   = [2]byte{'!', '#'}
)

// Codec frames, checksums and optionally fault-injects segments over a
// Channel.
type Codec struct {
	ch    Channel
	fault *FaultInjector
	rec   recognizer

	// OnDropped and OnCorrupt, if set, are called from ReadSegment when the
	// fault injector drops a segment or checksum validation rejects one.
	// Both events are silent at the protocol level (the sender recovers via
	// its own retransmission timeout); these hooks exist purely for
	// metrics/logging observers.
	OnDropped func()
	OnCorrupt func()
}

// NewCodec returns a Codec writing/reading segments over ch. fault may be
// nil to disable loss/corruption simulation.
func NewCodec(ch Channel, fault *FaultInjector) *Codec {
	return &Codec{ch: ch, fault: fault}
}

// WriteSegment clears the header's checksum field, computes the checksum
// over header+payload (zero-padding an odd payload), and issues exactly
// three writes: the start marker, header+payload, and the end marker.
func (c *Codec) WriteSegment(header Header, payload []byte) error {
	header.ClearChecksum()
	odd := len(payload) % 2
	var padded []byte
	if odd == 1 {
		padded = append(append(make([]byte, 0, len(payload)+1), payload...), 0)
	} else {
		padded = payload
	}
	header.SetChecksum(Checksum(header.RawData(), padded))

	if err := c.ch.Send(startMarker[:]); err != nil {
		return err
	}
	body := make([]byte, 0, HeaderSize+len(payload))
	body = append(body, header.RawData()...)
	body = append(body, payload...)
	if err := c.ch.Send(body); err != nil {
		return err
	}
	return c.ch.Send(endMarker[:])
}

// ReadSegment blocks until one complete, intact segment has been
// recognized, or the channel fails. It applies the fault injector (if any)
// after framing and discards dropped/corrupt segments by looping, matching
// segments are discarded silently and framing recognition resumes.
func (c *Codec) ReadSegment() (Header, []byte, error) {
	for {
		frame, err := c.readFrame()
		if err != nil {
			return Header{}, nil, err
		}
		if len(frame) < HeaderSize {
			continue // short frame: cannot be a valid segment, resume scanning.
		}
		header, err := NewHeader(frame[:HeaderSize])
		if err != nil {
			continue
		}
		payload := frame[HeaderSize:]
		if c.fault != nil {
			switch c.fault.Apply(header.RawData(), payload) {
			case OutcomeDropped:
				if c.OnDropped != nil {
					c.OnDropped()
				}
				continue
			}
		}
		if !Verify(header.RawData(), payload) {
			if c.OnCorrupt != nil {
				c.OnCorrupt()
			}
			continue
		}
		out := make([]byte, len(frame))
		copy(out, frame)
		hdr, _ := NewHeader(out[:HeaderSize])
		return hdr, out[HeaderSize:], nil
	}
}

// readFrame drives the recognizer byte-by-byte until a delimited frame is
// produced or the channel errors out.
func (c *Codec) readFrame() ([]byte, error) {
	for {
		b, err := c.ch.RecvByte()
		if err != nil {
			return nil, err
		}
		if frame, ok := c.rec.feed(b); ok {
			return frame, nil
		}
	}
}
