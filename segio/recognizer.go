package segio

// recognizerState is the four-state framing scanner:
// idle -> sawStartBang -> inSegment -> sawEndBang.
type recognizerState uint8

const (
	stateIdle recognizerState = iota
	stateSawStartBang
	stateInSegment
	stateSawEndBang
)

const (
	startBang = '!'
	startAmp  = '&'
	endHash   = '#'
)

// recognizer accumulates bytes delivered one at a time between the wire
// markers "!&" ... "!#". A lone '!' inside a segment that isn't followed by
// '#' is not an escape: both bytes are appended as data and scanning
// resumes in-segment.
type recognizer struct {
	state recognizerState
	buf   []byte
}

// reset clears accumulated data and returns to the idle state.
func (r *recognizer) reset() {
	r.state = stateIdle
	r.buf = r.buf[:0]
}

// feed processes one byte. It returns (frame, true) when a complete
// start/end-delimited frame has been recognized; frame aliases r's internal
// buffer and is only valid until the next call to feed.
func (r *recognizer) feed(c byte) (frame []byte, complete bool) {
	switch r.state {
	case stateIdle:
		if c == startBang {
			r.state = stateSawStartBang
		}
	case stateSawStartBang:
		if c == startAmp {
			r.buf = r.buf[:0]
			r.state = stateInSegment
		} else {
			r.state = stateIdle
		}
	case stateInSegment:
		if c == startBang {
			r.state = stateSawEndBang
		} else {
			r.buf = append(r.buf, c)
		}
	case stateSawEndBang:
		switch c {
		case endHash:
			frame = r.buf
			complete = true
			r.state = stateIdle
			r.buf = nil // caller must copy frame before the next feed call.
		case startBang:
			r.buf = append(r.buf, startBang)
			// stay in sawEndBang: a run of '!' bytes keeps deferring completion.
		default:
			r.buf = append(r.buf, startBang, c)
			r.state = stateInSegment
		}
	}
	return frame, complete
}
