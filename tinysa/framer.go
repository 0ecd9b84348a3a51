package tinysa

import (
	"bytes"
	"io"
	"time"
)

const (
	// DefaultDelimiter is the last byte of the shell prompt "ch>"
	DefaultDelimiter    = ">"
	// Prompt is the full shell prompt, used to frame binary replies
	Prompt              = "ch>"
	DefaultMaxIdleReads = 10
	readChunkSize       = 1024
)

// RawFrame is one complete reply, echoed command through the first delimiter inclusive
type RawFrame []byte

// ReadPolicy bounds how long a frame read may wait for the delimiter.
// A zero MaxIdleReads or Deadline leaves that limit unbounded.
type ReadPolicy struct {
	// MaxIdleReads is the number of consecutive zero-length reads tolerated
	MaxIdleReads int
	// Deadline bounds the total time spent waiting for one frame
	Deadline time.Duration
}

// DefaultReadPolicy gives up after ten consecutive read timeouts
func DefaultReadPolicy() ReadPolicy {
	return ReadPolicy{MaxIdleReads: DefaultMaxIdleReads}
}

// Framer accumulates reads and cuts them into frames on a delimiter.
// Bytes after the delimiter are kept for the next frame.
type Framer struct {
	delim      []byte
	policy     ReadPolicy
	buf        []byte
	scanned    int
	scannedFor []byte
	chunk      []byte
	now        func() time.Time
}

// NewFramer returns a Framer splitting on delim. An empty delim uses DefaultDelimiter.
func NewFramer(delim []byte, policy ReadPolicy) *Framer {
	if len(delim) == 0 {
		delim = []byte(DefaultDelimiter)
	}
	d := make([]byte, len(delim))
	copy(d, delim)
	return &Framer{
		delim:  d,
		policy: policy,
		chunk:  make([]byte, readChunkSize),
		now:    time.Now,
	}
}

// Buffered returns the number of retained bytes not yet returned as a frame
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset drops all retained bytes
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.scanned = 0
}

// next cuts a frame from the buffer if a full delim is present
func (f *Framer) next(delim []byte) (RawFrame, bool) {
	if !bytes.Equal(delim, f.scannedFor) {
		f.scanned = 0
		f.scannedFor = delim
	}
	from := f.scanned - (len(delim) - 1)
	if from < 0 {
		from = 0
	}
	idx := bytes.Index(f.buf[from:], delim)
	if idx < 0 {
		f.scanned = len(f.buf)
		return nil, false
	}
	end := from + idx + len(delim)
	frame := make(RawFrame, end)
	copy(frame, f.buf[:end])
	n := copy(f.buf, f.buf[end:])
	f.buf = f.buf[:n]
	f.scanned = 0
	return frame, true
}

// ReadFrame returns the next frame, reading from r as needed. A zero-length read is
// an idle read and is retried within the policy; any read error is returned as an IOError.
func (f *Framer) ReadFrame(r io.Reader) (RawFrame, error) {
	return f.ReadFrameUntil(r, f.delim)
}

// ReadFrameUntil is ReadFrame with marker in place of the configured delimiter
// for this one frame. An empty marker uses the configured delimiter.
func (f *Framer) ReadFrameUntil(r io.Reader, marker []byte) (RawFrame, error) {
	if len(marker) == 0 {
		marker = f.delim
	}
	if frame, ok := f.next(marker); ok {
		return frame, nil
	}
	var (
		idle  int
		start = f.now()
	)
	for {
		n, err := r.Read(f.chunk)
		if n > 0 {
			idle = 0
			f.buf = append(f.buf, f.chunk[:n]...)
			if frame, ok := f.next(marker); ok {
				return frame, nil
			}
		}
		if err != nil {
			return nil, &IOError{Op: "read", Err: err}
		}
		if n == 0 {
			idle++
			if f.policy.MaxIdleReads > 0 && idle >= f.policy.MaxIdleReads {
				return nil, &IOError{Op: "read", Err: ErrPromptTimeout}
			}
		}
		if f.policy.Deadline > 0 && f.now().Sub(start) >= f.policy.Deadline {
			return nil, &IOError{Op: "read", Err: ErrPromptTimeout}
		}
	}
}
