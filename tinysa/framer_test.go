package tinysa

import (
	"errors"
	"io"
	"testing"
	"time"
)

const versionReply = "version\r\n1.2.3\r\nch>"

func TestReadFrameFragmentation(t *testing.T) {
	wire := "capture\r\n\x00\x01\x02\x03\xff\xfe\r\nch>"
	tests := []struct {
		name   string
		chunks []string
	}{
		{"single read", []string{wire}},
		{"one byte at a time", splitEvery(wire, 1)},
		{"three reads", []string{wire[:5], wire[5:12], wire[12:]}},
		{"split right before delimiter", []string{wire[:len(wire)-1], wire[len(wire)-1:]}},
		{"idle reads between chunks", []string{wire[:4], "", "", wire[4:10], "", wire[10:]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFramer(nil, DefaultReadPolicy())
			frame, err := f.ReadFrame(newScriptedPort(tt.chunks...))
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if string(frame) != wire {
				t.Errorf("frame = %q, want %q", frame, wire)
			}
			if f.Buffered() != 0 {
				t.Errorf("buffered = %d, want 0", f.Buffered())
			}
		})
	}
}

func TestReadFrameMultiByteMarkerSplit(t *testing.T) {
	wire := "info\r\na>b\r\nch>"
	for size := 1; size <= len(wire); size++ {
		f := NewFramer([]byte("ch>"), DefaultReadPolicy())
		frame, err := f.ReadFrame(newScriptedPort(splitEvery(wire, size)...))
		if err != nil {
			t.Fatalf("chunk size %d: %v", size, err)
		}
		if string(frame) != wire {
			t.Errorf("chunk size %d: frame = %q, want %q", size, frame, wire)
		}
	}
}

func TestReadFramePipelined(t *testing.T) {
	first := "status\r\nResumed\r\nch>"
	second := "vbat\r\n4132 mV\r\nch>"
	port := newScriptedPort(first + second[:6])
	port.reads = append(port.reads, []byte(second[6:]))
	f := NewFramer(nil, DefaultReadPolicy())

	frame, err := f.ReadFrame(port)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if string(frame) != first {
		t.Errorf("first frame = %q, want %q", frame, first)
	}
	if f.Buffered() != 6 {
		t.Errorf("retained = %d, want 6", f.Buffered())
	}
	frame, err = f.ReadFrame(port)
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if string(frame) != second {
		t.Errorf("second frame = %q, want %q", frame, second)
	}
}

func TestReadFrameFromRetainedOnly(t *testing.T) {
	both := "pause\r\nch>resume\r\nch>"
	port := newScriptedPort(both)
	f := NewFramer(nil, DefaultReadPolicy())
	if _, err := f.ReadFrame(port); err != nil {
		t.Fatal(err)
	}
	// nothing left to read, the second frame must come from the buffer
	frame, err := f.ReadFrame(port)
	if err != nil {
		t.Fatalf("retained frame: %v", err)
	}
	if string(frame) != "resume\r\nch>" {
		t.Errorf("frame = %q", frame)
	}
}

func TestReadFrameGivesUpAfterIdleReads(t *testing.T) {
	port := newScriptedPort("version\r\n1.2")
	f := NewFramer(nil, ReadPolicy{MaxIdleReads: 3})
	_, err := f.ReadFrame(port)
	if !errors.Is(err, ErrPromptTimeout) {
		t.Fatalf("err = %v, want ErrPromptTimeout", err)
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("err = %v, want it to be an IOError", err)
	}
	if f.Buffered() != len("version\r\n1.2") {
		t.Errorf("partial bytes dropped: buffered = %d", f.Buffered())
	}
}

func TestReadFrameDeadline(t *testing.T) {
	f := NewFramer(nil, ReadPolicy{Deadline: time.Second})
	now := time.Unix(0, 0)
	f.now = func() time.Time {
		now = now.Add(300 * time.Millisecond)
		return now
	}
	_, err := f.ReadFrame(newScriptedPort())
	if !errors.Is(err, ErrPromptTimeout) {
		t.Fatalf("err = %v, want ErrPromptTimeout", err)
	}
}

func TestReadFrameTransportError(t *testing.T) {
	port := newScriptedPort("vers")
	port.readErr = io.ErrUnexpectedEOF
	f := NewFramer(nil, ReadPolicy{})
	_, err := f.ReadFrame(port)
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("err = %v, want *IOError", err)
	}
	if ioErr.Op != "read" || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v", err)
	}
}

func TestReadFrameUntilMarker(t *testing.T) {
	wire := "capture\r\n\x01>\x02>\r\nch>"
	for size := 1; size <= len(wire); size++ {
		f := NewFramer(nil, DefaultReadPolicy())
		frame, err := f.ReadFrameUntil(newScriptedPort(splitEvery(wire, size)...), []byte(Prompt))
		if err != nil {
			t.Fatalf("chunk size %d: %v", size, err)
		}
		if string(frame) != wire {
			t.Errorf("chunk size %d: frame = %q", size, frame)
		}
	}
}

func TestReadFrameUntilRescansForNewMarker(t *testing.T) {
	f := NewFramer(nil, ReadPolicy{MaxIdleReads: 1})
	// "ch>" is buffered but the first read waits for a different marker
	if _, err := f.ReadFrameUntil(newScriptedPort("echo\r\nch>"), []byte("zz>")); !errors.Is(err, ErrPromptTimeout) {
		t.Fatalf("err = %v, want ErrPromptTimeout", err)
	}
	frame, err := f.ReadFrameUntil(newScriptedPort(), []byte(Prompt))
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if string(frame) != "echo\r\nch>" {
		t.Errorf("frame = %q", frame)
	}
}
