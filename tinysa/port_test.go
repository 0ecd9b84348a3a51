package tinysa

import (
	"bytes"
	"io"
	"sync"
)

// scriptedPort replays a fixed sequence of read results and records writes.
// An empty chunk is an idle read. Once the script runs out reads are idle.
type scriptedPort struct {
	mu      sync.Mutex
	reads   [][]byte
	readErr error
	written bytes.Buffer
	writeN  int
	closed  bool
}

func newScriptedPort(chunks ...string) *scriptedPort {
	p := &scriptedPort{writeN: -1}
	for _, c := range chunks {
		p.reads = append(p.reads, []byte(c))
	}
	return p
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reads) == 0 {
		if p.readErr != nil {
			return 0, p.readErr
		}
		return 0, nil
	}
	chunk := p.reads[0]
	n := copy(b, chunk)
	if n < len(chunk) {
		p.reads[0] = chunk[n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.written.Write(b)
	if p.writeN >= 0 {
		return p.writeN, nil
	}
	return len(b), nil
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *scriptedPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// splitEvery cuts s into chunks of n bytes
func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}
