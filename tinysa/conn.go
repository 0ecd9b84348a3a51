package tinysa

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Connection
type Option func(*options)

type options struct {
	backend string
	baud    int
	policy  ReadPolicy
	delim   []byte
	logger  zerolog.Logger
	opener  Opener
}

// WithBackend selects the transport backend: serial, tarm or tcp
func WithBackend(backend string) Option {
	return func(o *options) { o.backend = backend }
}

// WithBaudRate sets the serial line rate
func WithBaudRate(baud int) Option {
	return func(o *options) { o.baud = baud }
}

// WithReadPolicy sets the give-up policy for frame reads
func WithReadPolicy(p ReadPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithPromptMarker sets the byte sequence that ends a frame
func WithPromptMarker(marker string) Option {
	return func(o *options) { o.delim = []byte(marker) }
}

// WithLogger sets the logger used for transport events
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOpener replaces the backend with a custom port opener
func WithOpener(op Opener) Option {
	return func(o *options) { o.opener = op }
}

// Connection is an exclusively owned session with one device.
// Commands are serialized; one is in flight at a time.
type Connection struct {
	mu     sync.Mutex
	name   string
	port   Port
	framer *Framer
	log    zerolog.Logger
	closed bool
}

// Open acquires the port with the inactivity timeout applied to every read
func Open(name string, timeout time.Duration, opts ...Option) (*Connection, error) {
	o := options{
		baud:   DefaultBaudRate,
		policy: DefaultReadPolicy(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opener := o.opener
	if opener == nil {
		var err error
		opener, err = backendFor(name, o.backend)
		if err != nil {
			return nil, &ConnectError{Port: name, Err: err}
		}
	}
	port, err := opener(name, o.baud, timeout)
	if err != nil {
		return nil, &ConnectError{Port: name, Err: err}
	}
	o.logger.Debug().Str("port", name).Dur("timeout", timeout).Msg("tinySA port opened")
	return NewConnection(name, port, o.policy, o.delim, o.logger), nil
}

// NewConnection wraps an already open port
func NewConnection(name string, port Port, policy ReadPolicy, delim []byte, logger zerolog.Logger) *Connection {
	return &Connection{
		name:   name,
		port:   port,
		framer: NewFramer(delim, policy),
		log:    logger.With().Str("port", name).Logger(),
	}
}

// Name returns the port identifier the connection was opened with
func (c *Connection) Name() string {
	return c.name
}

// Close releases the port. Further use returns ErrClosed.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.port.Close()
}

// Discard drops bytes retained from earlier reads
func (c *Connection) Discard() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.framer.Buffered()
	c.framer.Reset()
	return n
}

func (c *Connection) write(cmd string) error {
	b := []byte(cmd)
	n, err := c.port.Write(b)
	if err != nil {
		c.log.Error().Err(err).Str("cmd", cmd).Msg("write failed")
		return &IOError{Op: "write", Err: err}
	}
	if n != len(b) {
		return &IOError{Op: "write", Err: ErrShortWrite}
	}
	return nil
}

// WriteCommand writes cmd without waiting for a reply
func (c *Connection) WriteCommand(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.write(cmd)
}

// SendCommand writes cmd, which must already end in "\r\n", and blocks until one
// complete frame has been read
func (c *Connection) SendCommand(cmd string) (RawFrame, error) {
	return c.SendCommandUntil(cmd, nil)
}

// SendCommandUntil is SendCommand with the frame ending at marker instead of the
// connection's prompt marker
func (c *Connection) SendCommandUntil(cmd string, marker []byte) (RawFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := c.write(cmd); err != nil {
		return nil, err
	}
	frame, err := c.framer.ReadFrameUntil(c.port, marker)
	if err != nil {
		c.log.Error().Err(err).Str("cmd", cmd).Int("buffered", c.framer.Buffered()).Msg("frame read failed")
		return nil, err
	}
	c.log.Debug().Int("bytes", len(frame)).Int("retained", c.framer.Buffered()).Msg("frame received")
	return frame, nil
}
