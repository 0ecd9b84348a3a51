package tinysa

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"time"

	fmtderrors "github.com/SSSOC-CAN/fmtd/errors"
	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

const (
	BackendSerial = "serial"
	BackendTarm   = "tarm"
	BackendTCP    = "tcp"

	DefaultBaudRate = 115200
	DefaultTimeout  = time.Second
	tcpScheme       = "tcp://"
)

// Port is a byte stream to the device. Read returns 0, nil when the inactivity
// timeout expires with no data.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a Port by name with the given inactivity timeout
type Opener func(name string, baud int, timeout time.Duration) (Port, error)

// backendFor picks the backend for a port name. tcp:// names always use the TCP bridge.
func backendFor(name, backend string) (Opener, error) {
	if strings.HasPrefix(name, tcpScheme) {
		return openTCP, nil
	}
	switch backend {
	case "", BackendSerial:
		return openSerial, nil
	case BackendTarm:
		return openTarm, nil
	case BackendTCP:
		return openTCP, nil
	}
	return nil, ErrUnknownBackend
}

type serialPort struct {
	serial.Port
}

// openSerial opens a go.bug.st/serial port, whose reads already return 0, nil on timeout
func openSerial(name string, baud int, timeout time.Duration) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, err
	}
	return &serialPort{p}, nil
}

// tarmPort wraps a *tarm.Port
type tarmPort struct {
	io.ReadWriteCloser
}

// Read maps the io.EOF tarm/serial returns on an expired timeout to an idle read
func (p *tarmPort) Read(b []byte) (int, error) {
	n, err := p.ReadWriteCloser.Read(b)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

func openTarm(name string, baud int, timeout time.Duration) (Port, error) {
	p, err := tarm.OpenPort(&tarm.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return &tarmPort{p}, nil
}

type tcpPort struct {
	*net.TCPConn
	timeout time.Duration
}

func (p *tcpPort) Read(b []byte) (int, error) {
	if p.timeout > 0 {
		if err := p.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
			return 0, err
		}
	}
	n, err := p.TCPConn.Read(b)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

// openTCP dials a serial-over-network bridge such as ser2net
func openTCP(name string, _ int, timeout time.Duration) (Port, error) {
	c, err := net.Dial("tcp", strings.TrimPrefix(name, tcpScheme))
	if err != nil {
		return nil, err
	}
	cAssert, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, fmtderrors.ErrInvalidType
	}
	return &tcpPort{TCPConn: cAssert, timeout: timeout}, nil
}
