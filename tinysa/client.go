package tinysa

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Transport is what the Client needs from a Connection
type Transport interface {
	SendCommand(cmd string) (RawFrame, error)
	SendCommandUntil(cmd string, marker []byte) (RawFrame, error)
	WriteCommand(cmd string) error
}

var _ Transport = (*Connection)(nil)

// binary payloads may hold '>' so they end only at the full prompt
var binaryMarker = []byte(Prompt)

// Client validates commands against a Registry and dispatches them over a Transport
type Client struct {
	t   Transport
	reg *Registry
	log zerolog.Logger
}

// NewClient returns a Client using the default command registry
func NewClient(t Transport, logger zerolog.Logger) *Client {
	return &Client{t: t, reg: DefaultRegistry(), log: logger}
}

// NewClientWithRegistry returns a Client using reg for command lookup
func NewClientWithRegistry(t Transport, reg *Registry, logger zerolog.Logger) *Client {
	return &Client{t: t, reg: reg, log: logger}
}

// Registry returns the command registry the client validates against
func (c *Client) Registry() *Registry {
	return c.reg
}

// Execute validates args for the named command, sends it and returns the normalized payload.
// Validation and NotImplemented failures happen before any I/O.
func (c *Client) Execute(name string, args ...string) ([]byte, error) {
	d, ok := c.reg.Lookup(name)
	if !ok {
		recordCommand(unknownCommandLabel, outcomeUnknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	cmd, err := d.Validate(args...)
	if err != nil {
		if errors.Is(err, ErrNotImplemented) {
			recordCommand(d.Name, outcomeUnimplemented)
		} else {
			recordCommand(d.Name, outcomeInvalid)
		}
		c.log.Debug().Err(err).Str("command", d.Name).Msg("command rejected")
		return nil, err
	}
	if d.WriteOnly {
		if err := c.t.WriteCommand(cmd); err != nil {
			recordCommand(d.Name, outcomeTransportFault)
			return nil, err
		}
		recordCommand(d.Name, outcomeOK)
		return nil, nil
	}
	start := time.Now()
	var frame RawFrame
	if d.Reply == ReplyBinary {
		frame, err = c.t.SendCommandUntil(cmd, binaryMarker)
	} else {
		frame, err = c.t.SendCommand(cmd)
	}
	if err != nil {
		recordCommand(d.Name, outcomeTransportFault)
		return nil, err
	}
	recordFrame(d.Name, len(frame), time.Since(start))
	recordCommand(d.Name, outcomeOK)
	return Normalize(frame), nil
}

type OnOff string

const (
	On  OnOff = "on"
	Off OnOff = "off"
)

type CalOutput string

const (
	CalOff   CalOutput = "off"
	Cal1MHz  CalOutput = "1"
	Cal2MHz  CalOutput = "2"
	Cal3MHz  CalOutput = "3"
	Cal4MHz  CalOutput = "4"
	Cal10MHz CalOutput = "10"
	Cal15MHz CalOutput = "15"
	Cal30MHz CalOutput = "30"
)

type TraceSource int

const (
	TraceTemp        TraceSource = 0
	TraceStored      TraceSource = 1
	TraceMeasurement TraceSource = 2
)

func itoa(v int) string { return strconv.Itoa(v) }

// ActualFreq returns the actual frequency
func (c *Client) ActualFreq() ([]byte, error) {
	return c.Execute("actual_freq")
}

// Agc sets the AGC to a value in 0..7
func (c *Client) Agc(val int) ([]byte, error) {
	return c.Execute("agc", itoa(val))
}

// AgcAuto sets the AGC to automatic
func (c *Client) AgcAuto() ([]byte, error) {
	return c.Execute("agc", Auto)
}

// Attenuate sets the internal attenuation in dB
func (c *Client) Attenuate(val int) ([]byte, error) {
	return c.Execute("attenuate", itoa(val))
}

// AttenuateAuto sets the internal attenuation to automatic
func (c *Client) AttenuateAuto() ([]byte, error) {
	return c.Execute("attenuate", Auto)
}

// CalOutput disables or sets the calibration output frequency in MHz
func (c *Client) CalOutput(val CalOutput) ([]byte, error) {
	return c.Execute("caloutput", string(val))
}

// Capture requests a 320x240 screen dump, 2 bytes per pixel. The payload is returned as is.
func (c *Client) Capture() ([]byte, error) {
	return c.Execute("capture")
}

// ClearConfig resets the configuration to factory defaults
func (c *Client) ClearConfig() ([]byte, error) {
	return c.Execute("clearconfig")
}

// Dac returns the current dac value
func (c *Client) Dac() ([]byte, error) {
	return c.Execute("dac")
}

// SetDac sets the dac value in 0..4095
func (c *Client) SetDac(val int) ([]byte, error) {
	return c.Execute("dac", itoa(val))
}

// Data dumps the trace data of the given source
func (c *Client) Data(src TraceSource) ([]byte, error) {
	return c.Execute("data", itoa(int(src)))
}

// DeviceID returns the user settable device id
func (c *Client) DeviceID() ([]byte, error) {
	return c.Execute("deviceid")
}

// SetDeviceID sets the user settable device id
func (c *Client) SetDeviceID(id int) ([]byte, error) {
	return c.Execute("deviceid", itoa(id))
}

// ExtGain sets the external attenuation/amplification in dB
func (c *Client) ExtGain(val int) ([]byte, error) {
	return c.Execute("ext_gain", itoa(val))
}

// Freq pauses the sweep and sets the measurement frequency in Hz
func (c *Client) Freq(hz int64) ([]byte, error) {
	return c.Execute("freq", strconv.FormatInt(hz, 10))
}

// FreqCorr returns the frequency correction
func (c *Client) FreqCorr() ([]byte, error) {
	return c.Execute("freq_corr")
}

// Frequencies dumps the frequencies used by the last sweep
func (c *Client) Frequencies() ([]byte, error) {
	return c.Execute("frequencies")
}

// Help dumps the list of available commands
func (c *Client) Help() ([]byte, error) {
	return c.Execute("help")
}

// SetIF sets the IF in Hz, 0 means automatic
func (c *Client) SetIF(hz int64) ([]byte, error) {
	return c.Execute("if", strconv.FormatInt(hz, 10))
}

// SetIF1 sets the first IF in Hz
func (c *Client) SetIF1(hz int64) ([]byte, error) {
	return c.Execute("if1", strconv.FormatInt(hz, 10))
}

// Info returns software and hardware information
func (c *Client) Info() ([]byte, error) {
	return c.Execute("info")
}

// LevelChange sets the output level delta for low output mode level sweep
func (c *Client) LevelChange(val int) ([]byte, error) {
	return c.Execute("levelchange", itoa(val))
}

// Load loads a stored preset, 0 is the startup preset
func (c *Client) Load(preset int) ([]byte, error) {
	return c.Execute("load", itoa(preset))
}

// LNA turns the LNA on or off
func (c *Client) LNA(state OnOff) ([]byte, error) {
	return c.Execute("lna", string(state))
}

// LNA2 sets lna2 to a value in 0..7
func (c *Client) LNA2(val int) ([]byte, error) {
	return c.Execute("lna2", itoa(val))
}

// LNA2Auto sets lna2 to automatic
func (c *Client) LNA2Auto() ([]byte, error) {
	return c.Execute("lna2", Auto)
}

// NF returns the noise figure
func (c *Client) NF() ([]byte, error) {
	return c.Execute("nf")
}

// Output turns the output on or off
func (c *Client) Output(state OnOff) ([]byte, error) {
	return c.Execute("output", string(state))
}

// Pause pauses sweeping in either input or output mode
func (c *Client) Pause() ([]byte, error) {
	return c.Execute("pause")
}

// RBW sets the resolution bandwidth
func (c *Client) RBW(val int) ([]byte, error) {
	return c.Execute("rbw", itoa(val))
}

// RBWAuto sets the resolution bandwidth to automatic
func (c *Client) RBWAuto() ([]byte, error) {
	return c.Execute("rbw", Auto)
}

// Recall loads a stored preset, 0 is the startup preset
func (c *Client) Recall(preset int) ([]byte, error) {
	return c.Execute("recall", itoa(preset))
}

// Refresh enables or disables auto refresh mode
func (c *Client) Refresh(state OnOff) ([]byte, error) {
	return c.Execute("refresh", string(state))
}

// Release signals the removal of a touch
func (c *Client) Release() ([]byte, error) {
	return c.Execute("release")
}

// Repeat sends the repeat command
func (c *Client) Repeat() ([]byte, error) {
	return c.Execute("repeat")
}

// Reset reboots the device. No reply is read; the port should be closed afterwards.
func (c *Client) Reset() error {
	_, err := c.Execute("reset")
	return err
}

// Resume resumes sweeping in either input or output mode
func (c *Client) Resume() ([]byte, error) {
	return c.Execute("resume")
}

// Save saves the current setting to a preset
func (c *Client) Save(preset int) ([]byte, error) {
	return c.Execute("save", itoa(preset))
}

// SaveConfig saves the device configuration data
func (c *Client) SaveConfig() ([]byte, error) {
	return c.Execute("saveconfig")
}

// SDList lists files on the sd card with their sizes
func (c *Client) SDList() ([]byte, error) {
	return c.Execute("sd_list")
}

// SelfTest runs one self test, 0 runs all. CAL must be connected to RF.
func (c *Client) SelfTest(test int) ([]byte, error) {
	c.log.Warn().Int("test", test).Msg("self test running, connect CAL to RF")
	return c.Execute("selftest", itoa(test))
}

// Spur enables or disables spur reduction
func (c *Client) Spur(state OnOff) ([]byte, error) {
	return c.Execute("spur", string(state))
}

// Status returns the device status, paused or resumed
func (c *Client) Status() ([]byte, error) {
	return c.Execute("status")
}

// Threads lists the device threads
func (c *Client) Threads() ([]byte, error) {
	return c.Execute("threads")
}

// TouchCal starts touch calibration
func (c *Client) TouchCal() ([]byte, error) {
	return c.Execute("touchcal")
}

// TouchTest starts the touch test
func (c *Client) TouchTest() ([]byte, error) {
	return c.Execute("touchtest")
}

// USARTConfig returns the serial configuration
func (c *Client) USARTConfig() ([]byte, error) {
	return c.Execute("usart_cfg")
}

// VBat returns the battery voltage
func (c *Client) VBat() ([]byte, error) {
	return c.Execute("vbat")
}

// VBatOffset returns the battery offset value
func (c *Client) VBatOffset() ([]byte, error) {
	return c.Execute("vbat_offset")
}

// SetVBatOffset sets the battery offset value in 0..4095
func (c *Client) SetVBatOffset(val int) ([]byte, error) {
	return c.Execute("vbat_offset", itoa(val))
}

// Version returns the version text
func (c *Client) Version() ([]byte, error) {
	return c.Execute("version")
}

// Wait sends the wait command
func (c *Client) Wait() ([]byte, error) {
	return c.Execute("wait")
}
