/*
Author: Paul Côté
Last Change Author: Paul Côté
Last Date Changed: 2026/10/14
*/

package tinysa

import (
	"sort"
	"strings"
)

/*
For more information on the tinySA shell commands, please visit https://www.tinysa.org/wiki/pmwiki.php?n=Main.USBInterface
*/

const commandSuffix = "\r\n"

// ReplyKind describes what a command sends back between the echo and the prompt
type ReplyKind int

const (
	ReplyText ReplyKind = iota
	ReplyBinary
	ReplyNone
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyBinary:
		return "binary"
	case ReplyNone:
		return "none"
	}
	return "unknown"
}

// CommandDescriptor is the static description of one shell command
type CommandDescriptor struct {
	Name   string
	Usage  string
	Domain Domain
	Reply  ReplyKind
	// WriteOnly commands get no prompt back, the device reboots or goes silent
	WriteOnly bool
	// Unimplemented commands have no validated argument handling yet
	Unimplemented bool
}

// Format renders the wire command for already validated argument text
func (d *CommandDescriptor) Format(arg string) string {
	if arg == "" {
		return d.Name + commandSuffix
	}
	return d.Name + " " + arg + commandSuffix
}

// Validate checks args against the command domain and returns the wire command
func (d *CommandDescriptor) Validate(args ...string) (string, error) {
	if d.Unimplemented {
		return "", &NotImplementedError{Command: d.Name, Usage: d.Usage}
	}
	arg, ok := d.Domain.Validate(args)
	if !ok {
		return "", &ValidationError{Command: d.Name, Args: args, Accepted: d.Domain.String()}
	}
	return d.Format(arg), nil
}

func simple(name, usage string, reply ReplyKind) CommandDescriptor {
	return CommandDescriptor{Name: name, Usage: usage, Domain: NoArgs(), Reply: reply}
}

func withArg(name, usage string, d Domain) CommandDescriptor {
	return CommandDescriptor{Name: name, Usage: usage, Domain: d, Reply: ReplyNone}
}

func unimplemented(name, usage string) CommandDescriptor {
	return CommandDescriptor{Name: name, Usage: usage, Unimplemented: true}
}

var (
	onOff   = Enum("on", "off")
	presets = Enum("0", "1", "2", "3", "4")
)

var builtinCommands = []CommandDescriptor{
	simple("actual_freq", "actual_freq", ReplyText),
	withArg("agc", "agc 0..7|auto", OneOf(Enum(Auto), HalfOpen(0, 8))),
	withArg("attenuate", "attenuate [auto|0-31]", OneOf(Enum(Auto), HalfOpen(0, 31))),
	withArg("caloutput", "caloutput off|30|15|10|4|3|2|1", Enum("off", "1", "2", "3", "4", "10", "15", "30")),
	simple("capture", "capture", ReplyBinary),
	{Name: "clearconfig", Usage: "clearconfig 1234", Domain: Fixed("1234"), Reply: ReplyText},
	{Name: "dac", Usage: "dac [0..4095]", Domain: Optional(Closed(0, 4095)), Reply: ReplyText},
	{Name: "data", Usage: "data [0-2]", Domain: Enum("0", "1", "2"), Reply: ReplyText},
	{Name: "deviceid", Usage: "deviceid [{number}]", Domain: Optional(AnyInt()), Reply: ReplyText},
	withArg("ext_gain", "ext_gain -100..100", Closed(-100, 100)),
	withArg("freq", "freq {frequency}", Closed(100_000, 5_300_000_000)),
	simple("freq_corr", "freq_corr", ReplyText),
	simple("frequencies", "frequencies", ReplyText),
	simple("help", "help", ReplyText),
	withArg("if", "if ( 0 | 433M..435M )", OneOf(Closed(0, 0), Closed(433_000_000, 435_000_000))),
	withArg("if1", "if1 {975M..979M}", OneOf(Closed(0, 0), Closed(975_000_000, 979_000_000))),
	simple("info", "info", ReplyText),
	withArg("levelchange", "levelchange -70..+70", HalfOpen(-70, 71)),
	withArg("load", "load [0-4]", presets),
	withArg("lna", "lna off|on", onOff),
	withArg("lna2", "lna2 0..7|auto", OneOf(Enum(Auto), Enum("0", "1", "2", "3", "4", "5", "6", "7"))),
	simple("nf", "nf {value}", ReplyText),
	withArg("output", "output on|off", onOff),
	simple("pause", "pause", ReplyNone),
	withArg("rbw", "rbw auto|3..600", OneOf(Enum(Auto), Closed(3_000, 600_000))),
	withArg("recall", "recall [0-4]", presets),
	withArg("refresh", "refresh on|off", onOff),
	simple("release", "release", ReplyNone),
	simple("repeat", "repeat", ReplyNone),
	{Name: "reset", Usage: "reset", Domain: NoArgs(), Reply: ReplyNone, WriteOnly: true},
	simple("resume", "resume", ReplyNone),
	withArg("save", "save [0-4]", presets),
	simple("saveconfig", "saveconfig", ReplyText),
	simple("sd_list", "sd_list", ReplyText),
	{Name: "selftest", Usage: "selftest 0 0..9", Domain: Enum("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"), Reply: ReplyText},
	withArg("spur", "spur on|off", onOff),
	simple("status", "status", ReplyText),
	simple("threads", "threads", ReplyText),
	simple("touchcal", "touchcal", ReplyNone),
	simple("touchtest", "touchtest", ReplyNone),
	simple("usart_cfg", "usart_cfg", ReplyText),
	simple("vbat", "vbat", ReplyText),
	{Name: "vbat_offset", Usage: "vbat_offset [{0..4095}]", Domain: Optional(Closed(0, 4095)), Reply: ReplyText},
	simple("version", "version", ReplyText),
	simple("wait", "wait", ReplyNone),

	unimplemented("bulk", "bulk\\r\\n{X}{Y}{Width}{Height}{Pixeldata}\\r\\n"),
	unimplemented("calc", "calc off|minh|maxh|maxd|aver4|aver16|quasip"),
	unimplemented("color", "color [{id} {rgb24}]"),
	unimplemented("correction", "correction [0..9 {frequency} {level}]"),
	unimplemented("direct", "direct {start|stop|on|off} {freq(Hz)}"),
	unimplemented("fill", "fill\\r\\n{X}{Y}{Width}{Height}{Color}\\r\\n"),
	unimplemented("hop", "hop {start(Hz)} {stop(Hz)} {step(Hz) | points} [outmask]"),
	unimplemented("level", "level -76..13"),
	unimplemented("leveloffset", "leveloffset low|high|switch [output] {error}"),
	unimplemented("line", "line off|{level}"),
	unimplemented("marker", "marker {id} on|off|peak|{freq}|{index}"),
	unimplemented("mode", "mode low|high input|output"),
	unimplemented("modulation", "modulation off|AM_1kHz|AM_10Hz|NFM|WFM|extern"),
	unimplemented("scan", "scan {start(Hz)} {stop(Hz)} [points] [outmask]"),
	unimplemented("scanraw", "scanraw {start(Hz)} {stop(Hz)} [points]"),
	unimplemented("sd_delete", "sd_delete {filename}"),
	unimplemented("sd_read", "sd_read {filename}"),
	unimplemented("sweep", "sweep [(start|stop|center|span|cw {frequency}) | ({start(Hz)} {stop(Hz)} [0..290])]"),
	unimplemented("sweeptime", "sweeptime {time(Seconds)}"),
	unimplemented("touch", "touch {X coordinate} {Y coordinate}"),
	unimplemented("trace", "trace [ {0..2} | dBm|dBmV|dBuV|V|W |store|clear|subtract | (scale|reflevel) auto|{level}"),
	unimplemented("trigger", "trigger auto|normal|single|{level(dBm)}"),
	unimplemented("ultra", "ultra off|on|auto|start|harm {freq}"),
	unimplemented("zero", "zero {level}"),
}

// Registry is an immutable lookup of command descriptors by name
type Registry struct {
	byName map[string]*CommandDescriptor
	names  []string
}

// NewRegistry indexes the descriptors. Later duplicates replace earlier ones.
func NewRegistry(cmds []CommandDescriptor) *Registry {
	r := &Registry{byName: make(map[string]*CommandDescriptor, len(cmds))}
	for i := range cmds {
		d := cmds[i]
		if _, ok := r.byName[d.Name]; !ok {
			r.names = append(r.names, d.Name)
		}
		r.byName[d.Name] = &d
	}
	sort.Strings(r.names)
	return r
}

var defaultRegistry = NewRegistry(builtinCommands)

// DefaultRegistry returns the registry of all known tinySA commands
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Lookup returns a copy of the descriptor for a command name
func (r *Registry) Lookup(name string) (CommandDescriptor, bool) {
	d, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return CommandDescriptor{}, false
	}
	return *d, true
}

// Names returns all command names in sorted order
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
