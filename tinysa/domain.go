package tinysa

import (
	"strconv"
	"strings"
)

// Domain is the set of arguments a command accepts. Validate returns the
// argument text to put on the wire, or ok=false if args fall outside the domain.
type Domain interface {
	Validate(args []string) (formatted string, ok bool)
	String() string
}

type noArgs struct{}

// NoArgs accepts only an empty argument list
func NoArgs() Domain { return noArgs{} }

func (noArgs) Validate(args []string) (string, bool) { return "", len(args) == 0 }

func (noArgs) String() string { return "no arguments" }

type fixed struct{ arg string }

// Fixed takes no caller argument and always sends arg
func Fixed(arg string) Domain { return fixed{arg: arg} }

func (f fixed) Validate(args []string) (string, bool) { return f.arg, len(args) == 0 }

func (fixed) String() string { return "no arguments" }

type enum []string

// Enum accepts exactly one of the listed literals
func Enum(values ...string) Domain { return enum(values) }

func (e enum) Validate(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	for _, v := range e {
		if args[0] == v {
			return v, true
		}
	}
	return "", false
}

func (e enum) String() string { return strings.Join(e, "|") }

// IntRange accepts a single integer in [Min, Max], or [Min, Max) when MaxExclusive is set
type IntRange struct {
	Min, Max     int64
	MaxExclusive bool
}

// Closed accepts lo <= v <= hi
func Closed(lo, hi int64) Domain { return IntRange{Min: lo, Max: hi} }

// HalfOpen accepts lo <= v < hi
func HalfOpen(lo, hi int64) Domain { return IntRange{Min: lo, Max: hi, MaxExclusive: true} }

func (r IntRange) Contains(v int64) bool {
	if v < r.Min {
		return false
	}
	if r.MaxExclusive {
		return v < r.Max
	}
	return v <= r.Max
}

func (r IntRange) Validate(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || !r.Contains(v) {
		return "", false
	}
	return strconv.FormatInt(v, 10), true
}

func (r IntRange) String() string {
	hi := r.Max
	if r.MaxExclusive {
		hi--
	}
	return strconv.FormatInt(r.Min, 10) + ".." + strconv.FormatInt(hi, 10)
}

type anyInt struct{}

// AnyInt accepts any single integer
func AnyInt() Domain { return anyInt{} }

func (anyInt) Validate(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(v, 10), true
}

func (anyInt) String() string { return "{integer}" }

type union []Domain

// OneOf accepts args matching any of the given domains, tried in order
func OneOf(domains ...Domain) Domain { return union(domains) }

func (u union) Validate(args []string) (string, bool) {
	for _, d := range u {
		if s, ok := d.Validate(args); ok {
			return s, true
		}
	}
	return "", false
}

func (u union) String() string {
	parts := make([]string, len(u))
	for i, d := range u {
		parts[i] = d.String()
	}
	return strings.Join(parts, "|")
}

type optional struct{ inner Domain }

// Optional accepts no argument (a query) or an argument accepted by d
func Optional(d Domain) Domain { return optional{inner: d} }

func (o optional) Validate(args []string) (string, bool) {
	if len(args) == 0 {
		return "", true
	}
	return o.inner.Validate(args)
}

func (o optional) String() string { return "[" + o.inner.String() + "]" }

// Auto is the sentinel several commands accept in place of a number
const Auto = "auto"
