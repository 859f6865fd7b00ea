// Package rowql implements the tagged scalar value model shared by every
// other package in the module: the parser, the matcher, the row engine, and
// the CSV writer all operate on rowql.Value.
package rowql

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the rank of a Value in the cross-type ordering ladder:
// String < Real < Integer < DateTime < Boolean < Unknown.
type Type int

const (
	Unknown Type = iota
	String
	Real
	Integer
	Boolean
	DateTimeType
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Real:
		return "real"
	case Integer:
		return "int"
	case Boolean:
		return "bool"
	case DateTimeType:
		return "datetime"
	default:
		return "unknown"
	}
}

// rank returns the cross-type comparison order named in the data model:
// String < Real < Integer < DateTime < Boolean < Unknown.
func rank(t Type) int {
	switch t {
	case String:
		return 0
	case Real:
		return 1
	case Integer:
		return 2
	case DateTimeType:
		return 3
	case Boolean:
		return 4
	default:
		return 5
	}
}

// TypeJoin returns the more-restrictive of the two types in the ladder
// String ≺ Real ≺ Integer ≺ DateTime ≺ Boolean, used by type inference to
// pick the common operand type for binary operators.
func TypeJoin(a, b Type) Type {
	order := func(t Type) int {
		switch t {
		case String:
			return 0
		case Real:
			return 1
		case Integer:
			return 2
		case DateTimeType:
			return 3
		case Boolean:
			return 4
		default:
			return 0
		}
	}
	if order(a) >= order(b) {
		return a
	}
	return b
}

// DateTime is a packed calendar/clock value. Error is set whenever a
// component could not be parsed or fell out of range; an error DateTime
// compares unequal to every other DateTime, including another error one.
type DateTime struct {
	Error      bool
	DateOnly   bool
	Year       int
	Month      int
	Day        int
	Hour       int
	Minute     int
	Second     int
	Millis     int // 0-9999: first four fractional digits; further digits are dropped, not rounded
}

// Value is the tagged scalar that flows through the whole pipeline.
type Value struct {
	typ  Type
	str  string
	num  float64
	i    int64
	b    bool
	dt   DateTime
}

func NewString(s string) Value   { return Value{typ: String, str: s} }
func NewReal(f float64) Value    { return Value{typ: Real, num: f} }
func NewInteger(i int64) Value   { return Value{typ: Integer, i: i} }
func NewBoolean(b bool) Value    { return Value{typ: Boolean, b: b} }
func NewDateTime(d DateTime) Value { return Value{typ: DateTimeType, dt: d} }

var UnknownValue = Value{typ: Unknown}

func (v Value) Type() Type { return v.typ }

func (v Value) IsUnknown() bool { return v.typ == Unknown }

// AsString, AsReal, AsInteger, AsBoolean, AsDateTime convert v to the
// requested type: deterministic, lossy where necessary, and mapping
// unparseable strings to the target's zero.
func (v Value) AsString() string {
	switch v.typ {
	case String:
		return v.str
	case Real:
		return formatReal(v.num, 10)
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Boolean:
		if v.b {
			return "true"
		}
		return "false"
	case DateTimeType:
		return formatDateTime(v.dt)
	default:
		return ""
	}
}

func (v Value) AsReal() float64 {
	switch v.typ {
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0
		}
		return f
	case Real:
		return v.num
	case Integer:
		return float64(v.i)
	case Boolean:
		if v.b {
			return 1
		}
		return 0
	case DateTimeType:
		return float64(dateTimeToEpochSeconds(v.dt))
	default:
		return 0
	}
}

// AsInteger truncates Real toward zero and is exact for DateTime-to-epoch.
func (v Value) AsInteger() int64 {
	switch v.typ {
	case String:
		s := strings.TrimSpace(v.str)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return int64(f)
	case Real:
		return int64(v.num)
	case Integer:
		return v.i
	case Boolean:
		if v.b {
			return 1
		}
		return 0
	case DateTimeType:
		return dateTimeToEpochSeconds(v.dt)
	default:
		return 0
	}
}

// AsBoolean: true iff the string is non-empty, is not "false"
// (case-insensitive), and does not start with '0'.
func (v Value) AsBoolean() bool {
	switch v.typ {
	case String:
		s := v.str
		if s == "" {
			return false
		}
		if strings.EqualFold(s, "false") {
			return false
		}
		if s[0] == '0' {
			return false
		}
		return true
	case Real:
		return v.num != 0
	case Integer:
		return v.i != 0
	case Boolean:
		return v.b
	case DateTimeType:
		return !v.dt.Error
	default:
		return false
	}
}

func (v Value) AsDateTime() DateTime {
	switch v.typ {
	case String:
		return DateTimeFromString(v.str)
	case DateTimeType:
		return v.dt
	default:
		return epochSecondsToDateTime(v.AsInteger())
	}
}

// Convert produces a Value of the requested type using the same rules as
// the As* accessors.
func (v Value) Convert(t Type) Value {
	switch t {
	case String:
		return NewString(v.AsString())
	case Real:
		return NewReal(v.AsReal())
	case Integer:
		return NewInteger(v.AsInteger())
	case Boolean:
		return NewBoolean(v.AsBoolean())
	case DateTimeType:
		return NewDateTime(v.AsDateTime())
	default:
		return v
	}
}

func (v Value) String() string { return v.AsString() }

// Compare returns -1, 0, or 1. Ordering across differing types is by type
// rank; within a type, natural order. An error DateTime compares unequal
// (non-zero, arbitrarily -1 unless both sides are error, still unequal) to
// every DateTime including another error one.
func (v Value) Compare(o Value) int {
	if v.typ != o.typ {
		if rank(v.typ) < rank(o.typ) {
			return -1
		}
		return 1
	}
	switch v.typ {
	case String:
		return strings.Compare(v.str, o.str)
	case Real:
		return cmpFloat(v.num, o.num)
	case Integer:
		switch {
		case v.i < o.i:
			return -1
		case v.i > o.i:
			return 1
		default:
			return 0
		}
	case Boolean:
		if v.b == o.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case DateTimeType:
		return compareDateTime(v.dt, o.dt)
	default:
		return 0
	}
}

func (v Value) Equal(o Value) bool { return v.Compare(o) == 0 }

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareDateTime(a, b DateTime) int {
	if a.Error || b.Error {
		return -1 // error never equals; direction is arbitrary but deterministic
	}
	as, bs := dateTimeToEpochSeconds(a), dateTimeToEpochSeconds(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	case a.Millis != b.Millis:
		if a.Millis < b.Millis {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Arithmetic helpers used by the operator evaluator (package expr). Division
// by zero yields NaN for Real and 0 for Integer; modulo by zero yields -1.

func DivReal(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

func DivInteger(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func ModInteger(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	return a % b
}

// RoundAwayFromZero implements round(x, d): banker-style away-from-zero at
// the d-th decimal digit.
func RoundAwayFromZero(x float64, d int) float64 {
	scale := math.Pow(10, float64(d))
	v := x * scale
	if v >= 0 {
		return math.Floor(v+0.5) / scale
	}
	return math.Ceil(v-0.5) / scale
}

// formatReal mirrors ToString(double,precision): fixed precision, trailing
// zeros trimmed but one digit is always kept after the decimal point.
func formatReal(f float64, precision int) string {
	if math.IsNaN(f) {
		return "nan"
	}
	s := strconv.FormatFloat(f, 'f', precision, 64)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s %q}", v.typ, v.AsString())
}
