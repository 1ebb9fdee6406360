package value

import (
	"math"
	"strconv"
	"strings"
)

// canonicalNaN is the single bit pattern every NaN hashes as.
const canonicalNaN = 0x7ff8000000000001

// Float wraps a float64 in a total order so it can take part in equality,
// ordering and hashing: all NaNs are equal to each other and greater than
// +Inf, and -0 equals +0.
type Float struct {
	f float64
}

// FloatOf returns a Float holding f.
func FloatOf(f float64) Float {
	return Float{f: f}
}

// Float64 returns the wrapped number unchanged, including the sign of zero
// and the NaN payload.
func (f Float) Float64() float64 { return f.f }

// IsNaN reports whether f holds a NaN.
func (f Float) IsNaN() bool { return math.IsNaN(f.f) }

// Compare orders two floats: -1, 0 or 1.
func (f Float) Compare(g Float) int {
	fn, gn := math.IsNaN(f.f), math.IsNaN(g.f)
	switch {
	case fn && gn:
		return 0
	case fn:
		return 1
	case gn:
		return -1
	case f.f < g.f:
		return -1
	case f.f > g.f:
		return 1
	default:
		return 0
	}
}

// bits returns the representation used for hashing: one pattern for every
// NaN and one for both zeros.
func (f Float) bits() uint64 {
	switch {
	case math.IsNaN(f.f):
		return canonicalNaN
	case f.f == 0:
		return 0
	default:
		return math.Float64bits(f.f)
	}
}

func (f Float) String() string {
	s := strconv.FormatFloat(f.f, 'g', -1, 64)
	if math.IsNaN(f.f) || math.IsInf(f.f, 0) {
		return s
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
