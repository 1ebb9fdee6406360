package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadNumber is returned by the number parsers for text that is not a
// numeral the engine accepts.
var ErrBadNumber = errors.New("malformed number")

// Integer is an arbitrary-precision integer kept in the engine's canonical
// decimal form: an optional minus sign followed by digits with no leading
// zeros. The zero value is 0.
type Integer struct {
	numeral string
}

// Rational is an arbitrary-precision fraction. The denominator is always
// positive; the engine does not reduce fractions, so 2/4 and 1/2 are distinct
// numerals here.
type Rational struct {
	num Integer
	den Integer
}

// ParseInteger reads a decimal integer numeral. A leading '+' or '-' is
// accepted; leading zeros are dropped and negative zero becomes 0.
func ParseInteger(text string) (Integer, error) {
	s := text
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return Integer{}, fmt.Errorf("%w: integer %q", ErrBadNumber, text)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Integer{}, fmt.Errorf("%w: integer %q", ErrBadNumber, text)
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return Integer{}, nil
	}
	if neg {
		s = "-" + s
	}
	return Integer{numeral: s}, nil
}

// IntegerFromInt64 converts a machine integer.
func IntegerFromInt64(n int64) Integer {
	if n == 0 {
		return Integer{}
	}
	return Integer{numeral: strconv.FormatInt(n, 10)}
}

// String returns the canonical decimal numeral.
func (i Integer) String() string {
	if i.numeral == "" {
		return "0"
	}
	return i.numeral
}

// Sign returns -1, 0 or 1.
func (i Integer) Sign() int {
	switch {
	case i.numeral == "":
		return 0
	case i.numeral[0] == '-':
		return -1
	default:
		return 1
	}
}

// Int64 returns i as an int64 when it fits.
func (i Integer) Int64() (int64, bool) {
	n, err := strconv.ParseInt(i.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseRational reads "N/D" or a bare integer numeral "N" (denominator 1).
// The sign belongs to the numerator; the denominator must be positive.
func ParseRational(text string) (Rational, error) {
	numText, denText, hasSlash := strings.Cut(text, "/")
	num, err := ParseInteger(numText)
	if err != nil {
		return Rational{}, fmt.Errorf("%w: rational %q", ErrBadNumber, text)
	}
	if !hasSlash {
		return Rational{num: num, den: IntegerFromInt64(1)}, nil
	}
	if denText == "" || denText[0] == '-' || denText[0] == '+' {
		return Rational{}, fmt.Errorf("%w: rational %q", ErrBadNumber, text)
	}
	den, err := ParseInteger(denText)
	if err != nil || den.Sign() == 0 {
		return Rational{}, fmt.Errorf("%w: rational %q", ErrBadNumber, text)
	}
	return Rational{num: num, den: den}, nil
}

// Num returns the numerator.
func (r Rational) Num() Integer { return r.num }

// Den returns the denominator. The zero Rational reports 1.
func (r Rational) Den() Integer {
	if r.den.Sign() == 0 {
		return IntegerFromInt64(1)
	}
	return r.den
}

// String returns "N/D".
func (r Rational) String() string {
	return r.num.String() + "/" + r.Den().String()
}
