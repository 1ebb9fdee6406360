package value

import (
	"math"
	"math/big"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatTotalOrder(t *testing.T) {
	nan1 := FloatOf(math.NaN())
	nan2 := FloatOf(math.Float64frombits(0x7ff0000000000123))
	require.True(t, math.IsNaN(nan2.Float64()))

	assert.True(t, Equal(nan1, nan2), "NaN equals NaN")
	assert.Equal(t, Hash(nan1), Hash(nan2))
	assert.False(t, Equal(nan1, FloatOf(1.5)))
	assert.False(t, Equal(nan1, FloatOf(math.Inf(1))))
	assert.Equal(t, 1, Compare(nan1, FloatOf(math.Inf(1))), "NaN sorts above +Inf")
	assert.Equal(t, -1, Compare(FloatOf(math.Inf(-1)), FloatOf(-1e308)))

	negZero := FloatOf(math.Copysign(0, -1))
	assert.True(t, Equal(negZero, FloatOf(0)))
	assert.Equal(t, Hash(negZero), Hash(FloatOf(0)))
	assert.True(t, math.Signbit(negZero.Float64()), "payload keeps the sign of zero")
}

func TestKindsNeverCollapse(t *testing.T) {
	values := []Value{
		Var("a"),
		FloatOf(1),
		IntegerOf(1),
		RationalOf(1, 2),
		Atom("a"),
		String("a"),
		NewList(Atom("a")),
		NewCompound("a", Atom("a")),
	}
	for i, a := range values {
		for j, b := range values {
			assert.Equal(t, i == j, Equal(a, b), "%v vs %v", a, b)
		}
	}
	assert.False(t, Equal(Atom("hello"), String("hello")))
	assert.NotEqual(t, Hash(Atom("hello")), Hash(String("hello")))
}

func TestCompareOrdersKindsThenPayload(t *testing.T) {
	got := []Value{
		NewCompound("f", Atom("b")),
		String("s"),
		NewList(IntegerOf(1), IntegerOf(2)),
		Atom("z"),
		RationalOf(1, 3),
		IntegerOf(-5),
		FloatOf(2.5),
		Var("X"),
		NewList(IntegerOf(9)),
		NewCompound("f", Atom("a")),
		NewCompound("a", Atom("a"), Atom("a")),
		Atom("a"),
	}
	sort.Slice(got, func(i, j int) bool { return Compare(got[i], got[j]) < 0 })

	want := []Value{
		Var("X"),
		FloatOf(2.5),
		IntegerOf(-5),
		RationalOf(1, 3),
		Atom("a"),
		Atom("z"),
		String("s"),
		NewList(IntegerOf(9)),
		NewList(IntegerOf(1), IntegerOf(2)),
		NewCompound("f", Atom("a")),
		NewCompound("f", Atom("b")),
		NewCompound("a", Atom("a"), Atom("a")),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sorted values mismatch (-want +got):\n%s", diff)
	}
}

func TestStructuralEquality(t *testing.T) {
	a := NewCompound("point", IntegerOf(1), NewList(String("x"), FloatOf(math.NaN())))
	b := NewCompound("point", IntegerOf(1), NewList(String("x"), FloatOf(math.NaN())))
	c := NewCompound("point", IntegerOf(1), NewList(String("y"), FloatOf(math.NaN())))

	assert.True(t, a.Equal(b))
	assert.Equal(t, Hash(a), Hash(b))
	assert.False(t, a.Equal(c))
	assert.True(t, cmp.Equal(a, b))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(Atom("a"), nil))
}

func TestNilElementsCompareFirst(t *testing.T) {
	holes := NewList(nil)
	assert.True(t, Equal(holes, NewList(nil)))
	assert.Equal(t, Hash(holes), Hash(NewList(nil)))
	assert.False(t, Equal(holes, NewList(Atom("a"))))
	assert.Equal(t, -1, Compare(holes, NewList(Var("_"))))
	assert.Equal(t, 1, Compare(NewCompound("f", Atom("a")), NewCompound("f", nil)))
	assert.Equal(t, -1, Compare(nil, Atom("a")))
	assert.Equal(t, 0, Compare(nil, nil))
}

func TestBigNumbersAreCopied(t *testing.T) {
	n, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	v := NewInteger(n)
	n.SetInt64(0)
	assert.Equal(t, "123456789012345678901234567890", v.String())

	out := v.Int()
	out.SetInt64(1)
	assert.Equal(t, "123456789012345678901234567890", v.String())

	r := NewRational(big.NewRat(2, 4))
	assert.Equal(t, "1/2", r.String())
	assert.True(t, Equal(r, RationalOf(1, 2)))
	assert.Equal(t, "0", Integer{}.String())
	assert.True(t, Equal(Integer{}, IntegerOf(0)))
}

func TestListAndCompoundAreImmutable(t *testing.T) {
	items := []Value{Atom("a"), Atom("b")}
	l := NewList(items...)
	items[0] = Atom("changed")
	assert.Equal(t, "[a, b]", l.String())

	out := l.Items()
	out[1] = Atom("changed")
	assert.Equal(t, Atom("b"), l.At(1))

	c := NewCompound("f", Atom("x"))
	args := c.Args()
	args[0] = Atom("y")
	assert.Equal(t, Atom("x"), c.Arg(0))
	assert.Equal(t, 1, c.Arity())
}

func TestNewCompoundRejectsZeroArity(t *testing.T) {
	assert.Panics(t, func() { NewCompound("f") })
}

func TestFormat(t *testing.T) {
	big100, ok := ParseInteger("1" + strings.Repeat("0", 99))
	require.True(t, ok)

	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"integer", IntegerOf(-42), "-42"},
		{"big integer", big100, "1" + strings.Repeat("0", 99)},
		{"rational", RationalOf(-3, 6), "-1/2"},
		{"integral rational", RationalOf(4, 2), "2"},
		{"float", FloatOf(1.5), "1.5"},
		{"integral float", FloatOf(3), "3.0"},
		{"exponent float", FloatOf(1e300), "1e+300"},
		{"nan", FloatOf(math.NaN()), "NaN"},
		{"inf", FloatOf(math.Inf(-1)), "-Inf"},
		{"atom", Atom("hello"), "hello"},
		{"string", String(`say "hi" \o/`), `"say \"hi\" \\o/"`},
		{"var", Var("_G123"), "_G123"},
		{"empty list", NewList(), "[]"},
		{"list", NewList(IntegerOf(1), String("a"), Atom("b")), `[1, "a", b]`},
		{"compound", NewCompound("f", Atom("a"), NewList(Var("X")), NewCompound("g", IntegerOf(2))), "f(a, [X], g(2))"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "rational", KindRational.String())
	assert.Equal(t, "compound", Compound{}.Kind().String())
	assert.Equal(t, "unknown", Kind(99).String())
}
