package callvalue

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigInt(s string) Int {
	n, _ := new(big.Int).SetString(s, 10)
	return Int{V: n}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"empty", "", Composite{}},
		{"whitespace", "   ", Composite{}},
		{"bool", "true", Bool(true)},
		{"unsigned", "1_000_000", NewInt(1000000)},
		{"signed", "-42", NewInt(-42)},
		{"u256 max", "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			bigInt("115792089237316195423570985008687907853269984665640564039457584007913129639935")},
		{"string", `"hi \"there\"\n"`, String("hi \"there\"\n")},
		{"unicode escape", `"\u{1F600}"`, String("\U0001F600")},
		{"char", `'a'`, Char('a')},
		{"escaped char", `'\''`, Char('\'')},
		{"hex", "0x00ff", Unnamed(NewInt(0), NewInt(255))},
		{"empty hex", "0x", Composite{}},
		{"bits", "<0101>", Bits{false, true, false, true}},
		{"bits with commas", "<1, 0>", Bits{true, false}},
		{"unnamed", "(1, true, \"x\")", Unnamed(NewInt(1), Bool(true), String("x"))},
		{"trailing comma", "(1,)", Unnamed(NewInt(1))},
		{"named", "{ dest: 5, keep_alive: false }", Named(Field{"dest", NewInt(5)}, Field{"keep_alive", Bool(false)})},
		{"bare variant", "None", Variant{Name: "None"}},
		{"unnamed variant", "Some(1)", Variant{Name: "Some", Fields: Unnamed(NewInt(1))}},
		{"named variant", "Transfer { amount: 1 }", Variant{Name: "Transfer", Fields: Named(Field{"amount", NewInt(1)})}},
		{"quoted variant", `v"Weird Name"(1)`, Variant{Name: "Weird Name", Fields: Unnamed(NewInt(1))}},
		{"nested", "Id(0x01)", Variant{Name: "Id", Fields: Unnamed(Unnamed(NewInt(1)))}},
		{"ss58 starting with digit", "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
			String("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int
	}{
		{"unclosed composite", "(1, 2", 5},
		{"missing separator", "(1 2)", 3},
		{"trailing input", "1 2", 2},
		{"odd hex", "0xabc", 0},
		{"too large", "115792089237316195423570985008687907853269984665640564039457584007913129639936", 0},
		{"unterminated string", `"abc`, 0},
		{"bad bit", "<012>", 3},
		{"missing field name", "{ : 1 }", 2},
		{"bad character", "(1, #)", 4},
		{"digit then letters", "12ab", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.ErrorIs(t, err, ErrParse)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.input, pe.Input)
			assert.Equal(t, tt.offset, pe.Offset, pe.Error())
		})
	}
}

func TestIntoComposite(t *testing.T) {
	c := Unnamed(NewInt(1), NewInt(2))
	assert.Equal(t, c, IntoComposite(c))

	n := Named(Field{"a", Bool(true)})
	assert.Equal(t, n, IntoComposite(n))

	assert.Equal(t, Unnamed(NewInt(7)), IntoComposite(NewInt(7)))
	assert.Equal(t, Unnamed(Variant{Name: "None"}), IntoComposite(Variant{Name: "None"}))
}

func TestParseArgs(t *testing.T) {
	got, err := ParseArgs([]string{"(", "1,", "2", ")"})
	require.NoError(t, err)
	assert.Equal(t, Unnamed(NewInt(1), NewInt(2)), got)

	got, err = ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, Composite{}, got)

	got, err = ParseArgs([]string{"42"})
	require.NoError(t, err)
	assert.Equal(t, Unnamed(NewInt(42)), got)
}

func TestComposite_Bytes(t *testing.T) {
	v, err := Parse("0xdeadbeef")
	require.NoError(t, err)
	b, ok := v.(Composite).Bytes()
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, b)

	_, ok = Unnamed(NewInt(256)).Bytes()
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	v, err := Parse(`{ a: (1, <10>), b: Some('x'), c: "s" }`)
	require.NoError(t, err)
	assert.Equal(t, `{ a: (1, <10>), b: Some('x'), c: "s" }`, v.String())
}
