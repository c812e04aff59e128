package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "fantasy", Normalize("  Fantasy "))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalizeSet(t *testing.T) {
	assert.Equal(t, []string{"fantasy", "sci-fi"}, NormalizeSet(" Fantasy, SCI-FI ,, "))
	assert.Nil(t, NormalizeSet(""))
}

func TestNormalizeAll(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeAll([]string{" A ", "b", "  "}))
}

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int64
		ok   bool
	}{
		{float64(42), 42, true},
		{int(7), 7, true},
		{int64(9), 9, true},
		{"1234", 1234, true},
		{"12 of 345", 12, true}, // first digit run wins
		{"oops", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := CoerceInt(c.in)
		assert.Equal(t, c.ok, ok, "input %v", c.in)
		if ok {
			assert.Equal(t, c.want, got, "input %v", c.in)
		}
	}
}
