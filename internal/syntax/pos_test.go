package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosString(t *testing.T) {
	tests := []struct {
		name string
		pos  Pos
		want string
	}{
		{"with_file", NewPos("a.prsl", 3, 7), "a.prsl:3:7"},
		{"no_file", NewPos("", 1, 1), "1:1"},
		{"zero", Pos{}, "0:0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pos.String())
		})
	}
}

func TestPosValidity(t *testing.T) {
	assert.False(t, Pos{}.IsValid())
	assert.True(t, NewPos("", 1, 1).IsValid())
}

func TestPosBefore(t *testing.T) {
	a := NewPos("f", 1, 5)
	b := NewPos("f", 2, 1)
	c := NewPos("f", 2, 3)

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(a))
	assert.False(t, b.Before(b))
	assert.True(t, Pos{}.Before(a))
}
