package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type level int

const (
	levelLow level = iota
	levelHigh
)

var levels = []level{levelLow, levelHigh}

func (l level) IsValid() bool  { return IndexOf(levels, l) != IllegalValue }
func (l level) Number() int    { return IndexOf(levels, l) }
func (l level) String() string { return l.Name() }
func (l level) Desc() string   { return l.Name() }
func (l level) Name() string {
	switch l {
	case levelLow:
		return "low"
	case levelHigh:
		return "high"
	default:
		return IllegalName
	}
}

func TestIndexOf(t *testing.T) {
	assert.Equal(t, 0, IndexOf(levels, levelLow))
	assert.Equal(t, 1, IndexOf(levels, levelHigh))
	assert.Equal(t, IllegalValue, IndexOf(levels, level(7)))
	assert.Equal(t, IllegalValue, IndexOf([]string{}, "x"))
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "low, high", JoinNames(levels, ", "))
	assert.Equal(t, "", JoinNames([]level{}, ", "))
	assert.False(t, level(7).IsValid())
	assert.Equal(t, IllegalName, level(7).String())
}
