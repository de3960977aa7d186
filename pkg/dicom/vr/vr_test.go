package vr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, OB, Parse('O', 'B'))
	assert.Equal(t, UI, Parse('U', 'I'))
	// Garbage off the wire degrades to UN rather than failing.
	assert.Equal(t, UN, Parse('Z', 'Z'))
	assert.Equal(t, UN, Parse(0x00, 0xFF))
}

func TestLengthEncoding(t *testing.T) {
	for _, v := range []VR{OB, OW, SQ, UN, UT, UC, UR, OD, OF, OL} {
		assert.True(t, v.UsesLongLength(), string(v))
	}
	for _, v := range []VR{US, SS, UI, CS, DS, PN, FD} {
		assert.False(t, v.UsesLongLength(), string(v))
	}
}

func TestFixedSize(t *testing.T) {
	assert.Equal(t, 2, US.FixedSize())
	assert.Equal(t, 2, SS.FixedSize())
	assert.Equal(t, 4, UL.FixedSize())
	assert.Equal(t, 8, FD.FixedSize())
	assert.Zero(t, UI.FixedSize())
	assert.Zero(t, OB.FixedSize())
}

func TestStringAndSequence(t *testing.T) {
	assert.True(t, UI.IsString())
	assert.True(t, DS.IsString())
	assert.False(t, US.IsString())
	assert.True(t, SQ.IsSequence())
	assert.False(t, OB.IsSequence())
}
